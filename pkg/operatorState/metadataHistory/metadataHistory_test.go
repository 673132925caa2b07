package metadataHistory

import (
	"testing"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindTest"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_MetadataHistory(t *testing.T) {
	l := zap.NewNop()

	t.Run("Should keep every metadata update", func(t *testing.T) {
		kind, err := NewMetadataHistoryKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)
		f := kindTest.NewFixture()
		f.Add(events.Table_OperatorMetadataUpdateEvents, 10, 0, kindTest.At(1), map[string]interface{}{"metadata_uri": "https://a"})
		f.Add(events.Table_OperatorMetadataUpdateEvents, 20, 0, kindTest.At(2), map[string]interface{}{"metadata_uri": "https://b"})

		rows, err := f.Resolve(kind, nil, kindTest.Genesis)
		assert.Nil(t, err)
		assert.Len(t, rows, 2)
		assert.Equal(t, "https://a", rows[0]["metadata_uri"])
		assert.Equal(t, time.Unix(kindTest.At(2), 0).UTC(), rows[1]["metadata_updated_at"])
		assert.Equal(t, uint64(20), rows[1]["updated_block"])
	})
}
