package metadata

import (
	"testing"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindTest"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_Metadata(t *testing.T) {
	l := zap.NewNop()

	t.Run("Should keep the latest uri and count updates", func(t *testing.T) {
		kind, err := NewMetadataKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)
		f := kindTest.NewFixture()
		f.Add(events.Table_OperatorMetadataUpdateEvents, 30, 0, kindTest.At(3), map[string]interface{}{"metadata_uri": "https://c"})
		f.Add(events.Table_OperatorMetadataUpdateEvents, 10, 0, kindTest.At(1), map[string]interface{}{"metadata_uri": "https://a"})
		f.Add(events.Table_OperatorMetadataUpdateEvents, 20, 0, kindTest.At(2), map[string]interface{}{"metadata_uri": "https://b"})

		rows, err := f.Resolve(kind, nil, kindTest.Genesis)
		assert.Nil(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, "https://c", rows[0]["metadata_uri"])
		assert.Equal(t, uint64(3), rows[0]["total_updates"])

		rows, err = f.Resolve(kind, kindTest.Block(25), kindTest.Genesis)
		assert.Nil(t, err)
		assert.Equal(t, "https://b", rows[0]["metadata_uri"])
		assert.Equal(t, uint64(2), rows[0]["total_updates"])
	})
}
