package avsRegistrationHistory

import (
	"testing"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindTest"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_AvsRegistrationHistory(t *testing.T) {
	l := zap.NewNop()
	avs := "0x00000000000000000000000000000000000000a1"

	t.Run("Should emit one row per status change", func(t *testing.T) {
		kind, err := NewAvsRegistrationHistoryKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)
		f := kindTest.NewFixture()
		f.Add(events.Table_OperatorAvsRegistrationStatusEvents, 10, 1, kindTest.At(1), map[string]interface{}{"avs_id": avs, "status": "REGISTERED"})
		f.Add(events.Table_OperatorAvsRegistrationStatusEvents, 20, 3, kindTest.At(2), map[string]interface{}{"avs_id": avs, "status": "UNREGISTERED"})

		rows, err := f.Resolve(kind, nil, kindTest.Genesis)
		assert.Nil(t, err)
		assert.Len(t, rows, 2)
		assert.Equal(t, "REGISTERED", rows[0]["status"])
		assert.Equal(t, "0xtx0001", rows[0]["transaction_hash"])
		assert.Equal(t, uint64(1), rows[0]["log_index"])
		assert.Equal(t, "UNREGISTERED", rows[1]["status"])
		assert.Equal(t, uint64(20), rows[1]["status_changed_block"])
	})

	t.Run("Should insert if absent and never derive a key", func(t *testing.T) {
		kind, err := NewAvsRegistrationHistoryKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)

		spec, err := kind.BuildUpsert(false)
		assert.Nil(t, err)
		assert.True(t, spec.DoNothing)
		assert.Equal(t, []string{"operator_id", "transaction_hash", "log_index"}, spec.ConflictColumns)

		f := kindTest.NewFixture()
		f.Add(events.Table_OperatorAvsRegistrationStatusEvents, 10, 1, kindTest.At(1), map[string]interface{}{"avs_id": avs, "status": "REGISTERED"})
		rows, err := f.Resolve(kind, nil, kindTest.Genesis)
		assert.Nil(t, err)
		_, ok := kind.DeriveKey(rows[0], false)
		assert.False(t, ok)

		_, err = kind.BuildUpsert(true)
		assert.NotNil(t, err)
	})
}
