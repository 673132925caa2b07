package delegatorHistory

import (
	"testing"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindTest"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_DelegatorHistory(t *testing.T) {
	l := zap.NewNop()
	staker := "0x00000000000000000000000000000000000000b1"

	t.Run("Should interleave delegation and force undelegation in chain order", func(t *testing.T) {
		kind, err := NewDelegatorHistoryKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)
		f := kindTest.NewFixture()
		f.Add(events.Table_StakerForceUndelegatedEvents, 30, 0, kindTest.At(3), map[string]interface{}{"staker_id": staker})
		f.Add(events.Table_StakerDelegationEvents, 10, 0, kindTest.At(1), map[string]interface{}{"staker_id": staker, "delegation_type": "DELEGATED"})

		rows, err := f.Resolve(kind, nil, kindTest.Genesis)
		assert.Nil(t, err)
		assert.Len(t, rows, 2)
		assert.Equal(t, "DELEGATED", rows[0]["delegation_type"])
		assert.Equal(t, "FORCE_UNDELEGATED", rows[1]["delegation_type"])
		assert.Equal(t, uint64(30), rows[1]["event_block"])
	})

	t.Run("Should respect the upper block bound", func(t *testing.T) {
		kind, err := NewDelegatorHistoryKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)
		f := kindTest.NewFixture()
		f.Add(events.Table_StakerDelegationEvents, 10, 0, kindTest.At(1), map[string]interface{}{"staker_id": staker, "delegation_type": "DELEGATED"})
		f.Add(events.Table_StakerDelegationEvents, 40, 0, kindTest.At(4), map[string]interface{}{"staker_id": staker, "delegation_type": "UNDELEGATED"})

		rows, err := f.Resolve(kind, kindTest.Block(20), kindTest.Genesis)
		assert.Nil(t, err)
		assert.Len(t, rows, 1)
	})
}
