package dailySnapshot

import (
	"testing"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindTest"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_DailySnapshot(t *testing.T) {
	l := zap.NewNop()
	avsA := "0x00000000000000000000000000000000000000a1"
	avsB := "0x00000000000000000000000000000000000000a2"
	stakerA := "0x00000000000000000000000000000000000000b1"
	stakerB := "0x00000000000000000000000000000000000000b2"
	strategy := "0x00000000000000000000000000000000000000d1"

	seed := func() *kindTest.Fixture {
		f := kindTest.NewFixture()
		f.Add(events.Table_OperatorRegisteredEvents, 1, 0, kindTest.At(0), map[string]interface{}{
			"operator_address":    kindTest.Operator,
			"delegation_approver": "",
		})
		f.Add(events.Table_StakerDelegationEvents, 2, 0, kindTest.At(1), map[string]interface{}{"staker_id": stakerA, "delegation_type": "DELEGATED"})
		f.Add(events.Table_StakerDelegationEvents, 2, 1, kindTest.At(1), map[string]interface{}{"staker_id": stakerB, "delegation_type": "DELEGATED"})
		f.Add(events.Table_StakerForceUndelegatedEvents, 5, 0, kindTest.At(30), map[string]interface{}{"staker_id": stakerB})
		f.Add(events.Table_OperatorAvsRegistrationStatusEvents, 3, 0, kindTest.At(2), map[string]interface{}{"avs_id": avsA, "status": "REGISTERED"})
		f.Add(events.Table_OperatorAvsRegistrationStatusEvents, 3, 1, kindTest.At(2), map[string]interface{}{"avs_id": avsB, "status": "REGISTERED"})
		f.Add(events.Table_OperatorAvsRegistrationStatusEvents, 6, 0, kindTest.At(50), map[string]interface{}{"avs_id": avsB, "status": "UNREGISTERED"})
		f.Add(events.Table_AllocationEvents, 4, 0, kindTest.At(3), map[string]interface{}{
			"operator_set_id": avsA + "-0",
			"strategy_id":     strategy,
			"magnitude":       "100",
			"effect_block":    4,
		})
		f.Add(events.Table_OperatorPiSplitBipsSetEvents, 4, 1, kindTest.At(3), map[string]interface{}{
			"activated_at":               kindTest.At(4),
			"old_operator_pi_split_bips": 1000,
			"new_operator_pi_split_bips": 700,
		})
		f.Add(events.Table_OperatorSlashedEvents, 7, 0, kindTest.At(60), map[string]interface{}{
			"operator_set_id": avsA + "-0",
			"description":     "downtime",
			"strategies":      []string{strategy},
			"wad_slashed":     []string{"1"},
		})
		return f
	}

	t.Run("Should fold all tables into one headline row", func(t *testing.T) {
		kind, err := NewDailySnapshotKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)
		f := seed()

		asOf := kindTest.Genesis.AddDate(0, 0, 3)
		rows, err := f.Resolve(kind, nil, asOf)
		assert.Nil(t, err)
		assert.Len(t, rows, 1)

		row := rows[0]
		assert.Equal(t, uint64(1), row["delegator_count"])
		assert.Equal(t, uint64(1), row["active_avs_count"])
		assert.Equal(t, uint64(1), row["active_operator_set_count"])
		assert.Equal(t, uint64(700), row["pi_split_bips"])
		assert.Equal(t, uint64(1), row["slash_event_count_to_date"])
		assert.Equal(t, uint64(3), row["operational_days"])
		assert.Equal(t, true, row["is_registered"])
	})

	t.Run("Should only see events up to the snapshot block", func(t *testing.T) {
		kind, err := NewDailySnapshotKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)
		f := seed()

		rows, err := f.Resolve(kind, kindTest.Block(3), kindTest.Genesis.Add(3*time.Hour))
		assert.Nil(t, err)
		row := rows[0]
		assert.Equal(t, uint64(2), row["delegator_count"])
		assert.Equal(t, uint64(2), row["active_avs_count"])
		assert.Equal(t, uint64(0), row["active_operator_set_count"])
		assert.Nil(t, row["pi_split_bips"])
		assert.Equal(t, uint64(0), row["slash_event_count_to_date"])
		assert.Equal(t, uint64(0), row["operational_days"])
	})

	t.Run("Should only build a snapshot upsert", func(t *testing.T) {
		kind, err := NewDailySnapshotKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)

		_, err = kind.BuildUpsert(false)
		assert.NotNil(t, err)

		spec, err := kind.BuildUpsert(true)
		assert.Nil(t, err)
		assert.Equal(t, "operator_daily_snapshots", spec.Table)
		assert.Equal(t, []string{"operator_id", "snapshot_date"}, spec.ConflictColumns)
	})

	t.Run("Should emit nothing for an operator without events", func(t *testing.T) {
		kind, err := NewDailySnapshotKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)

		rows, err := kindTest.NewFixture().Resolve(kind, nil, kindTest.Genesis)
		assert.Nil(t, err)
		assert.Len(t, rows, 0)
	})
}
