package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Layr-Labs/operator-state/internal/metrics"
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindTest"
	"github.com/Layr-Labs/operator-state/pkg/reconstructor"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/storage/memoryStore"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	avsA     = "0x00000000000000000000000000000000000000a1"
	avsB     = "0x00000000000000000000000000000000000000a2"
	stakerA  = "0x00000000000000000000000000000000000000b1"
	stakerB  = "0x00000000000000000000000000000000000000b2"
	approver = "0x00000000000000000000000000000000000000c1"
	strategy = "0x00000000000000000000000000000000000000d1"
)

var fixedNow = kindTest.Genesis.AddDate(0, 0, 10)

func seed(f *kindTest.Fixture) {
	f.Add(events.Table_OperatorRegisteredEvents, 5, 0, kindTest.At(2), map[string]interface{}{
		"operator_address":    kindTest.Operator,
		"delegation_approver": approver,
	})
	f.Add(events.Table_StakerDelegationEvents, 3, 0, kindTest.At(1), map[string]interface{}{"staker_id": stakerA, "delegation_type": "DELEGATED"})
	f.Add(events.Table_StakerDelegationEvents, 6, 0, kindTest.At(3), map[string]interface{}{"staker_id": stakerB, "delegation_type": "DELEGATED"})
	f.Add(events.Table_StakerForceUndelegatedEvents, 9, 0, kindTest.At(6), map[string]interface{}{"staker_id": stakerB})
	f.Add(events.Table_OperatorAvsRegistrationStatusEvents, 7, 0, kindTest.At(4), map[string]interface{}{"avs_id": avsA, "status": "REGISTERED"})
	f.Add(events.Table_OperatorAvsRegistrationStatusEvents, 7, 1, kindTest.At(4), map[string]interface{}{"avs_id": avsB, "status": "REGISTERED"})
	f.Add(events.Table_OperatorAvsRegistrationStatusEvents, 10, 0, kindTest.At(7), map[string]interface{}{"avs_id": avsB, "status": "UNREGISTERED"})
	f.Add(events.Table_AllocationEvents, 8, 0, kindTest.At(5), map[string]interface{}{
		"operator_set_id": avsA + "-0",
		"strategy_id":     strategy,
		"magnitude":       "100",
		"effect_block":    8,
	})
	f.Add(events.Table_OperatorAddedToOperatorSetEvents, 8, 1, kindTest.At(5), map[string]interface{}{"operator_set_id": avsA + "-0"})
	f.Add(events.Table_OperatorPiSplitBipsSetEvents, 11, 0, kindTest.At(8), map[string]interface{}{
		"activated_at":               kindTest.At(9),
		"old_operator_pi_split_bips": 1000,
		"new_operator_pi_split_bips": 600,
	})
	f.Add(events.Table_OperatorSlashedEvents, 12, 0, kindTest.At(20), map[string]interface{}{
		"operator_set_id": avsA + "-0",
		"description":     "downtime",
		"strategies":      []string{strategy},
		"wad_slashed":     []string{"1000"},
	})
	f.Add(events.Table_OperatorMetadataUpdateEvents, 13, 0, kindTest.At(30), map[string]interface{}{"metadata_uri": "https://op"})
}

func rebuild(t *testing.T, f *kindTest.Fixture, store *memoryStore.MemoryStore) {
	l := zap.NewNop()
	km := kindManager.NewKindManager(l)
	assert.Nil(t, operatorState.LoadStateKinds(km, l))
	rc := reconstructor.NewReconstructor(f.Source, store, validation.NewReferenceResolver(store, l), metrics.NewNoopMetricsSink(), l)
	rc.Now = func() time.Time { return fixedNow }
	result := rc.Rebuild(context.Background(), km.CurrentKinds(), kindTest.Operator, nil)
	assert.Len(t, result.FetchErrors, 0)
	assert.Equal(t, 0, result.RowsSkipped())
}

func Test_Aggregator(t *testing.T) {
	ctx := context.Background()
	l := zap.NewNop()

	t.Run("Should fold derived tables into one operator state", func(t *testing.T) {
		f := kindTest.NewFixture()
		seed(f)
		store := memoryStore.NewMemoryStore()
		rebuild(t, f, store)

		agg := NewAggregator(store, l)
		agg.Now = func() time.Time { return fixedNow }
		state, err := agg.Aggregate(ctx, kindTest.Operator)
		assert.Nil(t, err)

		assert.Equal(t, kindTest.Operator, state.OperatorAddress)
		assert.Equal(t, uint64(5), *state.RegistrationBlock)
		assert.Equal(t, "https://op", *state.CurrentMetadataUri)
		assert.Equal(t, approver, *state.CurrentDelegationApprover)
		assert.True(t, state.IsPermissioned)
		assert.Equal(t, uint64(600), *state.CurrentPiSplitBips)
		assert.Equal(t, uint64(2), state.RegisteredAvsCount)
		assert.Equal(t, uint64(1), state.ActiveAvsCount)
		assert.Equal(t, uint64(1), state.ActiveOperatorSetCount)
		assert.Equal(t, uint64(1), state.ActiveAllocationCount)
		assert.Equal(t, uint64(2), state.TotalDelegators)
		assert.Equal(t, uint64(1), state.ActiveDelegators)
		assert.Equal(t, uint64(1), state.ForceUndelegationCount)
		assert.Equal(t, uint64(1), state.TotalSlashEvents)
		assert.Equal(t, time.Unix(kindTest.At(20), 0).UTC(), *state.LastSlashedAt)
		assert.Equal(t, time.Unix(kindTest.At(30), 0).UTC(), *state.LastActivityAt)
		assert.True(t, state.IsActive)

		assert.Equal(t, ActivityType_Delegation, *state.FirstActivityType)
		assert.Equal(t, uint64(3), *state.FirstActivityBlock)
		assert.Equal(t, uint64(9), state.OperationalDays)
	})

	t.Run("Should produce the same state when the whole pass runs twice", func(t *testing.T) {
		f := kindTest.NewFixture()
		seed(f)
		store := memoryStore.NewMemoryStore()
		agg := NewAggregator(store, l)
		agg.Now = func() time.Time { return fixedNow }

		rebuild(t, f, store)
		first, err := agg.Aggregate(ctx, kindTest.Operator)
		assert.Nil(t, err)
		rowsBefore := len(store.Rows("operator_delegator_history"))

		rebuild(t, f, store)
		second, err := agg.Aggregate(ctx, kindTest.Operator)
		assert.Nil(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, rowsBefore, len(store.Rows("operator_delegator_history")))
	})

	t.Run("Should wrap store failures in an AggregationError", func(t *testing.T) {
		agg := NewAggregator(&failingStore{MemoryStore: memoryStore.NewMemoryStore()}, l)
		_, err := agg.Aggregate(ctx, kindTest.Operator)
		assert.NotNil(t, err)

		var aggErr *AggregationError
		assert.True(t, errors.As(err, &aggErr))
		assert.Equal(t, kindTest.Operator, aggErr.OperatorId)
	})
}

type failingStore struct {
	*memoryStore.MemoryStore
}

func (f *failingStore) ListRows(ctx context.Context, table string, operatorId string) ([]storage.Row, error) {
	return nil, errors.New("connection reset")
}

func Test_ResolveFirstActivity(t *testing.T) {
	at := kindTest.Genesis

	t.Run("Should break timestamp ties by block", func(t *testing.T) {
		first := ResolveFirstActivity([]*Activity{
			{Type: ActivityType_Allocation, At: at, Block: 12},
			{Type: ActivityType_Registration, At: at, Block: 10},
			{Type: ActivityType_Delegation, At: at.Add(time.Hour), Block: 1},
		})
		assert.Equal(t, ActivityType_Registration, first.Type)
	})

	t.Run("Should keep the first listed candidate on a full tie", func(t *testing.T) {
		first := ResolveFirstActivity([]*Activity{
			{Type: ActivityType_Registration, At: at, Block: 10},
			{Type: ActivityType_Delegation, At: at, Block: 10},
		})
		assert.Equal(t, ActivityType_Registration, first.Type)
	})

	t.Run("Should return nil without candidates", func(t *testing.T) {
		assert.Nil(t, ResolveFirstActivity(nil))
	})
}

func Test_Checkpoint(t *testing.T) {
	ctx := context.Background()

	t.Run("Should start from the zero time", func(t *testing.T) {
		cursor, err := LoadCursor(ctx, memoryStore.NewMemoryStore(), "operator-state")
		assert.Nil(t, err)
		assert.True(t, cursor.IsZero())
	})

	t.Run("Should advance the cursor and record per-kind counts", func(t *testing.T) {
		store := memoryStore.NewMemoryStore()
		summary := NewRunSummary("operator-state", fixedNow)
		summary.OperatorsProcessed = 2
		summary.EventsProcessed = 40
		summary.LastProcessedBlock = 99
		summary.AddKindRows("strategyState", 3)
		summary.AddKindRows("delegators", 4)
		summary.AddKindRows("strategyState", 1)

		cp, err := AdvanceCheckpoint(ctx, store, summary, fixedNow)
		assert.Nil(t, err)
		assert.Equal(t, uint64(2), cp.OperatorsProcessedCount)

		cursor, err := LoadCursor(ctx, store, "operator-state")
		assert.Nil(t, err)
		assert.Equal(t, fixedNow, cursor)

		var meta map[string]interface{}
		assert.Nil(t, json.Unmarshal([]byte(cp.RunMetadata), &meta))
		assert.NotEmpty(t, meta["run_id"])
		kindRows := meta["kind_rows"].(map[string]interface{})
		assert.Equal(t, float64(4), kindRows["strategyState"])
		assert.Equal(t, float64(4), kindRows["delegators"])
	})

	t.Run("Should never move the processed block backwards", func(t *testing.T) {
		store := memoryStore.NewMemoryStore()
		first := NewRunSummary("operator-state", fixedNow)
		first.LastProcessedBlock = 50
		_, err := AdvanceCheckpoint(ctx, store, first, fixedNow)
		assert.Nil(t, err)

		second := NewRunSummary("operator-state", fixedNow.Add(time.Hour))
		cp, err := AdvanceCheckpoint(ctx, store, second, fixedNow.Add(time.Hour))
		assert.Nil(t, err)
		assert.Equal(t, uint64(50), cp.LastProcessedBlock)
		assert.Equal(t, fixedNow, cp.CreatedAt)
	})
}
