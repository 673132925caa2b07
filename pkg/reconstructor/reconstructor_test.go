package reconstructor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Layr-Labs/operator-state/internal/metrics"
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/allocations"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/delegatorShares"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/delegators"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindTest"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/metadataHistory"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/storage/memoryStore"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const (
	stakerA   = "0x00000000000000000000000000000000000000b1"
	stakerB   = "0x00000000000000000000000000000000000000b2"
	strategyA = "0x00000000000000000000000000000000000000d1"
	strategyB = "0x00000000000000000000000000000000000000d2"
	avs       = "0x00000000000000000000000000000000000000a1"
)

var fixedNow = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func setup(f *kindTest.Fixture) (*Reconstructor, *memoryStore.MemoryStore) {
	l := zap.NewNop()
	store := memoryStore.NewMemoryStore()
	r := NewReconstructor(f.Source, store, validation.NewReferenceResolver(store, l), metrics.NewNoopMetricsSink(), l)
	r.Now = func() time.Time { return fixedNow }
	return r, store
}

func seedDelegations(f *kindTest.Fixture) {
	f.Add(events.Table_StakerDelegationEvents, 10, 0, kindTest.At(1), map[string]interface{}{"staker_id": stakerA, "delegation_type": "DELEGATED"})
	f.Add(events.Table_StakerDelegationEvents, 11, 0, kindTest.At(2), map[string]interface{}{"staker_id": stakerB, "delegation_type": "DELEGATED"})
	f.Add(events.Table_StakerDelegationEvents, 12, 0, kindTest.At(3), map[string]interface{}{"staker_id": stakerB, "delegation_type": "UNDELEGATED"})
}

func Test_Reconstructor(t *testing.T) {
	ctx := context.Background()
	l := zap.NewNop()

	t.Run("Should produce identical rows when rebuilt twice", func(t *testing.T) {
		f := kindTest.NewFixture()
		seedDelegations(f)
		r, store := setup(f)
		kind, err := delegators.NewDelegatorsKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)

		first := r.Rebuild(ctx, []types.IStateKind{kind}, kindTest.Operator, nil)
		assert.Len(t, first.FetchErrors, 0)
		assert.Equal(t, 2, first.RowsWritten())
		before := store.Rows(types.Table_OperatorDelegators)

		second := r.Rebuild(ctx, []types.IStateKind{kind}, kindTest.Operator, nil)
		assert.Equal(t, 2, second.RowsWritten())
		after := store.Rows(types.Table_OperatorDelegators)

		assert.Len(t, after, 2)
		assert.Equal(t, before, after)
		assert.Equal(t, kindTest.Operator+"-"+stakerA, after[0]["id"])
		assert.Equal(t, fixedNow, after[0]["updated_at"])
	})

	t.Run("Should not duplicate append-only rows on rerun", func(t *testing.T) {
		f := kindTest.NewFixture()
		f.Add(events.Table_OperatorMetadataUpdateEvents, 10, 0, kindTest.At(1), map[string]interface{}{"metadata_uri": "https://a"})
		f.Add(events.Table_OperatorMetadataUpdateEvents, 20, 0, kindTest.At(2), map[string]interface{}{"metadata_uri": "https://b"})
		r, store := setup(f)
		kind, err := metadataHistory.NewMetadataHistoryKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)

		first := r.Rebuild(ctx, []types.IStateKind{kind}, kindTest.Operator, nil)
		assert.Equal(t, int64(2), first.Kinds[0].RowsAffected)

		second := r.Rebuild(ctx, []types.IStateKind{kind}, kindTest.Operator, nil)
		assert.Equal(t, 2, second.RowsWritten())
		assert.Equal(t, int64(0), second.Kinds[0].RowsAffected)
		assert.Len(t, store.Rows(types.Table_OperatorMetadataHistory), 2)
	})

	t.Run("Should create a shared reference exactly once", func(t *testing.T) {
		f := kindTest.NewFixture()
		f.Add(events.Table_OperatorShareEvents, 10, 0, kindTest.At(1), map[string]interface{}{
			"staker_id": stakerA, "strategy_id": strategyA, "shares": "100", "event_type": "INCREASED",
		})
		f.Add(events.Table_OperatorShareEvents, 10, 1, kindTest.At(1), map[string]interface{}{
			"staker_id": stakerA, "strategy_id": strategyB, "shares": "50", "event_type": "INCREASED",
		})
		r, store := setup(f)
		kind, err := delegatorShares.NewDelegatorSharesKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)

		result := r.Rebuild(ctx, []types.IStateKind{kind}, kindTest.Operator, nil)
		assert.Equal(t, 2, result.RowsWritten())
		assert.Len(t, store.References(storage.ReferenceTable_Stakers), 1)
		assert.Len(t, store.References(storage.ReferenceTable_Strategies), 2)
		assert.Len(t, store.References(storage.ReferenceTable_Operators), 1)
	})

	t.Run("Should skip a malformed row and write its siblings", func(t *testing.T) {
		r, store := setup(kindTest.NewFixture())
		kind, err := delegators.NewDelegatorsKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)

		row := func(staker interface{}) storage.Row {
			return storage.Row{
				"operator_id":        kindTest.Operator,
				"staker_id":          staker,
				"delegation_status":  "DELEGATED",
				"is_delegated":       true,
				"delegated_at":       kindTest.At(1),
				"undelegated_at":     nil,
				"last_changed_block": uint64(10),
			}
		}
		rows := []storage.Row{row(stakerA), row(nil), row(stakerB)}

		result, err := r.InsertState(ctx, kind, kindTest.Operator, rows, false)
		assert.Nil(t, err)
		assert.Equal(t, 3, result.RowsFetched)
		assert.Equal(t, 2, result.RowsWritten)
		assert.Equal(t, 1, result.ValidationFailures)
		assert.Equal(t, 1, result.Skipped())
		assert.Len(t, store.Rows(types.Table_OperatorDelegators), 2)

		written := store.Rows(types.Table_OperatorDelegators)[0]
		assert.Equal(t, time.Unix(kindTest.At(1), 0).UTC(), written["delegated_at"])
	})

	t.Run("Should count reference and store failures separately", func(t *testing.T) {
		r, store := setup(kindTest.NewFixture())
		kind, err := allocations.NewAllocationsKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)

		row := func(set string, strategy string) storage.Row {
			return storage.Row{
				"operator_id":        kindTest.Operator,
				"avs_id":             avs,
				"operator_set_id":    set,
				"strategy_id":        strategy,
				"magnitude":          decimal.NewFromInt(10),
				"effect_block":       uint64(10),
				"allocated_at":       time.Unix(kindTest.At(1), 0).UTC(),
				"allocated_at_block": uint64(10),
			}
		}
		store.FailUpsertWhen = func(spec *storage.UpsertSpec, row storage.Row) error {
			if s, _ := row.String("strategy_id"); s == strategyB {
				return errors.New("violates check constraint")
			}
			return nil
		}

		rows := []storage.Row{
			row(avs+"-1", strategyA),
			row("not-a-set", strategyA),
			row(avs+"-1", strategyB),
		}
		result, err := r.InsertState(ctx, kind, kindTest.Operator, rows, false)
		assert.Nil(t, err)
		assert.Equal(t, 1, result.RowsWritten)
		assert.Equal(t, 1, result.ReferenceFailures)
		assert.Equal(t, 1, result.StoreFailures)
		assert.Len(t, store.References(storage.ReferenceTable_OperatorSets), 1)
	})

	t.Run("Should surface a fetch failure per kind without aborting", func(t *testing.T) {
		f := kindTest.NewFixture()
		seedDelegations(f)
		f.Source.FailFor[kindTest.Operator] = errors.New("connection refused")
		r, _ := setup(f)
		km := kindManager.NewKindManager(l)
		dk, err := delegators.NewDelegatorsKind(km, l)
		assert.Nil(t, err)
		mk, err := metadataHistory.NewMetadataHistoryKind(km, l)
		assert.Nil(t, err)

		result := r.Rebuild(ctx, []types.IStateKind{dk, mk}, kindTest.Operator, nil)
		assert.Len(t, result.FetchErrors, 2)
		assert.Len(t, result.Kinds, 0)

		var fetchErr *FetchError
		assert.True(t, errors.As(result.FetchErrors[0], &fetchErr))
		assert.Equal(t, delegators.KindName, fetchErr.Kind)
		assert.Equal(t, kindTest.Operator, fetchErr.OperatorId)
	})

	t.Run("Should clear the reference memo after each operator", func(t *testing.T) {
		f := kindTest.NewFixture()
		seedDelegations(f)
		l := zap.NewNop()
		store := memoryStore.NewMemoryStore()
		resolver := validation.NewReferenceResolver(store, l)
		r := NewReconstructor(f.Source, store, resolver, metrics.NewNoopMetricsSink(), l)
		kind, err := delegators.NewDelegatorsKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)

		r.Rebuild(ctx, []types.IStateKind{kind}, kindTest.Operator, nil)
		assert.Equal(t, 0, resolver.CacheSize())
	})

	t.Run("Should stamp snapshot rows without deriving keys", func(t *testing.T) {
		f := kindTest.NewFixture()
		f.Add(events.Table_OperatorShareEvents, 10, 0, kindTest.At(1), map[string]interface{}{
			"staker_id": stakerA, "strategy_id": strategyA, "shares": "100", "event_type": "INCREASED",
		})
		f.Add(events.Table_OperatorShareEvents, 30, 0, kindTest.At(30), map[string]interface{}{
			"staker_id": stakerA, "strategy_id": strategyA, "shares": "40", "event_type": "DECREASED",
		})
		r, store := setup(f)
		kind, err := delegatorShares.NewDelegatorSharesKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)

		date := kindTest.Genesis
		result, err := r.ReconstructKind(ctx, kind, kindTest.Operator, kindTest.Block(10), events.DayEnd(date), func(row storage.Row) {
			row[types.Column_SnapshotDate] = date
			row[types.Column_SnapshotBlock] = uint64(10)
		})
		assert.Nil(t, err)
		assert.Equal(t, 1, result.RowsWritten)
		assert.Equal(t, 1, result.EventsFetched)

		rows := store.Rows(types.Table_OperatorDelegatorSharesSnapshots)
		assert.Len(t, rows, 1)
		assert.Equal(t, "100", rows[0]["shares"].(decimal.Decimal).String())
		assert.Equal(t, date, rows[0][types.Column_SnapshotDate])
		_, hasUpdatedAt := rows[0][types.Column_UpdatedAt]
		assert.False(t, hasUpdatedAt)
		assert.Len(t, store.Rows(types.Table_OperatorDelegatorShares), 0)
	})
}
