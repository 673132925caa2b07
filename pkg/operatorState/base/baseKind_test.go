package base

import (
	"testing"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testSpec() *types.KindSpec {
	return &types.KindSpec{
		Name:          "commissionRates",
		CurrentTable:  types.Table_OperatorCommissionRates,
		SnapshotTable: types.Table_OperatorCommissionRatesSnapshots,
		NaturalKey:    []string{"operator_id", "commission_type", "target_id"},
		ValueColumns:  []string{"current_bips", "total_changes"},
		Tables:        []string{events.Table_OperatorPiSplitBipsSetEvents, events.Table_OperatorAvsSplitBipsSetEvents},
	}
}

func Test_BaseKind(t *testing.T) {
	l := zap.NewNop()

	t.Run("Should apply the same bound to every table", func(t *testing.T) {
		b := NewBaseKind(testSpec(), l)
		upTo := uint64(42)
		queries, err := b.BuildFetch("0xop", &upTo)
		assert.Nil(t, err)
		assert.Len(t, queries, 2)
		for _, q := range queries {
			assert.Equal(t, "0xop", q.OperatorId)
			assert.Equal(t, uint64(42), *q.UpToBlock)
		}
	})
	t.Run("Should reject an empty operator id", func(t *testing.T) {
		b := NewBaseKind(testSpec(), l)
		_, err := b.BuildFetch("", nil)
		assert.NotNil(t, err)
	})
	t.Run("Should reject an unknown table", func(t *testing.T) {
		spec := testSpec()
		spec.Tables = []string{"not_a_table"}
		b := NewBaseKind(spec, l)
		_, err := b.BuildFetch("0xop", nil)
		assert.NotNil(t, err)
	})
	t.Run("Should derive keys skipping empty parts", func(t *testing.T) {
		b := NewBaseKind(testSpec(), l)
		key, ok := b.DeriveKey(storage.Row{"operator_id": "0xop", "commission_type": "PI", "target_id": ""}, false)
		assert.True(t, ok)
		assert.Equal(t, "0xop-PI", key)

		key, ok = b.DeriveKey(storage.Row{"operator_id": "0xop", "commission_type": "AVS", "target_id": "0xavs"}, false)
		assert.True(t, ok)
		assert.Equal(t, "0xop-AVS-0xavs", key)
	})
	t.Run("Should not derive keys on the snapshot path", func(t *testing.T) {
		b := NewBaseKind(testSpec(), l)
		_, ok := b.DeriveKey(storage.Row{"operator_id": "0xop"}, true)
		assert.False(t, ok)
	})
	t.Run("Should build current and snapshot upserts", func(t *testing.T) {
		b := NewBaseKind(testSpec(), l)
		current, err := b.BuildUpsert(false)
		assert.Nil(t, err)
		assert.Equal(t, []string{"id"}, current.ConflictColumns)
		assert.Equal(t, []string{"current_bips", "total_changes", "updated_at"}, current.UpdateColumns)

		snap, err := b.BuildUpsert(true)
		assert.Nil(t, err)
		assert.Equal(t, types.Table_OperatorCommissionRatesSnapshots, snap.Table)
		assert.Equal(t, []string{"operator_id", "commission_type", "target_id", "snapshot_date"}, snap.ConflictColumns)
		assert.Equal(t, []string{"current_bips", "total_changes", "snapshot_block"}, snap.UpdateColumns)
	})
	t.Run("Should fail the snapshot path without a snapshot table", func(t *testing.T) {
		spec := testSpec()
		spec.SnapshotTable = ""
		b := NewBaseKind(spec, l)
		_, err := b.BuildUpsert(true)
		assert.NotNil(t, err)
	})
	t.Run("Should fail the current path for snapshot-only kinds", func(t *testing.T) {
		spec := testSpec()
		spec.CurrentTable = ""
		b := NewBaseKind(spec, l)
		_, err := b.BuildUpsert(false)
		assert.NotNil(t, err)
	})
	t.Run("Should insert-if-absent for append-only kinds", func(t *testing.T) {
		b := NewBaseKind(&types.KindSpec{
			Name:         "metadataHistory",
			CurrentTable: types.Table_OperatorMetadataHistory,
			ValueColumns: []string{"metadata_uri"},
			Tables:       []string{events.Table_OperatorMetadataUpdateEvents},
			AppendOnly:   true,
		}, l)
		spec, err := b.BuildUpsert(false)
		assert.Nil(t, err)
		assert.True(t, spec.DoNothing)
		assert.Equal(t, AppendOnlyKey, spec.ConflictColumns)

		_, ok := b.DeriveKey(storage.Row{"operator_id": "0xop"}, false)
		assert.False(t, ok)
	})
}
