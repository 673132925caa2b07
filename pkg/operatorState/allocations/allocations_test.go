package allocations

import (
	"testing"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindTest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func allocation(set string, strategy string, magnitude string, effect uint64) map[string]interface{} {
	return map[string]interface{}{
		"operator_set_id": set,
		"strategy_id":     strategy,
		"magnitude":       magnitude,
		"effect_block":    effect,
	}
}

func Test_Allocations(t *testing.T) {
	l := zap.NewNop()

	setup := func() (*AllocationsKind, *kindTest.Fixture) {
		kind, err := NewAllocationsKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)
		f := kindTest.NewFixture()
		f.Add(events.Table_AllocationEvents, 10, 0, kindTest.At(1), allocation("0xavs-1", "0xs1", "100", 12))
		f.Add(events.Table_AllocationEvents, 25, 0, kindTest.At(3), allocation("0xavs-1", "0xs1", "300", 27))
		f.Add(events.Table_AllocationEvents, 15, 2, kindTest.At(2), allocation("0xavs-1", "0xs1", "200", 17))
		f.Add(events.Table_AllocationEvents, 15, 3, kindTest.At(2), allocation("0xavs-2", "0xs1", "50", 17))
		return kind, f
	}

	t.Run("Should keep the latest allocation per set and strategy", func(t *testing.T) {
		kind, f := setup()
		rows, err := f.Resolve(kind, nil, kindTest.Genesis)
		assert.Nil(t, err)
		assert.Len(t, rows, 2)

		r := kindTest.FindRow(rows, map[string]string{"operator_set_id": "0xavs-1"})
		assert.Equal(t, "300", r["magnitude"].(decimal.Decimal).String())
		assert.Equal(t, uint64(27), r["effect_block"])
		assert.Equal(t, uint64(25), r["allocated_at_block"])
		assert.Equal(t, "0xavs", r["avs_id"])
	})

	t.Run("Should resolve as of a block", func(t *testing.T) {
		kind, f := setup()
		rows, err := f.Resolve(kind, kindTest.Block(15), kindTest.Genesis)
		assert.Nil(t, err)
		r := kindTest.FindRow(rows, map[string]string{"operator_set_id": "0xavs-1"})
		assert.Equal(t, "200", r["magnitude"].(decimal.Decimal).String())
	})

	t.Run("Should leave avs empty for a malformed operator set id", func(t *testing.T) {
		kind, err := NewAllocationsKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)
		f := kindTest.NewFixture()
		f.Add(events.Table_AllocationEvents, 1, 0, kindTest.At(1), allocation("noindex", "0xs1", "1", 1))
		rows, err := f.Resolve(kind, nil, kindTest.Genesis)
		assert.Nil(t, err)
		assert.Nil(t, rows[0]["avs_id"])
	})

	t.Run("Should key rows by operator, set and strategy", func(t *testing.T) {
		kind, f := setup()
		rows, _ := f.Resolve(kind, nil, kindTest.Genesis)
		key, ok := kind.DeriveKey(rows[0], false)
		assert.True(t, ok)
		assert.Equal(t, kindTest.Operator+"-0xavs-1-0xs1", key)
	})
}
