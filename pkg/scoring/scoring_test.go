package scoring

import (
	"context"
	"testing"

	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/storage/memoryStore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func f64(v float64) *float64 {
	return &v
}

func u64(v uint64) *uint64 {
	return &v
}

func decimals(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		out = append(out, decimal.RequireFromString(v))
	}
	return out
}

func Test_Compute(t *testing.T) {
	t.Run("Should default missing components to 50", func(t *testing.T) {
		score := Compute(&Inputs{})
		assert.Equal(t, 50.0, score.Value)
		assert.Equal(t, RiskLevel_High, score.Level)
		assert.Equal(t, 50.0, score.Economic)
	})
	t.Run("Should weight the components", func(t *testing.T) {
		score := Compute(&Inputs{Performance: f64(90), Economic: f64(80), Network: f64(70)})
		assert.Equal(t, 83.5, score.Value)
		assert.Equal(t, RiskLevel_Low, score.Level)
	})
	t.Run("Should round to two places", func(t *testing.T) {
		score := Compute(&Inputs{Performance: f64(33.333), Economic: f64(0), Network: f64(0)})
		assert.Equal(t, 16.67, score.Value)
		assert.Equal(t, RiskLevel_Critical, score.Level)
	})
	t.Run("Should clamp components into range", func(t *testing.T) {
		score := Compute(&Inputs{Performance: f64(150), Economic: f64(-10), Network: f64(100)})
		assert.Equal(t, 100.0, score.Performance)
		assert.Equal(t, 0.0, score.Economic)
		assert.Equal(t, 65.0, score.Value)
	})
}

func Test_LevelFor(t *testing.T) {
	t.Run("Should bucket on inclusive lower bounds", func(t *testing.T) {
		assert.Equal(t, RiskLevel_Low, LevelFor(80))
		assert.Equal(t, RiskLevel_Medium, LevelFor(79.99))
		assert.Equal(t, RiskLevel_Medium, LevelFor(60))
		assert.Equal(t, RiskLevel_High, LevelFor(40))
		assert.Equal(t, RiskLevel_Critical, LevelFor(39.99))
	})
}

func Test_Confidence(t *testing.T) {
	t.Run("Should combine tenure, delegators and recency", func(t *testing.T) {
		assert.Equal(t, 30.0, Confidence(0, 0))
		assert.Equal(t, 55.0, Confidence(15, 2))
		assert.Equal(t, 90.0, Confidence(60, 10))
	})
}

func Test_Concentration(t *testing.T) {
	t.Run("Should compute HHI from fractions", func(t *testing.T) {
		fractions, total := Fractions(decimals("100", "300"))
		assert.True(t, total.Equal(decimal.NewFromInt(400)))
		assert.True(t, HerfindahlHirschmanIndex(fractions).Equal(decimal.RequireFromString("0.625")))
		assert.True(t, HerfindahlHirschmanIndex(decimals("1")).Equal(decimal.NewFromInt(1)))
	})
	t.Run("Should use the sample standard deviation", func(t *testing.T) {
		assert.InDelta(t, 0.70710678, CoefficientOfVariation(decimals("1", "3")), 1e-8)
		assert.Equal(t, 0.0, CoefficientOfVariation(decimals("5")))
		assert.Equal(t, 0.0, CoefficientOfVariation(decimals("0", "0")))
	})
	t.Run("Should sum the largest shares", func(t *testing.T) {
		fractions := decimals("0.1", "0.6", "0.3")
		assert.True(t, TopNShare(fractions, 1).Equal(decimal.RequireFromString("0.6")))
		assert.True(t, TopNShare(fractions, 5).Equal(decimal.NewFromInt(1)))
		assert.Equal(t, "0.3", fractions[2].String())
	})
	t.Run("Should summarise a distribution", func(t *testing.T) {
		conc, ok := ComputeConcentration(decimals("100", "300"))
		assert.True(t, ok)
		assert.True(t, conc.Top1Percentage.Equal(decimal.NewFromInt(75)))
		assert.True(t, conc.EffectiveEntities.Equal(decimal.RequireFromString("1.6")))
		assert.Equal(t, 2, conc.TotalEntities)

		_, ok = ComputeConcentration(nil)
		assert.False(t, ok)
		_, ok = ComputeConcentration(decimals("0", "0"))
		assert.False(t, ok)
	})
}

func Test_Components(t *testing.T) {
	t.Run("Should score commission bands", func(t *testing.T) {
		assert.Equal(t, 50.0, CommissionScore(nil))
		assert.Equal(t, 70.0, CommissionScore(u64(100)))
		assert.Equal(t, 100.0, CommissionScore(u64(1000)))
		assert.Equal(t, 60.0, CommissionScore(u64(2000)))
		assert.Equal(t, 25.0, CommissionScore(u64(5000)))
	})
	t.Run("Should floor the slashing score at zero", func(t *testing.T) {
		assert.Equal(t, 75.0, SlashingScore(1))
		assert.Equal(t, 0.0, SlashingScore(5))
	})
	t.Run("Should sum delegated stake per staker", func(t *testing.T) {
		rows := []storage.Row{
			{"staker_id": "a", "strategy_id": "s1", "shares": decimal.NewFromInt(10), "is_delegated": true},
			{"staker_id": "a", "strategy_id": "s2", "shares": "5", "is_delegated": true},
			{"staker_id": "b", "strategy_id": "s1", "shares": decimal.NewFromInt(100), "is_delegated": false},
			{"staker_id": "c", "strategy_id": "s1", "shares": decimal.Zero, "is_delegated": true},
		}
		stake := DelegatedStake(rows)
		assert.Len(t, stake, 1)
		assert.True(t, stake[0].Equal(decimal.NewFromInt(15)))
	})
	t.Run("Should leave economic and network missing without stake", func(t *testing.T) {
		in := InputsFromState(&storage.OperatorState{OperatorId: "op"}, nil)
		assert.Nil(t, in.Economic)
		assert.Nil(t, in.Network)
		assert.Equal(t, 90.0, *in.Performance)
	})
}

func Test_Scorer(t *testing.T) {
	t.Run("Should score an operator from its delegator shares", func(t *testing.T) {
		ctx := context.Background()
		store := memoryStore.NewMemoryStore()
		spec := &storage.UpsertSpec{
			Table:           types.Table_OperatorDelegatorShares,
			ConflictColumns: []string{"operator_id", "staker_id", "strategy_id"},
			UpdateColumns:   []string{"shares", "is_delegated"},
		}
		for _, staker := range []string{"a", "b"} {
			_, err := store.Upsert(ctx, spec, storage.Row{
				"operator_id":  "op",
				"staker_id":    staker,
				"strategy_id":  "s1",
				"shares":       decimal.NewFromInt(100),
				"is_delegated": true,
			})
			assert.Nil(t, err)
		}

		scorer := NewScorer(store, zap.NewNop())
		score, err := scorer.ScoreOperator(ctx, &storage.OperatorState{
			OperatorId:         "op",
			OperationalDays:    400,
			ActiveDelegators:   2,
			CurrentPiSplitBips: u64(1000),
		})
		assert.Nil(t, err)
		assert.Equal(t, 100.0, score.Performance)
		assert.Equal(t, 69.0, score.Economic)
		assert.Equal(t, 81.23, score.Value)
		assert.Equal(t, RiskLevel_Low, score.Level)
		assert.Equal(t, 80.0, score.Confidence)
	})
}
