package scoring

import (
	"context"
	"math"

	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// assumed until delegation history feeds a growth measure
const defaultGrowthScore = 70

func SlashingScore(slashCount uint64) float64 {
	return math.Max(0, 100-25*float64(slashCount))
}

// CommissionScore favours PI splits between 5% and 15%.
func CommissionScore(bips *uint64) float64 {
	if bips == nil {
		return DefaultComponentScore
	}
	switch rate := *bips; {
	case rate >= 500 && rate <= 1500:
		return 100
	case rate < 500:
		return 70
	case rate <= 2500:
		return 60
	default:
		return 25
	}
}

func PerformanceScore(slashCount uint64, volatility float64, operationalDays uint64) float64 {
	stability := 100 / (1 + volatility)
	tenure := math.Min(100, float64(operationalDays)/365*100)
	return SlashingScore(slashCount)*0.6 + stability*0.3 + tenure*0.1
}

func concentrationScore(hhi decimal.Decimal) float64 {
	return math.Max(0, 100-hhi.InexactFloat64()*100)
}

func EconomicScore(hhi decimal.Decimal, commissionBips *uint64) float64 {
	return concentrationScore(hhi)*0.5 + CommissionScore(commissionBips)*0.3 + defaultGrowthScore*0.2
}

func NetworkScore(totalStake decimal.Decimal, hhi decimal.Decimal) float64 {
	size := math.Min(100, math.Log10(math.Max(1, totalStake.InexactFloat64()))*20)
	return size*0.7 + concentrationScore(hhi)*0.3
}

// DelegatedStake sums shares per delegated staker across strategies.
func DelegatedStake(rows []storage.Row) []decimal.Decimal {
	byStaker := orderedmap.New[string, decimal.Decimal]()
	for _, row := range rows {
		if delegated, _ := row.Bool("is_delegated"); !delegated {
			continue
		}
		staker, ok := row.String("staker_id")
		if !ok {
			continue
		}
		shares, ok := row.Decimal("shares")
		if !ok || !shares.IsPositive() {
			continue
		}
		current, _ := byStaker.Get(staker)
		byStaker.Set(staker, current.Add(shares))
	}
	out := make([]decimal.Decimal, 0, byStaker.Len())
	for pair := byStaker.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// InputsFromState builds score inputs from a folded operator state and the
// per-staker delegated stake. Economic and network components are left
// missing when nothing is delegated.
func InputsFromState(state *storage.OperatorState, stake []decimal.Decimal) *Inputs {
	in := &Inputs{
		OperationalDays: state.OperationalDays,
		DelegatorCount:  state.ActiveDelegators,
	}

	volatility := 0.0
	conc, ok := ComputeConcentration(stake)
	if ok {
		if conc.TotalEntities >= 2 {
			volatility = conc.CoefficientOfVariation * 0.8
		}
		economic := EconomicScore(conc.Hhi, state.CurrentPiSplitBips)
		network := NetworkScore(conc.TotalAmount, conc.Hhi)
		in.Economic = &economic
		in.Network = &network
	}
	performance := PerformanceScore(state.TotalSlashEvents, volatility, state.OperationalDays)
	in.Performance = &performance
	return in
}

type Scorer struct {
	store  storage.StateStore
	logger *zap.Logger
}

func NewScorer(store storage.StateStore, l *zap.Logger) *Scorer {
	return &Scorer{
		store:  store,
		logger: l,
	}
}

func (s *Scorer) ScoreOperator(ctx context.Context, state *storage.OperatorState) (*Score, error) {
	rows, err := s.store.ListRows(ctx, types.Table_OperatorDelegatorShares, state.OperatorId)
	if err != nil {
		return nil, xerrors.Errorf("failed to load delegator shares for %s: %w", state.OperatorId, err)
	}
	score := Compute(InputsFromState(state, DelegatedStake(rows)))
	s.logger.Sugar().Debugw("Scored operator",
		zap.String("operatorId", state.OperatorId),
		zap.Float64("score", score.Value),
		zap.String("level", string(score.Level)),
		zap.Float64("confidence", score.Confidence),
	)
	return score, nil
}
