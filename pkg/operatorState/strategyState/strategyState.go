package strategyState

import (
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/resolvers"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

const KindName = "strategyState"

var hundred = decimal.NewFromInt(100)

// StrategyStateKind tracks the latest max and encumbered magnitude per
// strategy and the resulting utilization.
type StrategyStateKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewStrategyStateKind(km *kindManager.KindManager, l *zap.Logger) (*StrategyStateKind, error) {
	kind := &StrategyStateKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:          KindName,
			CurrentTable:  types.Table_OperatorStrategyState,
			SnapshotTable: types.Table_OperatorStrategyDailySnapshots,
			NaturalKey:    []string{"operator_id", "strategy_id"},
			ValueColumns: []string{
				"max_magnitude",
				"encumbered_magnitude",
				"utilization_rate",
				"max_magnitude_updated_block",
				"encumbered_magnitude_updated_block",
				"last_updated_at",
			},
			Tables: []string{
				events.Table_MaxMagnitudeUpdatedEvents,
				events.Table_EncumberedMagnitudeUpdatedEvents,
			},
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("strategy_id", storage.ReferenceTable_Strategies, false).
			AddDecimalField("max_magnitude", false).
			AddDecimalField("encumbered_magnitude", false).
			AddDecimalField("utilization_rate", false).
			AddTimestampField("last_updated_at", false),
	}
	if err := km.RegisterKind(kind, 0); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *StrategyStateKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *StrategyStateKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	maxes, err := events.DecodeAll[events.MaxMagnitudePayload](evs.Get(events.Table_MaxMagnitudeUpdatedEvents))
	if err != nil {
		return nil, err
	}
	encumbered, err := events.DecodeAll[events.EncumberedMagnitudePayload](evs.Get(events.Table_EncumberedMagnitudeUpdatedEvents))
	if err != nil {
		return nil, err
	}

	maxItems := make([]*resolvers.Keyed[decimal.Decimal], 0, len(maxes))
	for _, m := range maxes {
		v, err := decimal.NewFromString(m.Payload.MaxMagnitude.String())
		if err != nil {
			k.Logger.Sugar().Warnw("Invalid max magnitude",
				zap.String("operatorId", rc.OperatorId),
				zap.String("strategyId", m.Payload.StrategyId),
				zap.Error(err),
			)
			continue
		}
		maxItems = append(maxItems, &resolvers.Keyed[decimal.Decimal]{Key: m.Payload.StrategyId, Event: m.Event, Value: v})
	}
	encItems := make([]*resolvers.Keyed[decimal.Decimal], 0, len(encumbered))
	for _, e := range encumbered {
		v, err := decimal.NewFromString(e.Payload.EncumberedMagnitude.String())
		if err != nil {
			k.Logger.Sugar().Warnw("Invalid encumbered magnitude",
				zap.String("operatorId", rc.OperatorId),
				zap.String("strategyId", e.Payload.StrategyId),
				zap.Error(err),
			)
			continue
		}
		encItems = append(encItems, &resolvers.Keyed[decimal.Decimal]{Key: e.Payload.StrategyId, Event: e.Event, Value: v})
	}

	latestMax := resolvers.LatestWins(maxItems)
	latestEnc := resolvers.LatestWins(encItems)

	strategies := orderedmap.New[string, struct{}]()
	for pair := latestMax.Oldest(); pair != nil; pair = pair.Next() {
		strategies.Set(pair.Key, struct{}{})
	}
	for pair := latestEnc.Oldest(); pair != nil; pair = pair.Next() {
		strategies.Set(pair.Key, struct{}{})
	}

	rows := make([]storage.Row, 0, strategies.Len())
	for pair := strategies.Oldest(); pair != nil; pair = pair.Next() {
		strategyId := pair.Key
		row := base.NewRow(rc.OperatorId)
		row["strategy_id"] = strategyId

		maxMagnitude := decimal.Zero
		encMagnitude := decimal.Zero
		var lastUpdated time.Time
		row["max_magnitude_updated_block"] = nil
		row["encumbered_magnitude_updated_block"] = nil

		if m, ok := latestMax.Get(strategyId); ok {
			maxMagnitude = m.Value
			row["max_magnitude_updated_block"] = m.Event.BlockNumber
			lastUpdated = m.Event.Timestamp()
		}
		if e, ok := latestEnc.Get(strategyId); ok {
			encMagnitude = e.Value
			row["encumbered_magnitude_updated_block"] = e.Event.BlockNumber
			if e.Event.Timestamp().After(lastUpdated) {
				lastUpdated = e.Event.Timestamp()
			}
		}

		utilization := decimal.Zero
		if maxMagnitude.IsPositive() {
			utilization = encMagnitude.Div(maxMagnitude).Mul(hundred).Round(4)
		}

		row["max_magnitude"] = maxMagnitude
		row["encumbered_magnitude"] = encMagnitude
		row["utilization_rate"] = utilization
		row["last_updated_at"] = lastUpdated
		rows = append(rows, row)
	}
	return rows, nil
}
