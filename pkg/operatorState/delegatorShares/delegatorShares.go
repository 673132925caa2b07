package delegatorShares

import (
	"strings"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/delegators"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/resolvers"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const KindName = "delegatorShares"

// DelegatorSharesKind nets share deltas per (staker, strategy). Only positive
// balances produce rows.
type DelegatorSharesKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewDelegatorSharesKind(km *kindManager.KindManager, l *zap.Logger) (*DelegatorSharesKind, error) {
	kind := &DelegatorSharesKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:          KindName,
			CurrentTable:  types.Table_OperatorDelegatorShares,
			SnapshotTable: types.Table_OperatorDelegatorSharesSnapshots,
			NaturalKey:    []string{"operator_id", "staker_id", "strategy_id"},
			ValueColumns:  []string{"shares", "is_delegated", "last_changed_block", "last_changed_at"},
			Tables: append([]string{
				events.Table_OperatorShareEvents,
			}, delegators.Tables...),
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("staker_id", storage.ReferenceTable_Stakers, false).
			AddReferenceField("strategy_id", storage.ReferenceTable_Strategies, false).
			AddDecimalField("shares", false).
			AddTimestampField("last_changed_at", false),
	}
	if err := km.RegisterKind(kind, 5); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *DelegatorSharesKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

// SignedShares returns the share delta carried by the event: DECREASED events
// are negative.
func SignedShares(p *events.OperatorSharePayload) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(p.Shares.String())
	if err != nil {
		return decimal.Zero, err
	}
	if strings.EqualFold(p.EventType, events.ShareEventType_Decreased) {
		return amount.Abs().Neg(), nil
	}
	return amount, nil
}

func (k *DelegatorSharesKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	shares, err := events.DecodeAll[events.OperatorSharePayload](evs.Get(events.Table_OperatorShareEvents))
	if err != nil {
		return nil, err
	}
	changes, err := delegators.DecodeDelegationChanges(evs)
	if err != nil {
		return nil, err
	}
	latestDelegation := delegators.LatestByStaker(changes)

	type pair struct {
		stakerId   string
		strategyId string
	}
	pairs := make(map[string]pair)
	deltas := make([]*resolvers.Keyed[decimal.Decimal], 0, len(shares))
	for _, s := range shares {
		amount, err := SignedShares(s.Payload)
		if err != nil {
			k.Logger.Sugar().Warnw("Invalid share amount",
				zap.String("operatorId", rc.OperatorId),
				zap.String("stakerId", s.Payload.StakerId),
				zap.String("strategyId", s.Payload.StrategyId),
				zap.Error(err),
			)
			continue
		}
		key := s.Payload.StakerId + "|" + s.Payload.StrategyId
		pairs[key] = pair{stakerId: s.Payload.StakerId, strategyId: s.Payload.StrategyId}
		deltas = append(deltas, &resolvers.Keyed[decimal.Decimal]{Key: key, Event: s.Event, Value: amount})
	}

	balances := resolvers.RunningBalance(deltas)
	rows := make([]storage.Row, 0, balances.Len())
	for b := balances.Oldest(); b != nil; b = b.Next() {
		p := pairs[b.Key]
		isDelegated := true
		if d, ok := latestDelegation[p.stakerId]; ok {
			isDelegated = d.IsDelegated()
		}
		row := base.NewRow(rc.OperatorId)
		row["staker_id"] = p.stakerId
		row["strategy_id"] = p.strategyId
		row["shares"] = b.Value.Amount
		row["is_delegated"] = isDelegated
		row["last_changed_block"] = b.Value.LastEvent.BlockNumber
		row["last_changed_at"] = b.Value.LastEvent.Timestamp()
		rows = append(rows, row)
	}
	return rows, nil
}
