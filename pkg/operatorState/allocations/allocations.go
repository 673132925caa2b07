package allocations

import (
	"fmt"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/resolvers"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const KindName = "allocations"

type AllocationsKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewAllocationsKind(km *kindManager.KindManager, l *zap.Logger) (*AllocationsKind, error) {
	kind := &AllocationsKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:          KindName,
			CurrentTable:  types.Table_OperatorAllocations,
			SnapshotTable: types.Table_OperatorAllocationSnapshots,
			NaturalKey:    []string{"operator_id", "operator_set_id", "strategy_id"},
			ValueColumns:  []string{"avs_id", "magnitude", "effect_block", "allocated_at", "allocated_at_block"},
			Tables:        []string{events.Table_AllocationEvents},
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("avs_id", storage.ReferenceTable_Avs, false).
			AddReferenceField("operator_set_id", storage.ReferenceTable_OperatorSets, false).
			AddReferenceField("strategy_id", storage.ReferenceTable_Strategies, false).
			AddDecimalField("magnitude", false).
			AddTimestampField("allocated_at", false),
	}
	if err := km.RegisterKind(kind, 1); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *AllocationsKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

// Allocation is the latest allocation for one (operator set, strategy).
type Allocation struct {
	OperatorSetId string
	AvsId         string
	StrategyId    string
	Magnitude     decimal.Decimal
	EffectBlock   uint64
	Event         *events.Event
}

// LatestAllocations resolves allocation events to the latest per
// (operator set, strategy). It is shared with kinds that summarize
// allocations so that every one of them sees the same resolution.
func LatestAllocations(evs []*events.Event, l *zap.Logger) ([]*Allocation, error) {
	decoded, err := events.DecodeAll[events.AllocationPayload](evs)
	if err != nil {
		return nil, err
	}
	items := make([]*resolvers.Keyed[*Allocation], 0, len(decoded))
	for _, d := range decoded {
		magnitude, err := decimal.NewFromString(d.Payload.Magnitude.String())
		if err != nil {
			l.Sugar().Warnw("Invalid allocation magnitude",
				zap.String("operatorId", d.Event.OperatorId),
				zap.String("operatorSetId", d.Payload.OperatorSetId),
				zap.Error(err),
			)
			continue
		}
		avsId := ""
		if parsed, _, err := validation.ParseOperatorSetId(d.Payload.OperatorSetId); err == nil {
			avsId = parsed
		}
		items = append(items, &resolvers.Keyed[*Allocation]{
			Key:   fmt.Sprintf("%s|%s", d.Payload.OperatorSetId, d.Payload.StrategyId),
			Event: d.Event,
			Value: &Allocation{
				OperatorSetId: d.Payload.OperatorSetId,
				AvsId:         avsId,
				StrategyId:    d.Payload.StrategyId,
				Magnitude:     magnitude,
				EffectBlock:   d.Payload.EffectBlock,
				Event:         d.Event,
			},
		})
	}
	latest := resolvers.Values(resolvers.LatestWins(items))
	out := make([]*Allocation, 0, len(latest))
	for _, item := range latest {
		out = append(out, item.Value)
	}
	return out, nil
}

func (k *AllocationsKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	allocations, err := LatestAllocations(evs.Get(events.Table_AllocationEvents), k.Logger)
	if err != nil {
		return nil, err
	}
	rows := make([]storage.Row, 0, len(allocations))
	for _, a := range allocations {
		row := base.NewRow(rc.OperatorId)
		row["operator_set_id"] = a.OperatorSetId
		row["strategy_id"] = a.StrategyId
		row["magnitude"] = a.Magnitude
		row["effect_block"] = a.EffectBlock
		row["allocated_at"] = a.Event.Timestamp()
		row["allocated_at_block"] = a.Event.BlockNumber
		if a.AvsId != "" {
			row["avs_id"] = a.AvsId
		} else {
			row["avs_id"] = nil
		}
		rows = append(rows, row)
	}
	return rows, nil
}
