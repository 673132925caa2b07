package avsAllocationSummary

import (
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/allocations"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

const KindName = "avsAllocationSummary"

type summary struct {
	avsId         string
	strategyId    string
	total         decimal.Decimal
	operatorSets  map[string]struct{}
	lastAllocated time.Time
	lastBlock     uint64
}

// AvsAllocationSummaryKind groups the latest allocations by (avs, strategy).
type AvsAllocationSummaryKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewAvsAllocationSummaryKind(km *kindManager.KindManager, l *zap.Logger) (*AvsAllocationSummaryKind, error) {
	kind := &AvsAllocationSummaryKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorAvsAllocationSummary,
			NaturalKey:   []string{"operator_id", "avs_id", "strategy_id"},
			ValueColumns: []string{"total_magnitude", "operator_set_count", "last_allocated_at", "last_allocated_block"},
			Tables:       []string{events.Table_AllocationEvents},
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("avs_id", storage.ReferenceTable_Avs, false).
			AddReferenceField("strategy_id", storage.ReferenceTable_Strategies, false).
			AddDecimalField("total_magnitude", false).
			AddTimestampField("last_allocated_at", false),
	}
	if err := km.RegisterKind(kind, 11); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *AvsAllocationSummaryKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *AvsAllocationSummaryKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	latest, err := allocations.LatestAllocations(evs.Get(events.Table_AllocationEvents), k.Logger)
	if err != nil {
		return nil, err
	}

	groups := orderedmap.New[string, *summary]()
	for _, a := range latest {
		if a.AvsId == "" {
			continue
		}
		key := a.AvsId + "|" + a.StrategyId
		s, ok := groups.Get(key)
		if !ok {
			s = &summary{
				avsId:        a.AvsId,
				strategyId:   a.StrategyId,
				total:        decimal.Zero,
				operatorSets: make(map[string]struct{}),
			}
			groups.Set(key, s)
		}
		if a.Magnitude.IsPositive() {
			s.total = s.total.Add(a.Magnitude)
			s.operatorSets[a.OperatorSetId] = struct{}{}
		}
		if a.Event.BlockNumber >= s.lastBlock {
			s.lastBlock = a.Event.BlockNumber
			s.lastAllocated = a.Event.Timestamp()
		}
	}

	rows := make([]storage.Row, 0, groups.Len())
	for pair := groups.Oldest(); pair != nil; pair = pair.Next() {
		s := pair.Value
		row := base.NewRow(rc.OperatorId)
		row["avs_id"] = s.avsId
		row["strategy_id"] = s.strategyId
		row["total_magnitude"] = s.total
		row["operator_set_count"] = uint64(len(s.operatorSets))
		row["last_allocated_at"] = s.lastAllocated
		row["last_allocated_block"] = s.lastBlock
		rows = append(rows, row)
	}
	return rows, nil
}
