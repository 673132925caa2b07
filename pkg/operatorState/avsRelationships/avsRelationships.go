package avsRelationships

import (
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/allocations"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/registrationIntervals"
	"github.com/Layr-Labs/operator-state/pkg/resolvers"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

const KindName = "avsRelationships"

// AvsRelationshipsKind reports, per AVS, the registration status and the
// cumulative time spent registered, enriched with allocation and commission
// data bounded by the same block.
type AvsRelationshipsKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewAvsRelationshipsKind(km *kindManager.KindManager, l *zap.Logger) (*AvsRelationshipsKind, error) {
	kind := &AvsRelationshipsKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:          KindName,
			CurrentTable:  types.Table_OperatorAvsRelationships,
			SnapshotTable: types.Table_OperatorAvsRelationshipSnapshots,
			NaturalKey:    []string{"operator_id", "avs_id"},
			ValueColumns: []string{
				"current_status",
				"status_changed_at",
				"status_changed_block",
				"first_registered_at",
				"last_registered_at",
				"last_unregistered_at",
				"total_registration_cycles",
				"total_days_registered",
				"current_period_days",
				"active_operator_set_count",
				"avs_commission_bips",
			},
			Tables: []string{
				events.Table_OperatorAvsRegistrationStatusEvents,
				events.Table_AllocationEvents,
				events.Table_OperatorAvsSplitBipsSetEvents,
			},
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("avs_id", storage.ReferenceTable_Avs, false).
			AddTimestampField("status_changed_at", false).
			AddTimestampField("first_registered_at", true).
			AddTimestampField("last_registered_at", true).
			AddTimestampField("last_unregistered_at", true).
			AddDecimalField("total_days_registered", false).
			AddDecimalField("current_period_days", false).
			AddStringField("current_status", false),
	}
	if err := km.RegisterKind(kind, 2); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *AvsRelationshipsKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *AvsRelationshipsKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	statuses, err := events.DecodeAll[events.AvsRegistrationStatusPayload](evs.Get(events.Table_OperatorAvsRegistrationStatusEvents))
	if err != nil {
		return nil, err
	}

	changesByAvs := orderedmap.New[string, []*registrationIntervals.StatusChange]()
	for _, s := range statuses {
		changes, _ := changesByAvs.Get(s.Payload.AvsId)
		changesByAvs.Set(s.Payload.AvsId, append(changes, &registrationIntervals.StatusChange{
			Status:      s.Payload.Status,
			At:          s.Event.Timestamp(),
			BlockNumber: s.Event.BlockNumber,
			LogIndex:    s.Event.LogIndex,
		}))
	}

	activeSets, err := activeOperatorSetsByAvs(evs, k.Logger)
	if err != nil {
		return nil, err
	}
	commissions, err := activeAvsCommissions(rc, evs)
	if err != nil {
		return nil, err
	}

	rows := make([]storage.Row, 0, changesByAvs.Len())
	for pair := changesByAvs.Oldest(); pair != nil; pair = pair.Next() {
		avsId := pair.Key
		summary := registrationIntervals.Summarize(pair.Value, rc.AsOf)
		if summary == nil {
			continue
		}
		row := base.NewRow(rc.OperatorId)
		row["avs_id"] = avsId
		row["current_status"] = summary.CurrentStatus
		row["status_changed_at"] = summary.StatusChangedAt
		row["status_changed_block"] = summary.StatusChangedBlock
		row["first_registered_at"] = summary.FirstRegisteredAt
		row["last_registered_at"] = summary.LastRegisteredAt
		row["last_unregistered_at"] = summary.LastUnregisteredAt
		row["total_registration_cycles"] = summary.TotalRegistrationCycles
		row["total_days_registered"] = summary.TotalDaysRegistered
		row["current_period_days"] = summary.CurrentPeriodDays
		row["active_operator_set_count"] = uint64(activeSets[avsId])
		if bips, ok := commissions[avsId]; ok {
			row["avs_commission_bips"] = bips
		} else {
			row["avs_commission_bips"] = nil
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// activeOperatorSetsByAvs counts operator sets with a positive latest
// allocation in any strategy.
func activeOperatorSetsByAvs(evs *events.EventSet, l *zap.Logger) (map[string]int, error) {
	latest, err := allocations.LatestAllocations(evs.Get(events.Table_AllocationEvents), l)
	if err != nil {
		return nil, err
	}
	sets := make(map[string]map[string]struct{})
	for _, a := range latest {
		if a.AvsId == "" || !a.Magnitude.IsPositive() {
			continue
		}
		if _, ok := sets[a.AvsId]; !ok {
			sets[a.AvsId] = make(map[string]struct{})
		}
		sets[a.AvsId][a.OperatorSetId] = struct{}{}
	}
	counts := make(map[string]int, len(sets))
	for avs, s := range sets {
		counts[avs] = len(s)
	}
	return counts, nil
}

// activeAvsCommissions returns the latest AVS split already activated at AsOf.
func activeAvsCommissions(rc *types.ResolveContext, evs *events.EventSet) (map[string]uint64, error) {
	splits, err := events.DecodeAll[events.AvsSplitPayload](evs.Get(events.Table_OperatorAvsSplitBipsSetEvents))
	if err != nil {
		return nil, err
	}
	items := make([]*resolvers.Keyed[uint64], 0, len(splits))
	for _, s := range splits {
		if s.Payload.ActivatedAt > rc.AsOf.Unix() {
			continue
		}
		items = append(items, &resolvers.Keyed[uint64]{Key: s.Payload.AvsId, Event: s.Event, Value: s.Payload.NewBips})
	}
	out := make(map[string]uint64)
	for _, item := range resolvers.Values(resolvers.LatestWins(items)) {
		out[item.Key] = item.Value
	}
	return out, nil
}
