package dailySnapshot

import (
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/allocations"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/commissionRates"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/delegators"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "dailySnapshot"

// DailySnapshotKind folds every event table into one headline row per
// operator per day. It has no current table.
type DailySnapshotKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewDailySnapshotKind(km *kindManager.KindManager, l *zap.Logger) (*DailySnapshotKind, error) {
	kind := &DailySnapshotKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:          KindName,
			SnapshotTable: types.Table_OperatorDailySnapshots,
			NaturalKey:    []string{"operator_id"},
			ValueColumns: []string{
				"delegator_count",
				"active_avs_count",
				"active_operator_set_count",
				"pi_split_bips",
				"slash_event_count_to_date",
				"operational_days",
				"is_registered",
			},
			Tables: events.DefaultEventTables,
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false),
	}
	if err := km.RegisterKind(kind, 17); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *DailySnapshotKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *DailySnapshotKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	if evs.Count() == 0 {
		return []storage.Row{}, nil
	}

	delegatorCount, err := countDelegators(evs)
	if err != nil {
		return nil, err
	}
	activeAvs, err := countActiveAvs(evs)
	if err != nil {
		return nil, err
	}
	activeSets, err := countActiveOperatorSets(evs, k.Logger)
	if err != nil {
		return nil, err
	}
	piSplit, err := activePiSplit(evs, rc.AsOf)
	if err != nil {
		return nil, err
	}

	row := base.NewRow(rc.OperatorId)
	row["delegator_count"] = delegatorCount
	row["active_avs_count"] = activeAvs
	row["active_operator_set_count"] = activeSets
	row["pi_split_bips"] = piSplit
	row["slash_event_count_to_date"] = uint64(len(evs.Get(events.Table_OperatorSlashedEvents)))
	row["operational_days"] = operationalDays(evs, rc.AsOf)
	row["is_registered"] = len(evs.Get(events.Table_OperatorRegisteredEvents)) > 0
	return []storage.Row{row}, nil
}

func countDelegators(evs *events.EventSet) (uint64, error) {
	changes, err := delegators.DecodeDelegationChanges(evs)
	if err != nil {
		return 0, err
	}
	count := uint64(0)
	for _, c := range delegators.LatestByStaker(changes) {
		if c.IsDelegated() {
			count++
		}
	}
	return count, nil
}

func countActiveAvs(evs *events.EventSet) (uint64, error) {
	statuses, err := events.DecodeAll[events.AvsRegistrationStatusPayload](evs.Get(events.Table_OperatorAvsRegistrationStatusEvents))
	if err != nil {
		return 0, err
	}
	// events arrive in chain order
	latest := make(map[string]string)
	for _, s := range statuses {
		latest[s.Payload.AvsId] = s.Payload.Status
	}
	count := uint64(0)
	for _, status := range latest {
		if status == events.RegistrationStatus_Registered {
			count++
		}
	}
	return count, nil
}

func countActiveOperatorSets(evs *events.EventSet, l *zap.Logger) (uint64, error) {
	latest, err := allocations.LatestAllocations(evs.Get(events.Table_AllocationEvents), l)
	if err != nil {
		return 0, err
	}
	sets := make(map[string]struct{})
	for _, a := range latest {
		if a.Magnitude.IsPositive() {
			sets[a.OperatorSetId] = struct{}{}
		}
	}
	return uint64(len(sets)), nil
}

func activePiSplit(evs *events.EventSet, asOf time.Time) (interface{}, error) {
	changes, err := commissionRates.DecodeChanges(evs)
	if err != nil {
		return nil, err
	}
	for _, r := range commissionRates.ResolveRates(changes, asOf) {
		if r.CommissionType == types.CommissionType_PI && r.Current != nil {
			return r.Current.NewBips, nil
		}
	}
	return nil, nil
}

// operationalDays counts whole days from the operator's earliest event to
// asOf.
func operationalDays(evs *events.EventSet, asOf time.Time) uint64 {
	var first *events.Event
	for _, table := range events.DefaultEventTables {
		for _, e := range evs.Get(table) {
			if first == nil || e.Before(first) {
				first = e
			}
		}
	}
	if first == nil || !asOf.After(first.Timestamp()) {
		return 0
	}
	return uint64(asOf.Sub(first.Timestamp()) / (24 * time.Hour))
}
