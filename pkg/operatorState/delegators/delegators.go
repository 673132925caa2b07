package delegators

import (
	"sort"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/resolvers"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "delegators"

var Tables = []string{
	events.Table_StakerDelegationEvents,
	events.Table_StakerForceUndelegatedEvents,
}

// DelegationChange is a delegation, undelegation or forced undelegation of a
// staker, in chain order.
type DelegationChange struct {
	StakerId       string
	DelegationType string
	Event          *events.Event
}

func (d *DelegationChange) IsDelegated() bool {
	return d.DelegationType == events.DelegationType_Delegated
}

func DecodeDelegationChanges(evs *events.EventSet) ([]*DelegationChange, error) {
	delegations, err := events.DecodeAll[events.StakerDelegationPayload](evs.Get(events.Table_StakerDelegationEvents))
	if err != nil {
		return nil, err
	}
	forced, err := events.DecodeAll[events.StakerForceUndelegatedPayload](evs.Get(events.Table_StakerForceUndelegatedEvents))
	if err != nil {
		return nil, err
	}

	changes := make([]*DelegationChange, 0, len(delegations)+len(forced))
	for _, d := range delegations {
		changes = append(changes, &DelegationChange{StakerId: d.Payload.StakerId, DelegationType: d.Payload.DelegationType, Event: d.Event})
	}
	for _, f := range forced {
		changes = append(changes, &DelegationChange{StakerId: f.Payload.StakerId, DelegationType: events.DelegationType_ForceUndelegated, Event: f.Event})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Event.Before(changes[j].Event)
	})
	return changes, nil
}

// LatestByStaker resolves the current delegation status of every staker.
func LatestByStaker(changes []*DelegationChange) map[string]*DelegationChange {
	items := make([]*resolvers.Keyed[*DelegationChange], 0, len(changes))
	for _, c := range changes {
		items = append(items, &resolvers.Keyed[*DelegationChange]{Key: c.StakerId, Event: c.Event, Value: c})
	}
	out := make(map[string]*DelegationChange)
	for _, item := range resolvers.Values(resolvers.LatestWins(items)) {
		out[item.Key] = item.Value
	}
	return out
}

type DelegatorsKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewDelegatorsKind(km *kindManager.KindManager, l *zap.Logger) (*DelegatorsKind, error) {
	kind := &DelegatorsKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorDelegators,
			NaturalKey:   []string{"operator_id", "staker_id"},
			ValueColumns: []string{"delegation_status", "is_delegated", "delegated_at", "undelegated_at", "last_changed_block"},
			Tables:       Tables,
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("staker_id", storage.ReferenceTable_Stakers, false).
			AddTimestampField("delegated_at", true).
			AddTimestampField("undelegated_at", true).
			AddStringField("delegation_status", false),
	}
	if err := km.RegisterKind(kind, 4); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *DelegatorsKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *DelegatorsKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	changes, err := DecodeDelegationChanges(evs)
	if err != nil {
		return nil, err
	}

	firstDelegated := make(map[string]*DelegationChange)
	order := make([]string, 0)
	seen := make(map[string]struct{})
	for _, c := range changes {
		if _, ok := seen[c.StakerId]; !ok {
			seen[c.StakerId] = struct{}{}
			order = append(order, c.StakerId)
		}
		if c.IsDelegated() {
			if _, ok := firstDelegated[c.StakerId]; !ok {
				firstDelegated[c.StakerId] = c
			}
		}
	}
	latest := LatestByStaker(changes)

	rows := make([]storage.Row, 0, len(order))
	for _, stakerId := range order {
		last := latest[stakerId]
		row := base.NewRow(rc.OperatorId)
		row["staker_id"] = stakerId
		row["delegation_status"] = last.DelegationType
		row["is_delegated"] = last.IsDelegated()
		row["last_changed_block"] = last.Event.BlockNumber
		row["delegated_at"] = nil
		if first, ok := firstDelegated[stakerId]; ok {
			row["delegated_at"] = first.Event.Timestamp()
		}
		row["undelegated_at"] = nil
		if !last.IsDelegated() {
			row["undelegated_at"] = last.Event.Timestamp()
		}
		rows = append(rows, row)
	}
	return rows, nil
}
