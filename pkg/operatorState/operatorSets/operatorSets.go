package operatorSets

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

const KindName = "operatorSets"

type membershipChange struct {
	operatorSetId string
	added         bool
	event         *events.Event
}

type OperatorSetsKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewOperatorSetsKind(km *kindManager.KindManager, l *zap.Logger) (*OperatorSetsKind, error) {
	kind := &OperatorSetsKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorSetMemberships,
			NaturalKey:   []string{"operator_id", "operator_set_id"},
			ValueColumns: []string{"avs_id", "is_member", "joined_at", "left_at", "last_changed_block"},
			Tables: []string{
				events.Table_OperatorAddedToOperatorSetEvents,
				events.Table_OperatorRemovedFromOperatorSetEvents,
			},
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("avs_id", storage.ReferenceTable_Avs, false).
			AddReferenceField("operator_set_id", storage.ReferenceTable_OperatorSets, false).
			AddTimestampField("joined_at", true).
			AddTimestampField("left_at", true),
	}
	if err := km.RegisterKind(kind, 10); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *OperatorSetsKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *OperatorSetsKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	added, err := events.DecodeAll[events.OperatorSetMembershipPayload](evs.Get(events.Table_OperatorAddedToOperatorSetEvents))
	if err != nil {
		return nil, err
	}
	removed, err := events.DecodeAll[events.OperatorSetMembershipPayload](evs.Get(events.Table_OperatorRemovedFromOperatorSetEvents))
	if err != nil {
		return nil, err
	}

	changes := make([]*membershipChange, 0, len(added)+len(removed))
	for _, a := range added {
		changes = append(changes, &membershipChange{operatorSetId: a.Payload.OperatorSetId, added: true, event: a.Event})
	}
	for _, r := range removed {
		changes = append(changes, &membershipChange{operatorSetId: r.Payload.OperatorSetId, added: false, event: r.Event})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].event.Before(changes[j].event)
	})

	items := make([]*resolvers.Keyed[*membershipChange], 0, len(changes))
	lastJoin := make(map[string]*events.Event)
	for _, c := range changes {
		items = append(items, &resolvers.Keyed[*membershipChange]{Key: c.operatorSetId, Event: c.event, Value: c})
		if c.added {
			lastJoin[c.operatorSetId] = c.event
		}
	}

	latest := resolvers.Values(resolvers.LatestWins(items))
	rows := make([]storage.Row, 0, len(latest))
	for _, item := range latest {
		c := item.Value
		row := base.NewRow(rc.OperatorId)
		row["operator_set_id"] = c.operatorSetId
		row["avs_id"] = nil
		if avsId, _, err := validation.ParseOperatorSetId(c.operatorSetId); err == nil {
			row["avs_id"] = avsId
		}
		row["is_member"] = c.added
		row["last_changed_block"] = c.event.BlockNumber
		row["joined_at"] = nil
		if join, ok := lastJoin[c.operatorSetId]; ok {
			row["joined_at"] = join.Timestamp()
		}
		row["left_at"] = nil
		if !c.added {
			row["left_at"] = c.event.Timestamp()
		}
		rows = append(rows, row)
	}
	return rows, nil
}
