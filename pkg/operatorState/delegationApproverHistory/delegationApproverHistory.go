package delegationApproverHistory

import (
	"sort"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "delegationApproverHistory"

const (
	Source_Registration = "REGISTRATION"
	Source_Update       = "UPDATE"
)

// ApproverChange is one setting of the operator's delegation approver.
type ApproverChange struct {
	Source      string
	OldApprover string
	NewApprover string
	Event       *events.Event
}

// DecodeApproverChanges merges the approver set at registration with later
// updates, in chain order, threading the previous approver through.
func DecodeApproverChanges(evs *events.EventSet) ([]*ApproverChange, error) {
	registered, err := events.DecodeAll[events.OperatorRegisteredPayload](evs.Get(events.Table_OperatorRegisteredEvents))
	if err != nil {
		return nil, err
	}
	updated, err := events.DecodeAll[events.DelegationApproverUpdatedPayload](evs.Get(events.Table_DelegationApproverUpdatedEvents))
	if err != nil {
		return nil, err
	}

	changes := make([]*ApproverChange, 0, len(registered)+len(updated))
	for _, r := range registered {
		changes = append(changes, &ApproverChange{Source: Source_Registration, NewApprover: r.Payload.DelegationApprover, Event: r.Event})
	}
	for _, u := range updated {
		changes = append(changes, &ApproverChange{Source: Source_Update, NewApprover: u.Payload.NewDelegationApprover, Event: u.Event})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Event.Before(changes[j].Event)
	})

	previous := ""
	for _, c := range changes {
		c.OldApprover = previous
		previous = c.NewApprover
	}
	return changes, nil
}

type DelegationApproverHistoryKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewDelegationApproverHistoryKind(km *kindManager.KindManager, l *zap.Logger) (*DelegationApproverHistoryKind, error) {
	kind := &DelegationApproverHistoryKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorDelegationApproverHistory,
			ValueColumns: []string{"old_delegation_approver", "new_delegation_approver", "change_source", "changed_at", "changed_block"},
			Tables: []string{
				events.Table_OperatorRegisteredEvents,
				events.Table_DelegationApproverUpdatedEvents,
			},
			AppendOnly: true,
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddAddressField("old_delegation_approver", true).
			AddAddressField("new_delegation_approver", true).
			AddTimestampField("changed_at", false).
			AddStringField("change_source", false).
			AddStringField("transaction_hash", false),
	}
	if err := km.RegisterKind(kind, 16); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *DelegationApproverHistoryKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *DelegationApproverHistoryKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	changes, err := DecodeApproverChanges(evs)
	if err != nil {
		return nil, err
	}
	rows := make([]storage.Row, 0, len(changes))
	for _, c := range changes {
		row := base.EventRow(c.Event)
		row["old_delegation_approver"] = nilIfEmpty(c.OldApprover)
		row["new_delegation_approver"] = nilIfEmpty(c.NewApprover)
		row["change_source"] = c.Source
		row["changed_at"] = c.Event.Timestamp()
		row["changed_block"] = c.Event.BlockNumber
		rows = append(rows, row)
	}
	return rows, nil
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
