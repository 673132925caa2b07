package registration

import (
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "registration"

// RegistrationKind records the operator's first registration event.
// Later registration events for the same operator are ignored.
type RegistrationKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewRegistrationKind(km *kindManager.KindManager, l *zap.Logger) (*RegistrationKind, error) {
	kind := &RegistrationKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorRegistration,
			NaturalKey:   []string{"operator_id"},
			ValueColumns: []string{"operator_address", "registered_at", "registration_block", "registration_tx_hash", "initial_delegation_approver"},
			Tables:       []string{events.Table_OperatorRegisteredEvents},
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddAddressField("operator_address", false).
			AddTimestampField("registered_at", false).
			AddStringField("registration_tx_hash", false).
			AddAddressField("initial_delegation_approver", true),
	}
	if err := km.RegisterKind(kind, 8); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *RegistrationKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *RegistrationKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	registered := evs.Get(events.Table_OperatorRegisteredEvents)
	if len(registered) == 0 {
		return []storage.Row{}, nil
	}
	first := registered[0]
	payload, err := events.DecodePayload[events.OperatorRegisteredPayload](first)
	if err != nil {
		return nil, err
	}

	row := base.NewRow(rc.OperatorId)
	row["operator_address"] = payload.OperatorAddress
	row["registered_at"] = first.Timestamp()
	row["registration_block"] = first.BlockNumber
	row["registration_tx_hash"] = first.TransactionHash
	row["initial_delegation_approver"] = nil
	if payload.DelegationApprover != "" {
		row["initial_delegation_approver"] = payload.DelegationApprover
	}
	return []storage.Row{row}, nil
}
