package avsRegistrationHistory

import (
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "avsRegistrationHistory"

type AvsRegistrationHistoryKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewAvsRegistrationHistoryKind(km *kindManager.KindManager, l *zap.Logger) (*AvsRegistrationHistoryKind, error) {
	kind := &AvsRegistrationHistoryKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorAvsRegistrationHistory,
			ValueColumns: []string{"avs_id", "status", "status_changed_at", "status_changed_block"},
			Tables:       []string{events.Table_OperatorAvsRegistrationStatusEvents},
			AppendOnly:   true,
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("avs_id", storage.ReferenceTable_Avs, false).
			AddTimestampField("status_changed_at", false).
			AddStringField("status", false).
			AddStringField("transaction_hash", false),
	}
	if err := km.RegisterKind(kind, 12); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *AvsRegistrationHistoryKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *AvsRegistrationHistoryKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	statuses, err := events.DecodeAll[events.AvsRegistrationStatusPayload](evs.Get(events.Table_OperatorAvsRegistrationStatusEvents))
	if err != nil {
		return nil, err
	}
	rows := make([]storage.Row, 0, len(statuses))
	for _, s := range statuses {
		row := base.EventRow(s.Event)
		row["avs_id"] = s.Payload.AvsId
		row["status"] = s.Payload.Status
		row["status_changed_at"] = s.Event.Timestamp()
		row["status_changed_block"] = s.Event.BlockNumber
		rows = append(rows, row)
	}
	return rows, nil
}
