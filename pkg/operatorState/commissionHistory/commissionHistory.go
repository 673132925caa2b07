package commissionHistory

import (
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/commissionRates"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "commissionHistory"

type CommissionHistoryKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewCommissionHistoryKind(km *kindManager.KindManager, l *zap.Logger) (*CommissionHistoryKind, error) {
	kind := &CommissionHistoryKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorCommissionHistory,
			ValueColumns: []string{
				"commission_type",
				"target_id",
				"avs_id",
				"operator_set_id",
				"old_bips",
				"new_bips",
				"activated_at",
				"changed_at",
				"changed_block",
			},
			Tables:     commissionRates.Tables,
			AppendOnly: true,
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("avs_id", storage.ReferenceTable_Avs, true).
			AddReferenceField("operator_set_id", storage.ReferenceTable_OperatorSets, true).
			AddTimestampField("activated_at", false).
			AddTimestampField("changed_at", false).
			AddStringField("commission_type", false).
			AddStringField("transaction_hash", false),
	}
	if err := km.RegisterKind(kind, 15); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *CommissionHistoryKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *CommissionHistoryKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	changes, err := commissionRates.DecodeChanges(evs)
	if err != nil {
		return nil, err
	}
	rows := make([]storage.Row, 0, len(changes))
	for _, c := range changes {
		row := base.EventRow(c.Event)
		row["commission_type"] = c.CommissionType
		row["target_id"] = c.TargetId
		row["avs_id"] = nil
		if c.AvsId != "" {
			row["avs_id"] = c.AvsId
		}
		row["operator_set_id"] = nil
		if c.OperatorSetId != "" {
			row["operator_set_id"] = c.OperatorSetId
		}
		row["old_bips"] = c.OldBips
		row["new_bips"] = c.NewBips
		row["activated_at"] = c.ActivatedAt
		row["changed_at"] = c.Event.Timestamp()
		row["changed_block"] = c.Event.BlockNumber
		rows = append(rows, row)
	}
	return rows, nil
}
