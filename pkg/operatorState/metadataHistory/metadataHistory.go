package metadataHistory

import (
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "metadataHistory"

type MetadataHistoryKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewMetadataHistoryKind(km *kindManager.KindManager, l *zap.Logger) (*MetadataHistoryKind, error) {
	kind := &MetadataHistoryKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorMetadataHistory,
			ValueColumns: []string{"metadata_uri", "metadata_updated_at", "updated_block"},
			Tables:       []string{events.Table_OperatorMetadataUpdateEvents},
			AppendOnly:   true,
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddTimestampField("metadata_updated_at", false).
			AddStringField("metadata_uri", false).
			AddStringField("transaction_hash", false),
	}
	if err := km.RegisterKind(kind, 14); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *MetadataHistoryKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *MetadataHistoryKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	updates, err := events.DecodeAll[events.OperatorMetadataUpdatePayload](evs.Get(events.Table_OperatorMetadataUpdateEvents))
	if err != nil {
		return nil, err
	}
	rows := make([]storage.Row, 0, len(updates))
	for _, u := range updates {
		row := base.EventRow(u.Event)
		row["metadata_uri"] = u.Payload.MetadataUri
		row["metadata_updated_at"] = u.Event.Timestamp()
		row["updated_block"] = u.Event.BlockNumber
		rows = append(rows, row)
	}
	return rows, nil
}
