package metadata

import (
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "metadata"

type MetadataKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewMetadataKind(km *kindManager.KindManager, l *zap.Logger) (*MetadataKind, error) {
	kind := &MetadataKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorMetadata,
			NaturalKey:   []string{"operator_id"},
			ValueColumns: []string{"metadata_uri", "last_updated_at", "last_updated_block", "total_updates"},
			Tables:       []string{events.Table_OperatorMetadataUpdateEvents},
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddTimestampField("last_updated_at", false).
			AddStringField("metadata_uri", false),
	}
	if err := km.RegisterKind(kind, 9); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *MetadataKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *MetadataKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	updates := evs.Get(events.Table_OperatorMetadataUpdateEvents)
	if len(updates) == 0 {
		return []storage.Row{}, nil
	}
	// events arrive in chain order, so the last one wins
	latest := updates[len(updates)-1]
	payload, err := events.DecodePayload[events.OperatorMetadataUpdatePayload](latest)
	if err != nil {
		return nil, err
	}
	row := base.NewRow(rc.OperatorId)
	row["metadata_uri"] = payload.MetadataUri
	row["last_updated_at"] = latest.Timestamp()
	row["last_updated_block"] = latest.BlockNumber
	row["total_updates"] = uint64(len(updates))
	return []storage.Row{row}, nil
}
