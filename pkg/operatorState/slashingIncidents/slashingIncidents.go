package slashingIncidents

import (
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "slashingIncidents"

// SlashingIncidentsKind writes one row per slashing event, keyed by the
// event's transaction hash and log index.
type SlashingIncidentsKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewSlashingIncidentsKind(km *kindManager.KindManager, l *zap.Logger) (*SlashingIncidentsKind, error) {
	kind := &SlashingIncidentsKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorSlashingIncidents,
			NaturalKey:   []string{"operator_id", "transaction_hash", "log_index"},
			ValueColumns: []string{"operator_set_id", "avs_id", "description", "strategy_count", "slashed_at", "slashed_at_block"},
			Tables:       []string{events.Table_OperatorSlashedEvents},
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("avs_id", storage.ReferenceTable_Avs, false).
			AddReferenceField("operator_set_id", storage.ReferenceTable_OperatorSets, false).
			AddTimestampField("slashed_at", false).
			AddStringField("transaction_hash", false).
			AddStringField("description", true),
	}
	if err := km.RegisterKind(kind, 6); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *SlashingIncidentsKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *SlashingIncidentsKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	slashes, err := events.DecodeAll[events.OperatorSlashedPayload](evs.Get(events.Table_OperatorSlashedEvents))
	if err != nil {
		return nil, err
	}
	rows := make([]storage.Row, 0, len(slashes))
	for _, s := range slashes {
		row := base.EventRow(s.Event)
		row["operator_set_id"] = s.Payload.OperatorSetId
		row["avs_id"] = nil
		if avsId, _, err := validation.ParseOperatorSetId(s.Payload.OperatorSetId); err == nil {
			row["avs_id"] = avsId
		}
		row["description"] = s.Payload.Description
		row["strategy_count"] = uint64(len(s.Payload.Strategies))
		row["slashed_at"] = s.Event.Timestamp()
		row["slashed_at_block"] = s.Event.BlockNumber
		rows = append(rows, row)
	}
	return rows, nil
}
