package slashingAmounts

import (
	"encoding/json"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/resolvers"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "slashingAmounts"

// SlashingAmountsKind unpacks each slashing event's parallel strategy and
// amount arrays into one row per strategy.
type SlashingAmountsKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewSlashingAmountsKind(km *kindManager.KindManager, l *zap.Logger) (*SlashingAmountsKind, error) {
	kind := &SlashingAmountsKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorSlashingAmounts,
			NaturalKey:   []string{"operator_id", "transaction_hash", "log_index", "strategy_id"},
			ValueColumns: []string{"operator_set_id", "wad_slashed", "slashed_at", "slashed_at_block"},
			Tables:       []string{events.Table_OperatorSlashedEvents},
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("strategy_id", storage.ReferenceTable_Strategies, false).
			AddReferenceField("operator_set_id", storage.ReferenceTable_OperatorSets, false).
			AddDecimalField("wad_slashed", false).
			AddTimestampField("slashed_at", false),
	}
	if err := km.RegisterKind(kind, 7); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *SlashingAmountsKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *SlashingAmountsKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	slashes, err := events.DecodeAll[events.OperatorSlashedPayload](evs.Get(events.Table_OperatorSlashedEvents))
	if err != nil {
		return nil, err
	}
	rows := make([]storage.Row, 0)
	for _, s := range slashes {
		pairs := resolvers.UnpackParallel(s.Payload.Strategies, s.Payload.WadSlashed)
		if len(s.Payload.Strategies) != len(s.Payload.WadSlashed) {
			k.Logger.Sugar().Warnw("Slashing event has mismatched strategy and amount arrays",
				zap.String("operatorId", rc.OperatorId),
				zap.String("transactionHash", s.Event.TransactionHash),
				zap.Uint64("logIndex", s.Event.LogIndex),
				zap.Int("strategies", len(s.Payload.Strategies)),
				zap.Int("amounts", len(s.Payload.WadSlashed)),
			)
		}
		for _, p := range pairs {
			row := base.EventRow(s.Event)
			row["operator_set_id"] = s.Payload.OperatorSetId
			row["strategy_id"] = nil
			if p.Left != nil {
				row["strategy_id"] = *p.Left
			}
			row["wad_slashed"] = nil
			if p.Right != nil {
				row["wad_slashed"] = json.Number(p.Right.String())
			}
			row["slashed_at"] = s.Event.Timestamp()
			row["slashed_at_block"] = s.Event.BlockNumber
			rows = append(rows, row)
		}
	}
	return rows, nil
}
