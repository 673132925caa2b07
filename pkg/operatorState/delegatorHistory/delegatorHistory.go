package delegatorHistory

import (
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/delegators"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
)

const KindName = "delegatorHistory"

type DelegatorHistoryKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewDelegatorHistoryKind(km *kindManager.KindManager, l *zap.Logger) (*DelegatorHistoryKind, error) {
	kind := &DelegatorHistoryKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:         KindName,
			CurrentTable: types.Table_OperatorDelegatorHistory,
			ValueColumns: []string{"staker_id", "delegation_type", "event_timestamp", "event_block"},
			Tables:       delegators.Tables,
			AppendOnly:   true,
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("staker_id", storage.ReferenceTable_Stakers, false).
			AddTimestampField("event_timestamp", false).
			AddStringField("delegation_type", false).
			AddStringField("transaction_hash", false),
	}
	if err := km.RegisterKind(kind, 13); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *DelegatorHistoryKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *DelegatorHistoryKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	changes, err := delegators.DecodeDelegationChanges(evs)
	if err != nil {
		return nil, err
	}
	rows := make([]storage.Row, 0, len(changes))
	for _, c := range changes {
		row := base.EventRow(c.Event)
		row["staker_id"] = c.StakerId
		row["delegation_type"] = c.DelegationType
		row["event_timestamp"] = c.Event.Timestamp()
		row["event_block"] = c.Event.BlockNumber
		rows = append(rows, row)
	}
	return rows, nil
}
