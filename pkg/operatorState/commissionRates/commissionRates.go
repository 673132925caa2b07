package commissionRates

import (
	"sort"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/base"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

const KindName = "commissionRates"

var Tables = []string{
	events.Table_OperatorPiSplitBipsSetEvents,
	events.Table_OperatorAvsSplitBipsSetEvents,
	events.Table_OperatorSetSplitBipsSetEvents,
}

// Change is one split-bips event normalized across the PI, AVS and
// operator-set variants.
type Change struct {
	CommissionType string
	TargetId       string
	AvsId          string
	OperatorSetId  string
	ActivatedAt    time.Time
	OldBips        uint64
	NewBips        uint64
	Event          *events.Event
}

func (c *Change) key() string {
	return c.CommissionType + "|" + c.TargetId
}

// DecodeChanges reads every split table in evs and returns the changes in
// chain order.
func DecodeChanges(evs *events.EventSet) ([]*Change, error) {
	changes := make([]*Change, 0)

	pi, err := events.DecodeAll[events.PiSplitPayload](evs.Get(events.Table_OperatorPiSplitBipsSetEvents))
	if err != nil {
		return nil, err
	}
	for _, p := range pi {
		changes = append(changes, &Change{
			CommissionType: types.CommissionType_PI,
			ActivatedAt:    time.Unix(p.Payload.ActivatedAt, 0).UTC(),
			OldBips:        p.Payload.OldBips,
			NewBips:        p.Payload.NewBips,
			Event:          p.Event,
		})
	}

	avs, err := events.DecodeAll[events.AvsSplitPayload](evs.Get(events.Table_OperatorAvsSplitBipsSetEvents))
	if err != nil {
		return nil, err
	}
	for _, a := range avs {
		changes = append(changes, &Change{
			CommissionType: types.CommissionType_AVS,
			TargetId:       a.Payload.AvsId,
			AvsId:          a.Payload.AvsId,
			ActivatedAt:    time.Unix(a.Payload.ActivatedAt, 0).UTC(),
			OldBips:        a.Payload.OldBips,
			NewBips:        a.Payload.NewBips,
			Event:          a.Event,
		})
	}

	sets, err := events.DecodeAll[events.OperatorSetSplitPayload](evs.Get(events.Table_OperatorSetSplitBipsSetEvents))
	if err != nil {
		return nil, err
	}
	for _, s := range sets {
		avsId, _, _ := validation.ParseOperatorSetId(s.Payload.OperatorSetId)
		changes = append(changes, &Change{
			CommissionType: types.CommissionType_OperatorSet,
			TargetId:       s.Payload.OperatorSetId,
			AvsId:          avsId,
			OperatorSetId:  s.Payload.OperatorSetId,
			ActivatedAt:    time.Unix(s.Payload.ActivatedAt, 0).UTC(),
			OldBips:        s.Payload.OldBips,
			NewBips:        s.Payload.NewBips,
			Event:          s.Event,
		})
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Event.Before(changes[j].Event)
	})
	return changes, nil
}

// Rate is the resolved commission for one target.
type Rate struct {
	CommissionType string
	TargetId       string
	AvsId          string
	OperatorSetId  string
	Current        *Change
	Upcoming       *Change
	First          *Change
	TotalChanges   uint64
}

// ResolveRates picks, per target, the latest change already activated at
// asOf as current and the latest not-yet-activated change as upcoming.
func ResolveRates(changes []*Change, asOf time.Time) []*Rate {
	rates := orderedmap.New[string, *Rate]()
	for _, c := range changes {
		r, ok := rates.Get(c.key())
		if !ok {
			r = &Rate{
				CommissionType: c.CommissionType,
				TargetId:       c.TargetId,
				AvsId:          c.AvsId,
				OperatorSetId:  c.OperatorSetId,
				First:          c,
			}
			rates.Set(c.key(), r)
		}
		r.TotalChanges++
		if c.ActivatedAt.After(asOf) {
			if r.Upcoming == nil || r.Upcoming.Event.Before(c.Event) {
				r.Upcoming = c
			}
			continue
		}
		if r.Current == nil || r.Current.Event.Before(c.Event) {
			r.Current = c
		}
	}
	out := make([]*Rate, 0, rates.Len())
	for pair := rates.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

type CommissionRatesKind struct {
	base.BaseKind
	validator *validation.FieldValidator
}

func NewCommissionRatesKind(km *kindManager.KindManager, l *zap.Logger) (*CommissionRatesKind, error) {
	kind := &CommissionRatesKind{
		BaseKind: base.NewBaseKind(&types.KindSpec{
			Name:          KindName,
			CurrentTable:  types.Table_OperatorCommissionRates,
			SnapshotTable: types.Table_OperatorCommissionRatesSnapshots,
			NaturalKey:    []string{"operator_id", "commission_type", "target_id"},
			ValueColumns: []string{
				"avs_id",
				"operator_set_id",
				"current_bips",
				"current_activated_at",
				"current_set_at_block",
				"previous_bips",
				"upcoming_bips",
				"upcoming_activated_at",
				"first_set_at",
				"total_changes",
			},
			Tables: Tables,
		}, l),
		validator: validation.NewFieldValidator().
			AddReferenceField("operator_id", storage.ReferenceTable_Operators, false).
			AddReferenceField("avs_id", storage.ReferenceTable_Avs, true).
			AddReferenceField("operator_set_id", storage.ReferenceTable_OperatorSets, true).
			AddTimestampField("current_activated_at", true).
			AddTimestampField("upcoming_activated_at", true).
			AddTimestampField("first_set_at", false).
			AddStringField("commission_type", false),
	}
	if err := km.RegisterKind(kind, 3); err != nil {
		return nil, err
	}
	return kind, nil
}

func (k *CommissionRatesKind) GetValidator() *validation.FieldValidator {
	return k.validator
}

func (k *CommissionRatesKind) Resolve(rc *types.ResolveContext, evs *events.EventSet) ([]storage.Row, error) {
	changes, err := DecodeChanges(evs)
	if err != nil {
		return nil, err
	}
	rates := ResolveRates(changes, rc.AsOf)

	rows := make([]storage.Row, 0, len(rates))
	for _, r := range rates {
		row := base.NewRow(rc.OperatorId)
		row["commission_type"] = r.CommissionType
		row["target_id"] = r.TargetId
		row["avs_id"] = nilIfEmpty(r.AvsId)
		row["operator_set_id"] = nilIfEmpty(r.OperatorSetId)
		row["first_set_at"] = r.First.Event.Timestamp()
		row["total_changes"] = r.TotalChanges

		row["current_bips"] = nil
		row["current_activated_at"] = nil
		row["current_set_at_block"] = nil
		row["previous_bips"] = nil
		if r.Current != nil {
			row["current_bips"] = r.Current.NewBips
			row["current_activated_at"] = r.Current.ActivatedAt
			row["current_set_at_block"] = r.Current.Event.BlockNumber
			row["previous_bips"] = r.Current.OldBips
		}
		row["upcoming_bips"] = nil
		row["upcoming_activated_at"] = nil
		if r.Upcoming != nil {
			row["upcoming_bips"] = r.Upcoming.NewBips
			row["upcoming_activated_at"] = r.Upcoming.ActivatedAt
		}
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
