package aggregator

import (
	"time"

	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
)

const (
	ActivityType_Registration      = "REGISTRATION"
	ActivityType_AvsRegistration   = "AVS_REGISTRATION"
	ActivityType_Delegation        = "DELEGATION"
	ActivityType_Allocation        = "ALLOCATION"
	ActivityType_MetadataUpdate    = "METADATA_UPDATE"
	ActivityType_CommissionChange  = "COMMISSION_CHANGE"
	ActivityType_ApproverChange    = "DELEGATION_APPROVER_CHANGE"
	ActivityType_Slashing          = "SLASHING"
	ActivityType_OperatorSetChange = "OPERATOR_SET_CHANGE"
)

// Activity is one dated, block-anchored fact about an operator.
type Activity struct {
	Type  string
	At    time.Time
	Block uint64
}

func (a *Activity) before(other *Activity) bool {
	if !a.At.Equal(other.At) {
		return a.At.Before(other.At)
	}
	return a.Block < other.Block
}

// ResolveFirstActivity returns the earliest candidate by (timestamp, block).
// Equal candidates keep the first one listed.
func ResolveFirstActivity(candidates []*Activity) *Activity {
	var first *Activity
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if first == nil || c.before(first) {
			first = c
		}
	}
	return first
}

// ResolveLastActivity returns the latest candidate by (timestamp, block).
func ResolveLastActivity(candidates []*Activity) *Activity {
	var last *Activity
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if last == nil || last.before(c) {
			last = c
		}
	}
	return last
}

// activitySource says where a table keeps the time and block of its facts.
type activitySource struct {
	Table       string
	Type        string
	TimeColumn  string
	BlockColumn string
}

var activitySources = []*activitySource{
	{Table: types.Table_OperatorRegistration, Type: ActivityType_Registration, TimeColumn: "registered_at", BlockColumn: "registration_block"},
	{Table: types.Table_OperatorAvsRegistrationHistory, Type: ActivityType_AvsRegistration, TimeColumn: "status_changed_at", BlockColumn: "status_changed_block"},
	{Table: types.Table_OperatorDelegatorHistory, Type: ActivityType_Delegation, TimeColumn: "event_timestamp", BlockColumn: "event_block"},
	{Table: types.Table_OperatorAllocations, Type: ActivityType_Allocation, TimeColumn: "allocated_at", BlockColumn: "allocated_at_block"},
	{Table: types.Table_OperatorMetadataHistory, Type: ActivityType_MetadataUpdate, TimeColumn: "metadata_updated_at", BlockColumn: "updated_block"},
	{Table: types.Table_OperatorCommissionHistory, Type: ActivityType_CommissionChange, TimeColumn: "changed_at", BlockColumn: "changed_block"},
	{Table: types.Table_OperatorDelegationApproverHistory, Type: ActivityType_ApproverChange, TimeColumn: "changed_at", BlockColumn: "changed_block"},
	{Table: types.Table_OperatorSlashingIncidents, Type: ActivityType_Slashing, TimeColumn: "slashed_at", BlockColumn: "slashed_at_block"},
	{Table: types.Table_OperatorSetMemberships, Type: ActivityType_OperatorSetChange, TimeColumn: "joined_at", BlockColumn: "last_changed_block"},
}

func activitiesFromRows(src *activitySource, rows []storage.Row) []*Activity {
	out := make([]*Activity, 0, len(rows))
	for _, row := range rows {
		at, ok := row.Time(src.TimeColumn)
		if !ok {
			continue
		}
		block, _ := row.Uint64(src.BlockColumn)
		out = append(out, &Activity{Type: src.Type, At: at, Block: block})
	}
	return out
}
