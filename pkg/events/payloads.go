package events

import "encoding/json"

// Payload shapes for each event table. Field names follow the column names
// emitted by to_jsonb on the event row.

type AllocationPayload struct {
	OperatorSetId string      `json:"operator_set_id"`
	StrategyId    string      `json:"strategy_id"`
	Magnitude     json.Number `json:"magnitude"`
	EffectBlock   uint64      `json:"effect_block"`
}

const (
	ShareEventType_Increased = "INCREASED"
	ShareEventType_Decreased = "DECREASED"
)

// OperatorSharePayload carries an unsigned share amount; DECREASED events
// subtract it from the running balance.
type OperatorSharePayload struct {
	StakerId   string      `json:"staker_id"`
	StrategyId string      `json:"strategy_id"`
	Shares     json.Number `json:"shares"`
	EventType  string      `json:"event_type"`
}

type OperatorRegisteredPayload struct {
	OperatorAddress    string `json:"operator_address"`
	DelegationApprover string `json:"delegation_approver"`
}

type OperatorMetadataUpdatePayload struct {
	MetadataUri string `json:"metadata_uri"`
}

const (
	RegistrationStatus_Registered   = "REGISTERED"
	RegistrationStatus_Unregistered = "UNREGISTERED"
)

type AvsRegistrationStatusPayload struct {
	AvsId  string `json:"avs_id"`
	Status string `json:"status"`
}

type OperatorSlashedPayload struct {
	OperatorSetId string        `json:"operator_set_id"`
	Description   string        `json:"description"`
	Strategies    []string      `json:"strategies"`
	WadSlashed    []json.Number `json:"wad_slashed"`
}

type DelegationApproverUpdatedPayload struct {
	NewDelegationApprover string `json:"new_delegation_approver"`
}

type MaxMagnitudePayload struct {
	StrategyId   string      `json:"strategy_id"`
	MaxMagnitude json.Number `json:"max_magnitude"`
}

type EncumberedMagnitudePayload struct {
	StrategyId          string      `json:"strategy_id"`
	EncumberedMagnitude json.Number `json:"encumbered_magnitude"`
}

type AvsSplitPayload struct {
	AvsId       string `json:"avs_id"`
	ActivatedAt int64  `json:"activated_at"`
	OldBips     uint64 `json:"old_operator_avs_split_bips"`
	NewBips     uint64 `json:"new_operator_avs_split_bips"`
}

type PiSplitPayload struct {
	ActivatedAt int64  `json:"activated_at"`
	OldBips     uint64 `json:"old_operator_pi_split_bips"`
	NewBips     uint64 `json:"new_operator_pi_split_bips"`
}

type OperatorSetSplitPayload struct {
	OperatorSetId string `json:"operator_set_id"`
	ActivatedAt   int64  `json:"activated_at"`
	OldBips       uint64 `json:"old_operator_set_split_bips"`
	NewBips       uint64 `json:"new_operator_set_split_bips"`
}

const (
	DelegationType_Delegated        = "DELEGATED"
	DelegationType_Undelegated      = "UNDELEGATED"
	DelegationType_ForceUndelegated = "FORCE_UNDELEGATED"
)

type StakerDelegationPayload struct {
	StakerId       string `json:"staker_id"`
	DelegationType string `json:"delegation_type"`
}

type StakerForceUndelegatedPayload struct {
	StakerId string `json:"staker_id"`
}

type OperatorSetMembershipPayload struct {
	OperatorSetId string `json:"operator_set_id"`
}
