package events

// Event tables read by the reconstruction engine. Each table carries the common
// columns (operator_id, block_number, log_index, block_timestamp,
// transaction_hash, created_at) plus its event-specific columns.
const (
	Table_AllocationEvents                     = "allocation_events"
	Table_OperatorShareEvents                  = "operator_share_events"
	Table_OperatorRegisteredEvents             = "operator_registered_events"
	Table_OperatorMetadataUpdateEvents         = "operator_metadata_update_events"
	Table_OperatorAvsRegistrationStatusEvents  = "operator_avs_registration_status_updated_events"
	Table_OperatorSlashedEvents                = "operator_slashed_events"
	Table_DelegationApproverUpdatedEvents      = "delegation_approver_updated_events"
	Table_MaxMagnitudeUpdatedEvents            = "max_magnitude_updated_events"
	Table_EncumberedMagnitudeUpdatedEvents     = "encumbered_magnitude_updated_events"
	Table_OperatorAvsSplitBipsSetEvents        = "operator_avs_split_bips_set_events"
	Table_OperatorPiSplitBipsSetEvents         = "operator_pi_split_bips_set_events"
	Table_OperatorSetSplitBipsSetEvents        = "operator_set_split_bips_set_events"
	Table_StakerDelegationEvents               = "staker_delegation_events"
	Table_StakerForceUndelegatedEvents         = "staker_force_undelegated_events"
	Table_OperatorAddedToOperatorSetEvents     = "operator_added_to_operator_set_events"
	Table_OperatorRemovedFromOperatorSetEvents = "operator_removed_from_operator_set_events"
)

// DefaultEventTables is every table scanned by the changed-operators query and
// used as snapshot signal tables.
var DefaultEventTables = []string{
	Table_AllocationEvents,
	Table_OperatorShareEvents,
	Table_OperatorRegisteredEvents,
	Table_OperatorMetadataUpdateEvents,
	Table_OperatorAvsRegistrationStatusEvents,
	Table_OperatorSlashedEvents,
	Table_DelegationApproverUpdatedEvents,
	Table_MaxMagnitudeUpdatedEvents,
	Table_EncumberedMagnitudeUpdatedEvents,
	Table_OperatorAvsSplitBipsSetEvents,
	Table_OperatorPiSplitBipsSetEvents,
	Table_OperatorSetSplitBipsSetEvents,
	Table_StakerDelegationEvents,
	Table_StakerForceUndelegatedEvents,
	Table_OperatorAddedToOperatorSetEvents,
	Table_OperatorRemovedFromOperatorSetEvents,
}

var knownTables = func() map[string]struct{} {
	m := make(map[string]struct{}, len(DefaultEventTables))
	for _, t := range DefaultEventTables {
		m[t] = struct{}{}
	}
	return m
}()

// IsKnownTable reports whether name is a registered event table. Table names
// are interpolated into SQL, so only registered names are ever accepted.
func IsKnownTable(name string) bool {
	_, ok := knownTables[name]
	return ok
}
