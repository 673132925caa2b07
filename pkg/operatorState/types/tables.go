package types

// Derived tables written by the reconstruction engine.
const (
	Table_OperatorStrategyState        = "operator_strategy_state"
	Table_OperatorAllocations          = "operator_allocations"
	Table_OperatorAvsRelationships     = "operator_avs_relationships"
	Table_OperatorCommissionRates      = "operator_commission_rates"
	Table_OperatorDelegators           = "operator_delegators"
	Table_OperatorDelegatorShares      = "operator_delegator_shares"
	Table_OperatorSlashingIncidents    = "operator_slashing_incidents"
	Table_OperatorSlashingAmounts      = "operator_slashing_amounts"
	Table_OperatorRegistration         = "operator_registration"
	Table_OperatorMetadata             = "operator_metadata"
	Table_OperatorSetMemberships       = "operator_set_memberships"
	Table_OperatorAvsAllocationSummary = "operator_avs_allocation_summary"

	Table_OperatorAvsRegistrationHistory    = "operator_avs_registration_history"
	Table_OperatorDelegatorHistory          = "operator_delegator_history"
	Table_OperatorMetadataHistory           = "operator_metadata_history"
	Table_OperatorCommissionHistory         = "operator_commission_history"
	Table_OperatorDelegationApproverHistory = "operator_delegation_approver_history"

	Table_OperatorStrategyDailySnapshots   = "operator_strategy_daily_snapshots"
	Table_OperatorAllocationSnapshots      = "operator_allocation_snapshots"
	Table_OperatorAvsRelationshipSnapshots = "operator_avs_relationship_snapshots"
	Table_OperatorCommissionRatesSnapshots = "operator_commission_rates_snapshots"
	Table_OperatorDelegatorSharesSnapshots = "operator_delegator_shares_snapshots"
	Table_OperatorDailySnapshots           = "operator_daily_snapshots"
)

// Columns stamped by the engine rather than produced by a kind.
const (
	Column_Id            = "id"
	Column_OperatorId    = "operator_id"
	Column_UpdatedAt     = "updated_at"
	Column_SnapshotDate  = "snapshot_date"
	Column_SnapshotBlock = "snapshot_block"
)

const (
	CommissionType_PI          = "PI"
	CommissionType_AVS         = "AVS"
	CommissionType_OperatorSet = "OPERATOR_SET"
)
