package _202503010920_derivedStateTables

import (
	"database/sql"

	"github.com/Layr-Labs/operator-state/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS operator_strategy_state (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			strategy_id varchar not null references strategies(id),
			max_magnitude numeric not null,
			encumbered_magnitude numeric not null,
			utilization_rate numeric not null,
			max_magnitude_updated_block bigint,
			encumbered_magnitude_updated_block bigint,
			last_updated_at timestamp with time zone not null,
			updated_at timestamp with time zone not null
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_strategy_state_operator ON operator_strategy_state (operator_id)`,

		`CREATE TABLE IF NOT EXISTS operator_allocations (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			operator_set_id varchar not null references operator_sets(id),
			strategy_id varchar not null references strategies(id),
			avs_id varchar not null references avs(id),
			magnitude numeric not null,
			effect_block bigint not null,
			allocated_at timestamp with time zone not null,
			allocated_at_block bigint not null,
			updated_at timestamp with time zone not null
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_allocations_operator ON operator_allocations (operator_id)`,

		`CREATE TABLE IF NOT EXISTS operator_avs_relationships (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			avs_id varchar not null references avs(id),
			current_status varchar not null,
			status_changed_at timestamp with time zone not null,
			status_changed_block bigint not null,
			first_registered_at timestamp with time zone,
			last_registered_at timestamp with time zone,
			last_unregistered_at timestamp with time zone,
			total_registration_cycles bigint not null,
			total_days_registered numeric not null,
			current_period_days numeric not null,
			active_operator_set_count bigint not null,
			avs_commission_bips bigint,
			updated_at timestamp with time zone not null
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_avs_relationships_operator ON operator_avs_relationships (operator_id)`,

		`CREATE TABLE IF NOT EXISTS operator_commission_rates (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			commission_type varchar not null,
			target_id varchar not null,
			avs_id varchar references avs(id),
			operator_set_id varchar references operator_sets(id),
			current_bips bigint,
			current_activated_at timestamp with time zone,
			current_set_at_block bigint,
			previous_bips bigint,
			upcoming_bips bigint,
			upcoming_activated_at timestamp with time zone,
			first_set_at timestamp with time zone not null,
			total_changes bigint not null,
			updated_at timestamp with time zone not null
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_commission_rates_operator ON operator_commission_rates (operator_id)`,

		`CREATE TABLE IF NOT EXISTS operator_delegators (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			staker_id varchar not null references stakers(id),
			delegation_status varchar not null,
			is_delegated boolean not null,
			delegated_at timestamp with time zone,
			undelegated_at timestamp with time zone,
			last_changed_block bigint not null,
			updated_at timestamp with time zone not null
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_delegators_operator ON operator_delegators (operator_id)`,

		`CREATE TABLE IF NOT EXISTS operator_delegator_shares (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			staker_id varchar not null references stakers(id),
			strategy_id varchar not null references strategies(id),
			shares numeric not null,
			is_delegated boolean not null,
			last_changed_block bigint not null,
			last_changed_at timestamp with time zone not null,
			updated_at timestamp with time zone not null
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_delegator_shares_operator ON operator_delegator_shares (operator_id)`,

		`CREATE TABLE IF NOT EXISTS operator_slashing_incidents (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			transaction_hash varchar not null,
			log_index bigint not null,
			operator_set_id varchar not null references operator_sets(id),
			avs_id varchar not null references avs(id),
			description varchar,
			strategy_count bigint not null,
			slashed_at timestamp with time zone not null,
			slashed_at_block bigint not null,
			updated_at timestamp with time zone not null
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_slashing_incidents_operator ON operator_slashing_incidents (operator_id)`,

		`CREATE TABLE IF NOT EXISTS operator_slashing_amounts (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			transaction_hash varchar not null,
			log_index bigint not null,
			strategy_id varchar not null references strategies(id),
			operator_set_id varchar not null references operator_sets(id),
			wad_slashed numeric not null,
			slashed_at timestamp with time zone not null,
			slashed_at_block bigint not null,
			updated_at timestamp with time zone not null
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_slashing_amounts_operator ON operator_slashing_amounts (operator_id)`,

		`CREATE TABLE IF NOT EXISTS operator_registration (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			operator_address varchar not null,
			registered_at timestamp with time zone not null,
			registration_block bigint not null,
			registration_tx_hash varchar not null,
			initial_delegation_approver varchar,
			updated_at timestamp with time zone not null
		)`,

		`CREATE TABLE IF NOT EXISTS operator_metadata (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			metadata_uri varchar not null,
			last_updated_at timestamp with time zone not null,
			last_updated_block bigint not null,
			total_updates bigint not null,
			updated_at timestamp with time zone not null
		)`,

		`CREATE TABLE IF NOT EXISTS operator_set_memberships (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			operator_set_id varchar not null references operator_sets(id),
			avs_id varchar not null references avs(id),
			is_member boolean not null,
			joined_at timestamp with time zone,
			left_at timestamp with time zone,
			last_changed_block bigint not null,
			updated_at timestamp with time zone not null
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_set_memberships_operator ON operator_set_memberships (operator_id)`,

		`CREATE TABLE IF NOT EXISTS operator_avs_allocation_summary (
			id varchar primary key,
			operator_id varchar not null references operators(id),
			avs_id varchar not null references avs(id),
			strategy_id varchar not null references strategies(id),
			total_magnitude numeric not null,
			operator_set_count bigint not null,
			last_allocated_at timestamp with time zone not null,
			last_allocated_block bigint not null,
			updated_at timestamp with time zone not null
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_avs_allocation_summary_operator ON operator_avs_allocation_summary (operator_id)`,
	}

	for _, query := range queries {
		if err := grm.Exec(query).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202503010920_derivedStateTables"
}
