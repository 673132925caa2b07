package _202503010940_snapshotTables

import (
	"database/sql"

	"github.com/Layr-Labs/operator-state/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS operator_strategy_daily_snapshots (
			id bigserial primary key,
			operator_id varchar not null references operators(id),
			strategy_id varchar not null references strategies(id),
			max_magnitude numeric not null,
			encumbered_magnitude numeric not null,
			utilization_rate numeric not null,
			max_magnitude_updated_block bigint,
			encumbered_magnitude_updated_block bigint,
			last_updated_at timestamp with time zone not null,
			snapshot_date date not null,
			snapshot_block bigint not null,
			unique (operator_id, strategy_id, snapshot_date)
		)`,
		`CREATE TABLE IF NOT EXISTS operator_allocation_snapshots (
			id bigserial primary key,
			operator_id varchar not null references operators(id),
			operator_set_id varchar not null references operator_sets(id),
			strategy_id varchar not null references strategies(id),
			avs_id varchar not null references avs(id),
			magnitude numeric not null,
			effect_block bigint not null,
			allocated_at timestamp with time zone not null,
			allocated_at_block bigint not null,
			snapshot_date date not null,
			snapshot_block bigint not null,
			unique (operator_id, operator_set_id, strategy_id, snapshot_date)
		)`,
		`CREATE TABLE IF NOT EXISTS operator_avs_relationship_snapshots (
			id bigserial primary key,
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
			snapshot_date date not null,
			snapshot_block bigint not null,
			unique (operator_id, avs_id, snapshot_date)
		)`,
		`CREATE TABLE IF NOT EXISTS operator_commission_rates_snapshots (
			id bigserial primary key,
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
			snapshot_date date not null,
			snapshot_block bigint not null,
			unique (operator_id, commission_type, target_id, snapshot_date)
		)`,
		`CREATE TABLE IF NOT EXISTS operator_delegator_shares_snapshots (
			id bigserial primary key,
			operator_id varchar not null references operators(id),
			staker_id varchar not null references stakers(id),
			strategy_id varchar not null references strategies(id),
			shares numeric not null,
			is_delegated boolean not null,
			last_changed_block bigint not null,
			last_changed_at timestamp with time zone not null,
			snapshot_date date not null,
			snapshot_block bigint not null,
			unique (operator_id, staker_id, strategy_id, snapshot_date)
		)`,
		`CREATE TABLE IF NOT EXISTS operator_daily_snapshots (
			id bigserial primary key,
			operator_id varchar not null references operators(id),
			delegator_count bigint not null,
			active_avs_count bigint not null,
			active_operator_set_count bigint not null,
			pi_split_bips bigint,
			slash_event_count_to_date bigint not null,
			operational_days bigint not null,
			is_registered boolean not null,
			snapshot_date date not null,
			snapshot_block bigint not null,
			unique (operator_id, snapshot_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operator_daily_snapshots_date ON operator_daily_snapshots (snapshot_date)`,
	}

	for _, query := range queries {
		if err := grm.Exec(query).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202503010940_snapshotTables"
}
