package _202503010950_operatorStateAndCheckpoints

import (
	"database/sql"

	"github.com/Layr-Labs/operator-state/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS operator_state (
			operator_id varchar primary key references operators(id),
			operator_address varchar not null,
			current_metadata_uri varchar,
			last_metadata_update_at timestamp with time zone,
			registered_at timestamp with time zone,
			registration_block bigint,
			first_activity_at timestamp with time zone,
			first_activity_block bigint,
			first_activity_type varchar,
			current_delegation_approver varchar,
			is_permissioned boolean not null default false,
			delegation_approver_updated_at timestamp with time zone,
			current_pi_split_bips bigint,
			pi_split_activated_at timestamp with time zone,
			active_avs_count bigint not null default 0,
			registered_avs_count bigint not null default 0,
			active_operator_set_count bigint not null default 0,
			active_allocation_count bigint not null default 0,
			total_delegators bigint not null default 0,
			active_delegators bigint not null default 0,
			force_undelegation_count bigint not null default 0,
			total_slash_events bigint not null default 0,
			last_slashed_at timestamp with time zone,
			last_allocation_at timestamp with time zone,
			last_commission_change_at timestamp with time zone,
			last_activity_at timestamp with time zone,
			operational_days bigint not null default 0,
			is_active boolean not null default false,
			updated_at timestamp with time zone not null
		)`,
		`CREATE TABLE IF NOT EXISTS pipeline_checkpoints (
			pipeline_name varchar primary key,
			last_processed_at timestamp with time zone not null,
			last_processed_block bigint not null default 0,
			operators_processed_count bigint not null default 0,
			total_events_processed bigint not null default 0,
			run_duration_seconds double precision not null default 0,
			run_metadata jsonb,
			created_at timestamp with time zone not null default current_timestamp,
			updated_at timestamp with time zone not null default current_timestamp
		)`,
	}

	for _, query := range queries {
		if err := grm.Exec(query).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202503010950_operatorStateAndCheckpoints"
}
