package _202503010930_historyTables

import (
	"database/sql"

	"github.com/Layr-Labs/operator-state/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

// History tables are append-only. The (operator_id, transaction_hash,
// log_index) unique index makes re-running a reconstruction a no-op.
func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS operator_avs_registration_history (
			id bigserial primary key,
			operator_id varchar not null references operators(id),
			avs_id varchar not null references avs(id),
			status varchar not null,
			status_changed_at timestamp with time zone not null,
			status_changed_block bigint not null,
			transaction_hash varchar not null,
			log_index bigint not null,
			updated_at timestamp with time zone not null,
			unique (operator_id, transaction_hash, log_index)
		)`,
		`CREATE TABLE IF NOT EXISTS operator_delegator_history (
			id bigserial primary key,
			operator_id varchar not null references operators(id),
			staker_id varchar not null references stakers(id),
			delegation_type varchar not null,
			event_timestamp timestamp with time zone not null,
			event_block bigint not null,
			transaction_hash varchar not null,
			log_index bigint not null,
			updated_at timestamp with time zone not null,
			unique (operator_id, transaction_hash, log_index)
		)`,
		`CREATE TABLE IF NOT EXISTS operator_metadata_history (
			id bigserial primary key,
			operator_id varchar not null references operators(id),
			metadata_uri varchar not null,
			updated_block bigint not null,
			metadata_updated_at timestamp with time zone not null,
			transaction_hash varchar not null,
			log_index bigint not null,
			updated_at timestamp with time zone not null,
			unique (operator_id, transaction_hash, log_index)
		)`,
		`CREATE TABLE IF NOT EXISTS operator_commission_history (
			id bigserial primary key,
			operator_id varchar not null references operators(id),
			commission_type varchar not null,
			target_id varchar not null,
			avs_id varchar references avs(id),
			operator_set_id varchar references operator_sets(id),
			old_bips bigint not null,
			new_bips bigint not null,
			activated_at timestamp with time zone not null,
			changed_at timestamp with time zone not null,
			changed_block bigint not null,
			transaction_hash varchar not null,
			log_index bigint not null,
			updated_at timestamp with time zone not null,
			unique (operator_id, transaction_hash, log_index)
		)`,
		`CREATE TABLE IF NOT EXISTS operator_delegation_approver_history (
			id bigserial primary key,
			operator_id varchar not null references operators(id),
			old_delegation_approver varchar,
			new_delegation_approver varchar,
			change_source varchar not null,
			changed_at timestamp with time zone not null,
			changed_block bigint not null,
			transaction_hash varchar not null,
			log_index bigint not null,
			updated_at timestamp with time zone not null,
			unique (operator_id, transaction_hash, log_index)
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
	return "202503010930_historyTables"
}
