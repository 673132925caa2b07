package _202503010910_eventTables

import (
	"database/sql"
	"fmt"

	"github.com/Layr-Labs/operator-state/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

type eventTable struct {
	name    string
	columns string
}

// Event tables are populated by the ingestion layer; they are created here so
// that a fresh database can be reconstructed against.
var eventTables = []eventTable{
	{"allocation_events", `
		operator_set_id varchar not null,
		strategy_id varchar not null,
		magnitude numeric not null,
		effect_block bigint not null,`},
	{"operator_share_events", `
		staker_id varchar not null,
		strategy_id varchar not null,
		shares numeric not null,
		event_type varchar not null,`},
	{"operator_registered_events", `
		operator_address varchar not null,
		delegation_approver varchar,`},
	{"operator_metadata_update_events", `
		metadata_uri varchar not null,`},
	{"operator_avs_registration_status_updated_events", `
		avs_id varchar not null,
		status varchar not null,`},
	{"operator_slashed_events", `
		operator_set_id varchar not null,
		description varchar,
		strategies varchar[] not null,
		wad_slashed numeric[] not null,`},
	{"delegation_approver_updated_events", `
		new_delegation_approver varchar,`},
	{"max_magnitude_updated_events", `
		strategy_id varchar not null,
		max_magnitude numeric not null,`},
	{"encumbered_magnitude_updated_events", `
		strategy_id varchar not null,
		encumbered_magnitude numeric not null,`},
	{"operator_avs_split_bips_set_events", `
		avs_id varchar not null,
		caller varchar,
		activated_at bigint not null,
		old_operator_avs_split_bips integer not null,
		new_operator_avs_split_bips integer not null,`},
	{"operator_pi_split_bips_set_events", `
		caller varchar,
		activated_at bigint not null,
		old_operator_pi_split_bips integer not null,
		new_operator_pi_split_bips integer not null,`},
	{"operator_set_split_bips_set_events", `
		operator_set_id varchar not null,
		caller varchar,
		activated_at bigint not null,
		old_operator_set_split_bips integer not null,
		new_operator_set_split_bips integer not null,`},
	{"staker_delegation_events", `
		staker_id varchar not null,
		delegation_type varchar not null,`},
	{"staker_force_undelegated_events", `
		staker_id varchar not null,`},
	{"operator_added_to_operator_set_events", `
		operator_set_id varchar not null,`},
	{"operator_removed_from_operator_set_events", `
		operator_set_id varchar not null,`},
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := make([]string, 0)
	for _, t := range eventTables {
		queries = append(queries,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id bigserial primary key,
				operator_id varchar not null,
				%s
				block_number bigint not null,
				log_index bigint not null,
				block_timestamp bigint not null,
				transaction_hash varchar not null,
				created_at timestamp with time zone not null default current_timestamp,
				unique (transaction_hash, log_index)
			)`, t.name, t.columns),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_operator_block ON %s (operator_id, block_number, log_index)`, t.name, t.name),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at)`, t.name, t.name),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_block_timestamp ON %s (block_timestamp)`, t.name, t.name),
		)
	}

	for _, query := range queries {
		if err := grm.Exec(query).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202503010910_eventTables"
}
