package _202503010900_referenceTables

import (
	"database/sql"

	"github.com/Layr-Labs/operator-state/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(db *sql.DB, grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS operators (
			id varchar primary key,
			address varchar not null,
			created_at timestamp with time zone not null default current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS avs (
			id varchar primary key,
			address varchar not null,
			created_at timestamp with time zone not null default current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS stakers (
			id varchar primary key,
			address varchar not null,
			created_at timestamp with time zone not null default current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS strategies (
			id varchar primary key,
			address varchar not null,
			created_at timestamp with time zone not null default current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS operator_sets (
			id varchar primary key,
			avs_id varchar not null references avs(id),
			operator_set_index bigint not null,
			created_at timestamp with time zone not null default current_timestamp,
			unique (avs_id, operator_set_index)
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
	return "202503010900_referenceTables"
}
