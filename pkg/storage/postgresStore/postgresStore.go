package postgresStore

import (
	"context"
	"regexp"

	"github.com/Layr-Labs/operator-state/internal/config"
	"github.com/Layr-Labs/operator-state/pkg/postgres/helpers"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var identifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type PostgresStore struct {
	Db           *gorm.DB
	Logger       *zap.Logger
	GlobalConfig *config.Config
}

func NewPostgresStore(db *gorm.DB, l *zap.Logger, cfg *config.Config) *PostgresStore {
	return &PostgresStore{
		Db:           db,
		Logger:       l,
		GlobalConfig: cfg,
	}
}

func checkIdentifiers(names ...string) error {
	for _, n := range names {
		if !identifierRegex.MatchString(n) {
			return errors.Errorf("invalid identifier '%s'", n)
		}
	}
	return nil
}

func columns(names []string) []clause.Column {
	out := make([]clause.Column, 0, len(names))
	for _, n := range names {
		out = append(out, clause.Column{Name: n})
	}
	return out
}

func (s *PostgresStore) Upsert(ctx context.Context, spec *storage.UpsertSpec, row storage.Row) (int64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if err := checkIdentifiers(append([]string{spec.Table}, spec.ConflictColumns...)...); err != nil {
		return 0, err
	}

	onConflict := clause.OnConflict{
		Columns:   columns(spec.ConflictColumns),
		DoNothing: spec.DoNothing,
	}
	if !spec.DoNothing {
		onConflict.DoUpdates = clause.AssignmentColumns(spec.UpdateColumns)
	}

	values := map[string]interface{}(row.Copy())
	res := s.Db.WithContext(ctx).Table(spec.Table).Clauses(onConflict).Create(values)
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "failed to upsert into %s", spec.Table)
	}
	return res.RowsAffected, nil
}

func (s *PostgresStore) ReferenceExists(ctx context.Context, table string, id string) (bool, error) {
	if err := checkIdentifiers(table); err != nil {
		return false, err
	}
	return s.referenceExists(s.Db.WithContext(ctx), table, id)
}

func (s *PostgresStore) CreateReference(ctx context.Context, ref *storage.ReferenceEntity) error {
	if err := checkIdentifiers(ref.Table); err != nil {
		return err
	}
	if ref.Table != storage.ReferenceTable_OperatorSets {
		return s.insertReference(s.Db.WithContext(ctx), ref.Table, ref.Id, map[string]interface{}{
			"id":      ref.Id,
			"address": ref.Address,
		})
	}

	if ref.Index == nil {
		return errors.Errorf("operator set %s has no index", ref.Id)
	}
	// the parent check and the insert share a transaction
	_, err := helpers.WrapTxAndCommit(ctx, s.Db, nil, func(tx *gorm.DB) (interface{}, error) {
		exists, err := s.referenceExists(tx, storage.ReferenceTable_Avs, ref.ParentId)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.Errorf("operator set %s references missing avs %s", ref.Id, ref.ParentId)
		}
		return nil, s.insertReference(tx, ref.Table, ref.Id, map[string]interface{}{
			"id":                 ref.Id,
			"avs_id":             ref.ParentId,
			"operator_set_index": *ref.Index,
		})
	})
	return err
}

func (s *PostgresStore) referenceExists(db *gorm.DB, table string, id string) (bool, error) {
	var count int64
	res := db.Table(table).Where("id = ?", id).Count(&count)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "failed to check %s(%s)", table, id)
	}
	return count > 0, nil
}

func (s *PostgresStore) insertReference(db *gorm.DB, table string, id string, values map[string]interface{}) error {
	res := db.Table(table).
		Clauses(clause.OnConflict{Columns: columns([]string{"id"}), DoNothing: true}).
		Create(values)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to create %s(%s)", table, id)
	}
	return nil
}

func (s *PostgresStore) ListRows(ctx context.Context, table string, operatorId string) ([]storage.Row, error) {
	if err := checkIdentifiers(table); err != nil {
		return nil, err
	}
	results := make([]map[string]interface{}, 0)
	res := s.Db.WithContext(ctx).Table(table).Where("operator_id = ?", operatorId).Find(&results)
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "failed to list %s for %s", table, operatorId)
	}
	rows := make([]storage.Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, storage.Row(r))
	}
	return rows, nil
}

func (s *PostgresStore) SaveOperatorState(ctx context.Context, state *storage.OperatorState) error {
	res := s.Db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: columns([]string{"operator_id"}), UpdateAll: true}).
		Create(state)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to save operator state for %s", state.OperatorId)
	}
	return nil
}

func (s *PostgresStore) GetCheckpoint(ctx context.Context, pipelineName string) (*storage.Checkpoint, error) {
	var cp storage.Checkpoint
	res := s.Db.WithContext(ctx).Where("pipeline_name = ?", pipelineName).First(&cp)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(res.Error, "failed to get checkpoint %s", pipelineName)
	}
	return &cp, nil
}

func (s *PostgresStore) SaveCheckpoint(ctx context.Context, cp *storage.Checkpoint) error {
	res := s.Db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: columns([]string{"pipeline_name"}), UpdateAll: true}).
		Create(cp)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to save checkpoint %s", cp.PipelineName)
	}
	return nil
}
