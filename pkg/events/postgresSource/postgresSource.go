package postgresSource

import (
	"context"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
	"gorm.io/gorm"
)

// PostgresSource reads event tables through gorm. It never writes.
type PostgresSource struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPostgresSource(db *gorm.DB, l *zap.Logger) *PostgresSource {
	return &PostgresSource{
		db:     db,
		logger: l,
	}
}

func (ps *PostgresSource) FetchEvents(ctx context.Context, q *events.EventQuery) ([]*events.Event, error) {
	query, params, err := q.Build()
	if err != nil {
		return nil, err
	}

	results := make([]*events.Event, 0)
	res := ps.db.WithContext(ctx).Raw(query, params...).Scan(&results)
	if res.Error != nil {
		ps.logger.Sugar().Errorw("Failed to fetch events",
			zap.Error(res.Error),
			zap.String("table", q.Table),
			zap.String("operatorId", q.OperatorId),
		)
		return nil, xerrors.Errorf("failed to fetch events from %s: %w", q.Table, res.Error)
	}
	for _, e := range results {
		e.Table = q.Table
	}
	return results, nil
}

func (ps *PostgresSource) ChangedOperatorsSince(ctx context.Context, tables []string, cursor time.Time) ([]string, error) {
	query, params, err := events.BuildChangedOperatorsQuery(tables, cursor)
	if err != nil {
		return nil, err
	}
	return ps.scanOperatorIds(ctx, query, params)
}

func (ps *PostgresSource) SnapshotBlockForDate(ctx context.Context, tables []string, snapshotDate time.Time) (uint64, bool, error) {
	query, params, err := events.BuildSnapshotBlockQuery(tables, snapshotDate)
	if err != nil {
		return 0, false, err
	}

	var result struct {
		BlockNumber *uint64
	}
	res := ps.db.WithContext(ctx).Raw(query, params...).Scan(&result)
	if res.Error != nil {
		return 0, false, xerrors.Errorf("failed to find snapshot block: %w", res.Error)
	}
	if result.BlockNumber == nil {
		return 0, false, nil
	}
	return *result.BlockNumber, true, nil
}

func (ps *PostgresSource) ActiveOperatorsAtBlock(ctx context.Context, tables []string, block uint64) ([]string, error) {
	query, params, err := events.BuildActiveOperatorsQuery(tables, block)
	if err != nil {
		return nil, err
	}
	return ps.scanOperatorIds(ctx, query, params)
}

func (ps *PostgresSource) scanOperatorIds(ctx context.Context, query string, params []interface{}) ([]string, error) {
	ids := make([]string, 0)
	res := ps.db.WithContext(ctx).Raw(query, params...).Scan(&ids)
	if res.Error != nil {
		return nil, xerrors.Errorf("failed to list operators: %w", res.Error)
	}
	return ids, nil
}
