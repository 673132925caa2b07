package snapshot

import (
	"context"
	"time"

	"github.com/Layr-Labs/operator-state/internal/metrics"
	"github.com/Layr-Labs/operator-state/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/reconstructor"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

type snapshotBlock struct {
	block uint64
	found bool
}

// Materializer writes date-keyed copies of derived state. The only
// time-varying input is the snapshot block; wall-clock time is never read.
type Materializer struct {
	source        events.EventSource
	reconstructor *reconstructor.Reconstructor
	metricsSink   *metrics.MetricsSink
	logger        *zap.Logger
	signalTables  []string

	blocks *xsync.Map[string, snapshotBlock]
}

func NewMaterializer(
	source events.EventSource,
	rc *reconstructor.Reconstructor,
	signalTables []string,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *Materializer {
	return &Materializer{
		source:        source,
		reconstructor: rc,
		metricsSink:   ms,
		logger:        l,
		signalTables:  signalTables,
		blocks:        xsync.NewMap[string, snapshotBlock](),
	}
}

// SnapshotBlockForDate returns the highest block across the signal tables
// whose timestamp falls on or before date. Lookups are cached per date.
func (m *Materializer) SnapshotBlockForDate(ctx context.Context, date time.Time) (uint64, bool, error) {
	date = NormalizeDate(date)
	key := date.Format(time.DateOnly)
	if cached, ok := m.blocks.Load(key); ok {
		return cached.block, cached.found, nil
	}

	block, found, err := m.source.SnapshotBlockForDate(ctx, m.signalTables, date)
	if err != nil {
		return 0, false, xerrors.Errorf("failed to find snapshot block for %s: %w", key, err)
	}
	m.blocks.Store(key, snapshotBlock{block: block, found: found})
	return block, found, nil
}

// Materialize snapshots one kind for one operator on date. A date with no
// qualifying block is skipped, not failed.
func (m *Materializer) Materialize(ctx context.Context, kind types.IStateKind, operatorId string, date time.Time) (*SnapshotResult, error) {
	date = NormalizeDate(date)
	out := &SnapshotResult{
		OperatorId:   operatorId,
		Kind:         kind.GetKindName(),
		SnapshotDate: date,
	}
	if kind.SnapshotTable() == "" {
		return nil, xerrors.Errorf("%s has no snapshot table", kind.GetKindName())
	}

	block, found, err := m.SnapshotBlockForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if !found {
		out.Status = Status_Skipped
		_ = m.metricsSink.Incr(metricsTypes.Metric_Incr_SnapshotsSkipped, metrics.KindLabel(kind.GetKindName()), 1)
		m.logger.Sugar().Debugw("No snapshot block for date",
			zap.String("kind", kind.GetKindName()),
			zap.String("operatorId", operatorId),
			zap.String("date", date.Format(time.DateOnly)),
		)
		return out, nil
	}
	out.SnapshotBlock = block

	stamp := func(row storage.Row) {
		row[types.Column_SnapshotDate] = date
		row[types.Column_SnapshotBlock] = block
	}
	result, err := m.reconstructor.ReconstructKind(ctx, kind, operatorId, &block, events.DayEnd(date), stamp)
	if err != nil {
		return nil, err
	}
	out.Status = Status_Written
	out.Result = result

	root, err := ComputeSnapshotRoot(kind.GetKindName(), operatorId, date, block, result.WrittenRows)
	if err != nil {
		return nil, err
	}
	out.Root = root

	_ = m.metricsSink.Incr(metricsTypes.Metric_Incr_SnapshotsWritten, metrics.KindLabel(kind.GetKindName()), 1)
	return out, nil
}

// MaterializeOperator snapshots every kind with a snapshot table. Kinds fail
// independently; the reference memo is cleared afterwards.
func (m *Materializer) MaterializeOperator(ctx context.Context, kinds []types.IStateKind, operatorId string, date time.Time) ([]*SnapshotResult, []error) {
	defer m.reconstructor.ClearReferenceCache()

	results := make([]*SnapshotResult, 0, len(kinds))
	errs := make([]error, 0)
	for _, kind := range kinds {
		if kind.SnapshotTable() == "" {
			continue
		}
		res, err := m.Materialize(ctx, kind, operatorId, date)
		if err != nil {
			m.logger.Sugar().Errorw("Failed to materialize snapshot",
				zap.Error(err),
				zap.String("operatorId", operatorId),
				zap.String("kind", kind.GetKindName()),
				zap.String("date", NormalizeDate(date).Format(time.DateOnly)),
			)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errs
}
