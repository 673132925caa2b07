package reconstructor

import (
	"context"
	"time"

	"github.com/Layr-Labs/operator-state/internal/metrics"
	"github.com/Layr-Labs/operator-state/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/postgres"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

type Reconstructor struct {
	source      events.EventSource
	store       storage.StateStore
	resolver    *validation.ReferenceResolver
	metricsSink *metrics.MetricsSink
	logger      *zap.Logger

	// Now stamps updated_at on current-state rows.
	Now func() time.Time
}

func NewReconstructor(
	source events.EventSource,
	store storage.StateStore,
	resolver *validation.ReferenceResolver,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *Reconstructor {
	return &Reconstructor{
		source:      source,
		store:       store,
		resolver:    resolver,
		metricsSink: ms,
		logger:      l,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *Reconstructor) fetchEvents(ctx context.Context, kind types.IStateKind, operatorId string, upToBlock *uint64) (*events.EventSet, error) {
	queries, err := kind.BuildFetch(operatorId, upToBlock)
	if err != nil {
		return nil, err
	}
	set := events.NewEventSet()
	for _, q := range queries {
		evs, err := r.source.FetchEvents(ctx, q)
		if err != nil {
			return nil, xerrors.Errorf("%s: %w", q.Table, err)
		}
		set.Add(q.Table, evs)
	}
	return set, nil
}

func (r *Reconstructor) fetch(ctx context.Context, kind types.IStateKind, operatorId string, upToBlock *uint64, asOf time.Time) ([]storage.Row, *events.EventSet, error) {
	set, err := r.fetchEvents(ctx, kind, operatorId, upToBlock)
	if err != nil {
		return nil, nil, &FetchError{OperatorId: operatorId, Kind: kind.GetKindName(), Err: err}
	}
	rows, err := kind.Resolve(&types.ResolveContext{
		OperatorId: operatorId,
		UpToBlock:  upToBlock,
		AsOf:       asOf,
	}, set)
	if err != nil {
		return nil, set, &FetchError{OperatorId: operatorId, Kind: kind.GetKindName(), Err: err}
	}
	return rows, set, nil
}

// FetchState reads every table the kind needs, bounded by upToBlock, and
// resolves the events into rows. No rows is a valid outcome. Failures are
// returned as *FetchError.
func (r *Reconstructor) FetchState(ctx context.Context, kind types.IStateKind, operatorId string, upToBlock *uint64, asOf time.Time) ([]storage.Row, error) {
	rows, _, err := r.fetch(ctx, kind, operatorId, upToBlock, asOf)
	return rows, err
}

// InsertState writes rows one at a time. A failing row is logged and
// skipped; only a kind that cannot build its upsert fails the call.
func (r *Reconstructor) InsertState(ctx context.Context, kind types.IStateKind, operatorId string, rows []storage.Row, isSnapshot bool) (*Result, error) {
	result := &Result{
		Kind:        kind.GetKindName(),
		OperatorId:  operatorId,
		IsSnapshot:  isSnapshot,
		RowsFetched: len(rows),
	}
	if len(rows) == 0 {
		return result, nil
	}

	spec, err := kind.BuildUpsert(isSnapshot)
	if err != nil {
		return result, err
	}

	for _, row := range rows {
		rr := r.insertRow(ctx, kind, spec, row, isSnapshot)
		result.Add(rr)
		if rr.Outcome == Outcome_Written {
			continue
		}
		r.logSkip(kind, operatorId, rr)
		_ = r.metricsSink.Incr(metricsTypes.Metric_Incr_RowsSkipped, []metricsTypes.MetricsLabel{
			{Name: "kind", Value: kind.GetKindName()},
			{Name: "reason", Value: string(rr.Outcome)},
		}, 1)
	}
	_ = r.metricsSink.Incr(metricsTypes.Metric_Incr_RowsInserted, metrics.KindLabel(kind.GetKindName()), float64(result.RowsWritten))
	return result, nil
}

func (r *Reconstructor) insertRow(ctx context.Context, kind types.IStateKind, spec *storage.UpsertSpec, row storage.Row, isSnapshot bool) *RowResult {
	validated, err := kind.GetValidator().Validate(ctx, row, r.resolver)
	if err != nil {
		return &RowResult{Row: row, Outcome: classify(err), Err: err}
	}

	key, hasKey := kind.DeriveKey(validated, isSnapshot)
	if hasKey {
		validated[types.Column_Id] = key
	}
	if !isSnapshot {
		validated[types.Column_UpdatedAt] = r.Now()
	}

	affected, err := r.store.Upsert(ctx, spec, validated)
	if err != nil {
		return &RowResult{Row: validated, Key: key, Outcome: Outcome_StoreFailed, Err: err}
	}
	return &RowResult{Row: validated, Key: key, Outcome: Outcome_Written, Affected: affected}
}

func (r *Reconstructor) logSkip(kind types.IStateKind, operatorId string, rr *RowResult) {
	fields := []interface{}{
		zap.String("operatorId", operatorId),
		zap.String("kind", kind.GetKindName()),
		zap.String("reason", string(rr.Outcome)),
		zap.Error(rr.Err),
	}
	if txHash, ok := rr.Row.String("transaction_hash"); ok {
		fields = append(fields, zap.String("transactionHash", txHash))
	}
	if rr.Key != "" {
		fields = append(fields, zap.String("key", rr.Key))
	}
	switch {
	case rr.Outcome == Outcome_ReferenceFailed:
		r.logger.Sugar().Warnw("Skipping row with unresolvable reference", fields...)
	case rr.Outcome == Outcome_StoreFailed && postgres.IsForeignKeyError(rr.Err):
		r.logger.Sugar().Warnw("Skipping row rejected by foreign key", fields...)
	case rr.Outcome == Outcome_StoreFailed:
		r.logger.Sugar().Warnw("Skipping row rejected by store", fields...)
	default:
		r.logger.Sugar().Warnw("Skipping invalid row", fields...)
	}
}

// ReconstructKind runs fetch and insert for one kind on the current-state
// path, or on the snapshot path when stamp is non-nil.
func (r *Reconstructor) ReconstructKind(
	ctx context.Context,
	kind types.IStateKind,
	operatorId string,
	upToBlock *uint64,
	asOf time.Time,
	stamp func(storage.Row),
) (*Result, error) {
	rows, set, err := r.fetch(ctx, kind, operatorId, upToBlock, asOf)
	if err != nil {
		_ = r.metricsSink.Incr(metricsTypes.Metric_Incr_FetchErrors, metrics.KindLabel(kind.GetKindName()), 1)
		return nil, err
	}
	_ = r.metricsSink.Incr(metricsTypes.Metric_Incr_RowsFetched, metrics.KindLabel(kind.GetKindName()), float64(len(rows)))

	isSnapshot := stamp != nil
	if isSnapshot {
		for _, row := range rows {
			stamp(row)
		}
	}
	result, err := r.InsertState(ctx, kind, operatorId, rows, isSnapshot)
	if result != nil {
		result.EventsFetched = set.Count()
		result.MaxBlock = set.MaxBlock()
	}
	return result, err
}

// Rebuild reconstructs the current state of every kind for one operator.
// Kinds fail independently. The reference memo is cleared afterwards.
func (r *Reconstructor) Rebuild(ctx context.Context, kinds []types.IStateKind, operatorId string, upToBlock *uint64) *OperatorResult {
	defer r.ClearReferenceCache()

	out := &OperatorResult{OperatorId: operatorId}
	asOf := r.Now()
	for _, kind := range kinds {
		if kind.CurrentTable() == "" {
			continue
		}
		result, err := r.ReconstructKind(ctx, kind, operatorId, upToBlock, asOf, nil)
		if err != nil {
			var fetchErr *FetchError
			if xerrors.As(err, &fetchErr) {
				out.FetchErrors = append(out.FetchErrors, fetchErr)
			} else {
				out.FetchErrors = append(out.FetchErrors, &FetchError{OperatorId: operatorId, Kind: kind.GetKindName(), Err: err})
			}
			r.logger.Sugar().Errorw("Failed to reconstruct kind",
				zap.Error(err),
				zap.String("operatorId", operatorId),
				zap.String("kind", kind.GetKindName()),
			)
			continue
		}
		out.Kinds = append(out.Kinds, result)
	}
	r.logger.Sugar().Debugw("Rebuilt operator",
		zap.String("operatorId", operatorId),
		zap.Int("eventsFetched", out.EventsFetched()),
		zap.Int("rowsWritten", out.RowsWritten()),
		zap.Int("rowsSkipped", out.RowsSkipped()),
	)
	return out
}

// ClearReferenceCache ends the reference memo scope for one operator.
func (r *Reconstructor) ClearReferenceCache() {
	r.resolver.ClearCache()
}
