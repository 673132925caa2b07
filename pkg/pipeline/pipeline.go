package pipeline

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Layr-Labs/operator-state/internal/config"
	"github.com/Layr-Labs/operator-state/internal/metrics"
	"github.com/Layr-Labs/operator-state/internal/metrics/metricsTypes"
	"github.com/Layr-Labs/operator-state/pkg/aggregator"
	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/reconstructor"
	"github.com/Layr-Labs/operator-state/pkg/snapshot"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

type Pipeline struct {
	source        events.EventSource
	store         storage.StateStore
	kindManager   *kindManager.KindManager
	reconstructor *reconstructor.Reconstructor
	materializer  *snapshot.Materializer
	aggregator    *aggregator.Aggregator
	metricsSink   *metrics.MetricsSink
	logger        *zap.Logger
	globalConfig  *config.Config

	// OnOperatorProcessed is called once per operator after its fold.
	OnOperatorProcessed OperatorProcessedHook

	Now func() time.Time
}

func NewPipeline(
	source events.EventSource,
	store storage.StateStore,
	km *kindManager.KindManager,
	rc *reconstructor.Reconstructor,
	m *snapshot.Materializer,
	agg *aggregator.Aggregator,
	ms *metrics.MetricsSink,
	l *zap.Logger,
	cfg *config.Config,
) *Pipeline {
	return &Pipeline{
		source:        source,
		store:         store,
		kindManager:   km,
		reconstructor: rc,
		materializer:  m,
		aggregator:    agg,
		metricsSink:   ms,
		logger:        l,
		globalConfig:  cfg,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

type RunResult struct {
	ChangedOperators []string
	Summary          *aggregator.RunSummary
	Checkpoint       *storage.Checkpoint
}

// runTally accumulates counters across workers.
type runTally struct {
	operators          atomic.Uint64
	events             atomic.Uint64
	fetchErrors        atomic.Uint64
	aggregationErrors  atomic.Uint64
	lastProcessedBlock atomic.Uint64
	kindRows           *xsync.Map[string, uint64]
}

func newRunTally() *runTally {
	return &runTally{kindRows: xsync.NewMap[string, uint64]()}
}

func (t *runTally) record(res *reconstructor.OperatorResult) {
	t.events.Add(uint64(res.EventsFetched()))
	t.fetchErrors.Add(uint64(len(res.FetchErrors)))
	for _, k := range res.Kinds {
		written := uint64(k.RowsWritten)
		t.kindRows.Compute(k.Kind, func(old uint64, loaded bool) (uint64, xsync.ComputeOp) {
			return old + written, xsync.UpdateOp
		})
	}
	block := res.MaxBlock()
	for {
		current := t.lastProcessedBlock.Load()
		if block <= current || t.lastProcessedBlock.CompareAndSwap(current, block) {
			return
		}
	}
}

// ChangedOperators returns the operators with events ingested after the
// pipeline's checkpoint, along with that cursor.
func (p *Pipeline) ChangedOperators(ctx context.Context) ([]string, time.Time, error) {
	cursor, err := aggregator.LoadCursor(ctx, p.store, p.globalConfig.GetPipelineName())
	if err != nil {
		return nil, time.Time{}, err
	}
	ops, err := p.source.ChangedOperatorsSince(ctx, p.kindManager.EventTables(), cursor)
	if err != nil {
		return nil, cursor, xerrors.Errorf("failed to list changed operators: %w", err)
	}
	slices.Sort(ops)
	return slices.Compact(ops), cursor, nil
}

// Run performs one incremental pass: every changed operator is rebuilt and
// folded, then the checkpoint moves to the time the pass started.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	issuedAt := p.Now()
	pipelineName := p.globalConfig.GetPipelineName()

	ops, cursor, err := p.ChangedOperators(ctx)
	if err != nil {
		p.logger.Sugar().Errorw("Failed to get changed operators", zap.Error(err), zap.String("pipeline", pipelineName))
		return nil, err
	}
	_ = p.metricsSink.Gauge(metricsTypes.Metric_Gauge_ChangedOperators, float64(len(ops)), nil)
	p.logger.Sugar().Infow("Starting pipeline run",
		zap.String("pipeline", pipelineName),
		zap.Time("cursor", cursor),
		zap.Int("changedOperators", len(ops)),
	)

	tally := newRunTally()
	kinds := p.kindManager.CurrentKinds()
	err = p.forEachOperator(ctx, ops, func(ctx context.Context, operatorId string) {
		p.processOperator(ctx, kinds, operatorId, tally, len(ops))
	})
	if err != nil {
		p.logger.Sugar().Errorw("Pipeline run interrupted; checkpoint not advanced",
			zap.Error(err),
			zap.String("pipeline", pipelineName),
			zap.Uint64("operatorsProcessed", tally.operators.Load()),
		)
		return nil, err
	}

	summary := aggregator.NewRunSummary(pipelineName, issuedAt)
	summary.OperatorsProcessed = tally.operators.Load()
	summary.EventsProcessed = tally.events.Load()
	summary.FetchErrors = tally.fetchErrors.Load()
	summary.AggregationErrors = tally.aggregationErrors.Load()
	summary.LastProcessedBlock = tally.lastProcessedBlock.Load()
	summary.Duration = time.Since(start)
	for _, kind := range kinds {
		if rows, ok := tally.kindRows.Load(kind.GetKindName()); ok {
			summary.AddKindRows(kind.GetKindName(), rows)
		}
	}

	cp, err := aggregator.AdvanceCheckpoint(ctx, p.store, summary, p.Now())
	if err != nil {
		p.logger.Sugar().Errorw("Failed to advance checkpoint", zap.Error(err), zap.String("pipeline", pipelineName))
		return nil, err
	}
	_ = p.metricsSink.Gauge(metricsTypes.Metric_Gauge_LastProcessedBlock, float64(cp.LastProcessedBlock), nil)
	_ = p.metricsSink.Timing(metricsTypes.Metric_Timing_RunDuration, summary.Duration, nil)

	p.logger.Sugar().Infow("Completed pipeline run",
		zap.String("pipeline", pipelineName),
		zap.Uint64("operatorsProcessed", summary.OperatorsProcessed),
		zap.Uint64("eventsProcessed", summary.EventsProcessed),
		zap.Uint64("fetchErrors", summary.FetchErrors),
		zap.Uint64("aggregationErrors", summary.AggregationErrors),
		zap.Uint64("lastProcessedBlock", cp.LastProcessedBlock),
		zap.Duration("duration", summary.Duration),
	)
	return &RunResult{
		ChangedOperators: ops,
		Summary:          summary,
		Checkpoint:       cp,
	}, nil
}

func (p *Pipeline) processOperator(ctx context.Context, kinds []types.IStateKind, operatorId string, tally *runTally, total int) {
	start := time.Now()

	res := p.reconstructor.Rebuild(ctx, kinds, operatorId, nil)
	tally.record(res)

	state, err := p.aggregator.Aggregate(ctx, operatorId)
	if err != nil {
		tally.aggregationErrors.Add(1)
		_ = p.metricsSink.Incr(metricsTypes.Metric_Incr_AggregationErrors, nil, 1)
		p.logger.Sugar().Errorw("Failed to aggregate operator state",
			zap.Error(err),
			zap.String("operatorId", operatorId),
		)
	}

	processed := tally.operators.Add(1)
	_ = p.metricsSink.Incr(metricsTypes.Metric_Incr_OperatorsProcessed, nil, 1)
	_ = p.metricsSink.Timing(metricsTypes.Metric_Timing_OperatorDuration, time.Since(start), nil)

	p.handleOperatorProcessed(&OperatorProcessed{
		OperatorId: operatorId,
		Result:     res,
		State:      state,
		Err:        err,
		Processed:  processed,
		Total:      uint64(total),
	})
}

// RebuildOperator rebuilds and folds a single operator outside of a pass.
// The checkpoint is left untouched.
func (p *Pipeline) RebuildOperator(ctx context.Context, operatorId string, upToBlock *uint64) (*reconstructor.OperatorResult, *storage.OperatorState, error) {
	res := p.reconstructor.Rebuild(ctx, p.kindManager.CurrentKinds(), operatorId, upToBlock)
	state, err := p.aggregator.Aggregate(ctx, operatorId)
	if err != nil {
		return res, nil, err
	}
	return res, state, nil
}

type SnapshotRun struct {
	Date      time.Time
	Block     uint64
	Found     bool
	Operators []string
	Results   []*snapshot.SnapshotResult
	Errors    []error
}

// RowsForKind returns every row written for kind, in operator order.
func (s *SnapshotRun) RowsForKind(kind string) []storage.Row {
	rows := make([]storage.Row, 0)
	for _, r := range s.Results {
		if r.Kind != kind || r.Result == nil {
			continue
		}
		rows = append(rows, r.Result.WrittenRows...)
	}
	return rows
}

// RunSnapshots materializes every snapshot kind for every operator with
// activity on or before date. Dates with no activity at all are skipped.
func (p *Pipeline) RunSnapshots(ctx context.Context, date time.Time) (*SnapshotRun, error) {
	date = snapshot.NormalizeDate(date)
	run := &SnapshotRun{Date: date}

	block, found, err := p.materializer.SnapshotBlockForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if !found {
		p.logger.Sugar().Infow("No snapshot block for date, skipping",
			zap.String("date", date.Format(time.DateOnly)),
		)
		return run, nil
	}
	run.Block = block
	run.Found = true

	ops, err := p.source.ActiveOperatorsAtBlock(ctx, p.kindManager.EventTables(), block)
	if err != nil {
		return nil, xerrors.Errorf("failed to list active operators at block %d: %w", block, err)
	}
	slices.Sort(ops)
	run.Operators = slices.Compact(ops)

	var mu sync.Mutex
	kinds := p.kindManager.SnapshotKinds()
	err = p.forEachOperator(ctx, run.Operators, func(ctx context.Context, operatorId string) {
		results, errs := p.materializer.MaterializeOperator(ctx, kinds, operatorId, date)
		mu.Lock()
		defer mu.Unlock()
		run.Results = append(run.Results, results...)
		run.Errors = append(run.Errors, errs...)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(run.Results, func(i, j int) bool {
		if run.Results[i].OperatorId != run.Results[j].OperatorId {
			return run.Results[i].OperatorId < run.Results[j].OperatorId
		}
		return run.Results[i].Kind < run.Results[j].Kind
	})

	p.logger.Sugar().Infow("Materialized snapshots",
		zap.String("date", date.Format(time.DateOnly)),
		zap.Uint64("snapshotBlock", block),
		zap.Int("operators", len(run.Operators)),
		zap.Int("results", len(run.Results)),
		zap.Int("errors", len(run.Errors)),
	)
	return run, nil
}

// forEachOperator runs fn for every operator id. With one worker the ids are
// processed in order; otherwise they are spread over a bounded pool one chunk
// at a time. Either way the context is checked before each operator starts.
func (p *Pipeline) forEachOperator(ctx context.Context, ids []string, fn func(ctx context.Context, operatorId string)) error {
	workers := p.globalConfig.PipelineConfig.Workers
	if workers <= 1 || len(ids) <= 1 {
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(ctx, id)
		}
		return ctx.Err()
	}

	chunkSize := p.globalConfig.GetOperatorsChunkSize()
	pool := pond.NewPool(workers, pond.WithQueueSize(chunkSize))
	defer pool.StopAndWait()

	for chunk := range slices.Chunk(ids, chunkSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		group := pool.NewGroupContext(ctx)
		groupCtx := group.Context()
		for _, id := range chunk {
			operatorId := id
			group.Submit(func() {
				if err := groupCtx.Err(); err != nil {
					return
				}
				fn(groupCtx, operatorId)
			})
		}
		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
			p.logger.Sugar().Warnw("Operator worker group encountered error", zap.Error(err))
		}
	}
	return ctx.Err()
}
