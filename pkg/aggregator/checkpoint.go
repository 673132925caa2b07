package aggregator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/xerrors"
)

// RunSummary is everything a pass reports when it advances its checkpoint.
type RunSummary struct {
	PipelineName       string
	Cursor             time.Time
	LastProcessedBlock uint64
	OperatorsProcessed uint64
	EventsProcessed    uint64
	Duration           time.Duration
	FetchErrors        uint64
	AggregationErrors  uint64

	// KindRows holds rows written per kind, in kind order.
	KindRows *orderedmap.OrderedMap[string, uint64]
}

func NewRunSummary(pipelineName string, cursor time.Time) *RunSummary {
	return &RunSummary{
		PipelineName: pipelineName,
		Cursor:       cursor,
		KindRows:     orderedmap.New[string, uint64](),
	}
}

func (s *RunSummary) AddKindRows(kind string, rows uint64) {
	current, _ := s.KindRows.Get(kind)
	s.KindRows.Set(kind, current+rows)
}

func (s *RunSummary) metadata(runId string) ([]byte, error) {
	meta := orderedmap.New[string, interface{}]()
	meta.Set("run_id", runId)
	meta.Set("fetch_errors", s.FetchErrors)
	meta.Set("aggregation_errors", s.AggregationErrors)
	meta.Set("kind_rows", s.KindRows)
	return json.Marshal(meta)
}

// LoadCursor returns the last processed time for pipelineName, or the zero
// time when the pipeline has never run.
func LoadCursor(ctx context.Context, store storage.StateStore, pipelineName string) (time.Time, error) {
	cp, err := store.GetCheckpoint(ctx, pipelineName)
	if err != nil {
		return time.Time{}, xerrors.Errorf("failed to load checkpoint %s: %w", pipelineName, err)
	}
	if cp == nil {
		return time.Time{}, nil
	}
	return cp.LastProcessedAt, nil
}

// AdvanceCheckpoint writes the checkpoint once, after every operator of the
// pass has been folded.
func AdvanceCheckpoint(ctx context.Context, store storage.StateStore, s *RunSummary, now time.Time) (*storage.Checkpoint, error) {
	meta, err := s.metadata(uuid.New().String())
	if err != nil {
		return nil, xerrors.Errorf("failed to encode run metadata: %w", err)
	}
	existing, err := store.GetCheckpoint(ctx, s.PipelineName)
	if err != nil {
		return nil, xerrors.Errorf("failed to load checkpoint %s: %w", s.PipelineName, err)
	}
	cp := &storage.Checkpoint{
		PipelineName:            s.PipelineName,
		LastProcessedAt:         s.Cursor,
		LastProcessedBlock:      s.LastProcessedBlock,
		OperatorsProcessedCount: s.OperatorsProcessed,
		TotalEventsProcessed:    s.EventsProcessed,
		RunDurationSeconds:      s.Duration.Seconds(),
		RunMetadata:             string(meta),
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if existing != nil {
		cp.CreatedAt = existing.CreatedAt
		if existing.LastProcessedBlock > cp.LastProcessedBlock {
			cp.LastProcessedBlock = existing.LastProcessedBlock
		}
	}
	if err := store.SaveCheckpoint(ctx, cp); err != nil {
		return nil, xerrors.Errorf("failed to save checkpoint %s: %w", s.PipelineName, err)
	}
	return cp, nil
}
