package memorySource

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"golang.org/x/xerrors"
)

type storedEvent struct {
	event     *events.Event
	createdAt time.Time
}

// MemorySource is an in-memory EventSource. Events may be appended in any
// order; reads always come back in chain order.
type MemorySource struct {
	mu     sync.RWMutex
	tables map[string][]*storedEvent

	// FailFor makes FetchEvents return an error for the given operator id.
	FailFor map[string]error
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		tables:  make(map[string][]*storedEvent),
		FailFor: make(map[string]error),
	}
}

// EventInput describes an event to append. Payload is marshalled to JSON.
type EventInput struct {
	Table           string
	OperatorId      string
	BlockNumber     uint64
	LogIndex        uint64
	BlockTimestamp  int64
	TransactionHash string
	CreatedAt       time.Time
	Payload         interface{}
}

func (m *MemorySource) Append(in *EventInput) error {
	if !events.IsKnownTable(in.Table) {
		return xerrors.Errorf("unknown event table '%s'", in.Table)
	}
	payload, err := marshalPayload(in)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[in.Table] = append(m.tables[in.Table], &storedEvent{
		event: &events.Event{
			Table:           in.Table,
			OperatorId:      in.OperatorId,
			BlockNumber:     in.BlockNumber,
			LogIndex:        in.LogIndex,
			BlockTimestamp:  in.BlockTimestamp,
			TransactionHash: in.TransactionHash,
			Payload:         payload,
		},
		createdAt: in.CreatedAt,
	})
	return nil
}

// marshalPayload mirrors to_jsonb(row): the common columns are merged with
// the event-specific payload.
func marshalPayload(in *EventInput) (string, error) {
	fields := map[string]interface{}{}
	if in.Payload != nil {
		raw, err := json.Marshal(in.Payload)
		if err != nil {
			return "", err
		}
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()
		if err := decoder.Decode(&fields); err != nil {
			return "", err
		}
	}
	fields["operator_id"] = in.OperatorId
	fields["block_number"] = in.BlockNumber
	fields["log_index"] = in.LogIndex
	fields["block_timestamp"] = in.BlockTimestamp
	fields["transaction_hash"] = in.TransactionHash

	out, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (m *MemorySource) FetchEvents(ctx context.Context, q *events.EventQuery) ([]*events.Event, error) {
	if _, _, err := q.Build(); err != nil {
		return nil, err
	}
	if err, ok := m.FailFor[q.OperatorId]; ok {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*events.Event, 0)
	for _, se := range m.tables[q.Table] {
		if q.Matches(se.event) {
			copied := *se.event
			out = append(out, &copied)
		}
	}
	events.SortEvents(out)
	return out, nil
}

func (m *MemorySource) ChangedOperatorsSince(ctx context.Context, tables []string, cursor time.Time) ([]string, error) {
	if _, _, err := events.BuildChangedOperatorsQuery(tables, cursor); err != nil {
		return nil, err
	}
	return m.collectOperators(tables, func(se *storedEvent) bool {
		return se.createdAt.After(cursor)
	}), nil
}

func (m *MemorySource) SnapshotBlockForDate(ctx context.Context, tables []string, snapshotDate time.Time) (uint64, bool, error) {
	if _, _, err := events.BuildSnapshotBlockQuery(tables, snapshotDate); err != nil {
		return 0, false, err
	}
	dayEnd := events.DayEnd(snapshotDate).Unix()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var block uint64
	found := false
	for _, t := range tables {
		for _, se := range m.tables[t] {
			if se.event.BlockTimestamp < dayEnd && (!found || se.event.BlockNumber > block) {
				block = se.event.BlockNumber
				found = true
			}
		}
	}
	return block, found, nil
}

func (m *MemorySource) ActiveOperatorsAtBlock(ctx context.Context, tables []string, block uint64) ([]string, error) {
	if _, _, err := events.BuildActiveOperatorsQuery(tables, block); err != nil {
		return nil, err
	}
	return m.collectOperators(tables, func(se *storedEvent) bool {
		return se.event.BlockNumber <= block
	}), nil
}

func (m *MemorySource) collectOperators(tables []string, include func(se *storedEvent) bool) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, t := range tables {
		for _, se := range m.tables[t] {
			if include(se) {
				seen[se.event.OperatorId] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
