package events

import (
	"context"
	"time"
)

// EventSource is the read-only view of the append-only event tables.
type EventSource interface {
	// FetchEvents returns the events matching q in (block_number, log_index) order.
	FetchEvents(ctx context.Context, q *EventQuery) ([]*Event, error)

	// ChangedOperatorsSince returns operator ids with events ingested after cursor.
	ChangedOperatorsSince(ctx context.Context, tables []string, cursor time.Time) ([]string, error)

	// SnapshotBlockForDate returns the highest block whose timestamp falls on or
	// before snapshotDate. found is false when no such block exists.
	SnapshotBlockForDate(ctx context.Context, tables []string, snapshotDate time.Time) (block uint64, found bool, err error)

	// ActiveOperatorsAtBlock returns operator ids with any event at or before block.
	ActiveOperatorsAtBlock(ctx context.Context, tables []string, block uint64) ([]string, error)
}
