package storage

import "context"

// StateStore is the write side of the engine. Every mutation is an upsert by
// key, which is the only concurrency control the engine relies on.
type StateStore interface {
	// Upsert writes row according to spec and returns the number of rows affected.
	Upsert(ctx context.Context, spec *UpsertSpec, row Row) (int64, error)

	ReferenceExists(ctx context.Context, table string, id string) (bool, error)

	// CreateReference inserts ref if absent. An existing row is not an error.
	CreateReference(ctx context.Context, ref *ReferenceEntity) error

	// ListRows returns every row of a derived table belonging to operatorId.
	ListRows(ctx context.Context, table string, operatorId string) ([]Row, error)

	SaveOperatorState(ctx context.Context, state *OperatorState) error

	// GetCheckpoint returns nil without error when no checkpoint exists yet.
	GetCheckpoint(ctx context.Context, pipelineName string) (*Checkpoint, error)

	SaveCheckpoint(ctx context.Context, cp *Checkpoint) error
}
