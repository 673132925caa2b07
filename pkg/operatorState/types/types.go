package types

import (
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/validation"
)

// ResolveContext carries the inputs that bound a reconstruction. UpToBlock nil
// means "all events". AsOf stands in for "now" wherever a kind measures time
// against the present, so that snapshot runs never depend on the wall clock.
type ResolveContext struct {
	OperatorId string
	UpToBlock  *uint64
	AsOf       time.Time
}

// IStateKind is implemented by every derived-state kind.
type IStateKind interface {
	// GetKindName
	// Stable name used in logs, metrics and checkpoint metadata
	GetKindName() string

	// EventTables
	// Every event table the kind reads
	EventTables() []string

	// BuildFetch
	// One bounded query per event table. The same upToBlock is applied to all of them.
	BuildFetch(operatorId string, upToBlock *uint64) ([]*events.EventQuery, error)

	// Resolve
	// Turn the fetched events into derived rows
	Resolve(rc *ResolveContext, evs *events.EventSet) ([]storage.Row, error)

	// BuildUpsert
	// Describe how rows are written for the current path or the snapshot path
	BuildUpsert(isSnapshot bool) (*storage.UpsertSpec, error)

	// DeriveKey
	// Composite key for the row. ok is false for append-only kinds, which rely
	// on the store to assign an id.
	DeriveKey(row storage.Row, isSnapshot bool) (key string, ok bool)

	// GetValidator
	// Field declaration used to normalize rows before they are written
	GetValidator() *validation.FieldValidator

	// CurrentTable is empty for snapshot-only kinds.
	CurrentTable() string

	// SnapshotTable is empty for kinds that are never snapshotted.
	SnapshotTable() string
}

// KindSpec is the static description of a kind's storage shape.
type KindSpec struct {
	Name          string
	CurrentTable  string
	SnapshotTable string
	NaturalKey    []string
	ValueColumns  []string
	Tables        []string
	AppendOnly    bool
}
