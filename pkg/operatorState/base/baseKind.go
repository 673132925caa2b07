package base

import (
	"strings"
	"time"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Natural key of every append-only history table.
var AppendOnlyKey = []string{types.Column_OperatorId, "transaction_hash", "log_index"}

type BaseKind struct {
	Spec   *types.KindSpec
	Logger *zap.Logger
}

func NewBaseKind(spec *types.KindSpec, l *zap.Logger) BaseKind {
	if spec.AppendOnly && len(spec.NaturalKey) == 0 {
		spec.NaturalKey = AppendOnlyKey
	}
	return BaseKind{Spec: spec, Logger: l}
}

func (b *BaseKind) GetKindName() string {
	return b.Spec.Name
}

func (b *BaseKind) EventTables() []string {
	return b.Spec.Tables
}

func (b *BaseKind) CurrentTable() string {
	return b.Spec.CurrentTable
}

func (b *BaseKind) SnapshotTable() string {
	return b.Spec.SnapshotTable
}

// BuildFetch emits one query per event table, all sharing the same bound.
func (b *BaseKind) BuildFetch(operatorId string, upToBlock *uint64) ([]*events.EventQuery, error) {
	if operatorId == "" {
		return nil, xerrors.Errorf("%s: operator id is required", b.Spec.Name)
	}
	queries := make([]*events.EventQuery, 0, len(b.Spec.Tables))
	for _, table := range b.Spec.Tables {
		if !events.IsKnownTable(table) {
			return nil, xerrors.Errorf("%s: unknown event table '%s'", b.Spec.Name, table)
		}
		queries = append(queries, events.NewEventQuery(table, operatorId, upToBlock))
	}
	return queries, nil
}

func (b *BaseKind) BuildUpsert(isSnapshot bool) (*storage.UpsertSpec, error) {
	var spec *storage.UpsertSpec
	switch {
	case isSnapshot:
		if b.Spec.SnapshotTable == "" {
			return nil, xerrors.Errorf("%s has no snapshot table", b.Spec.Name)
		}
		spec = &storage.UpsertSpec{
			Table:           b.Spec.SnapshotTable,
			ConflictColumns: append(append([]string{}, b.Spec.NaturalKey...), types.Column_SnapshotDate),
			UpdateColumns:   append(b.nonKeyValueColumns(), types.Column_SnapshotBlock),
		}
	case b.Spec.CurrentTable == "":
		return nil, xerrors.Errorf("%s is snapshot-only", b.Spec.Name)
	case b.Spec.AppendOnly:
		spec = &storage.UpsertSpec{
			Table:           b.Spec.CurrentTable,
			ConflictColumns: append([]string{}, b.Spec.NaturalKey...),
			DoNothing:       true,
		}
	default:
		spec = &storage.UpsertSpec{
			Table:           b.Spec.CurrentTable,
			ConflictColumns: []string{types.Column_Id},
			UpdateColumns:   append(b.nonKeyValueColumns(), types.Column_UpdatedAt),
		}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// DeriveKey joins the natural-key values with "-", skipping empty parts. The
// snapshot path and append-only kinds have no composite key.
func (b *BaseKind) DeriveKey(row storage.Row, isSnapshot bool) (string, bool) {
	if isSnapshot || b.Spec.AppendOnly || b.Spec.CurrentTable == "" {
		return "", false
	}
	parts := make([]string, 0, len(b.Spec.NaturalKey))
	for _, col := range b.Spec.NaturalKey {
		v, ok := row.String(col)
		if !ok || v == "" {
			continue
		}
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "-"), true
}

func (b *BaseKind) nonKeyValueColumns() []string {
	keys := make(map[string]struct{}, len(b.Spec.NaturalKey))
	for _, k := range b.Spec.NaturalKey {
		keys[k] = struct{}{}
	}
	cols := make([]string, 0, len(b.Spec.ValueColumns))
	for _, c := range b.Spec.ValueColumns {
		if _, ok := keys[c]; !ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// NewRow starts a row for the operator.
func NewRow(operatorId string) storage.Row {
	return storage.Row{types.Column_OperatorId: operatorId}
}

// EventRow starts a row carrying the event's identity columns, used by
// append-only kinds.
func EventRow(e *events.Event) storage.Row {
	return storage.Row{
		types.Column_OperatorId: e.OperatorId,
		"transaction_hash":      e.TransactionHash,
		"log_index":             e.LogIndex,
	}
}

// TimePtr returns nil for the zero time.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func Uint64Ptr(v uint64) *uint64 {
	return &v
}
