package memoryStore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Layr-Labs/operator-state/pkg/storage"
	"golang.org/x/xerrors"
)

type table struct {
	rows   map[string]storage.Row
	nextId uint64
}

// MemoryStore is an in-memory StateStore with the same upsert semantics as
// the postgres store. It is safe for concurrent use.
type MemoryStore struct {
	mu             sync.RWMutex
	tables         map[string]*table
	references     map[string]map[string]*storage.ReferenceEntity
	operatorStates map[string]*storage.OperatorState
	checkpoints    map[string]*storage.Checkpoint

	// FailUpsertWhen lets tests inject store-level constraint failures.
	FailUpsertWhen func(spec *storage.UpsertSpec, row storage.Row) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables:         make(map[string]*table),
		references:     make(map[string]map[string]*storage.ReferenceEntity),
		operatorStates: make(map[string]*storage.OperatorState),
		checkpoints:    make(map[string]*storage.Checkpoint),
	}
}

func conflictKey(spec *storage.UpsertSpec, row storage.Row) (string, error) {
	parts := make([]string, 0, len(spec.ConflictColumns))
	for _, c := range spec.ConflictColumns {
		v, ok := row[c]
		if !ok || v == nil {
			return "", xerrors.Errorf("null value in conflict column %s of %s", c, spec.Table)
		}
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return strings.Join(parts, "|"), nil
}

func (m *MemoryStore) Upsert(ctx context.Context, spec *storage.UpsertSpec, row storage.Row) (int64, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if m.FailUpsertWhen != nil {
		if err := m.FailUpsertWhen(spec, row); err != nil {
			return 0, err
		}
	}
	key, err := conflictKey(spec, row)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[spec.Table]
	if !ok {
		t = &table{rows: make(map[string]storage.Row)}
		m.tables[spec.Table] = t
	}

	existing, ok := t.rows[key]
	if !ok {
		inserted := row.Copy()
		if _, hasId := inserted["id"]; !hasId {
			t.nextId++
			inserted["id"] = t.nextId
		}
		t.rows[key] = inserted
		return 1, nil
	}
	if spec.DoNothing {
		return 0, nil
	}
	for _, c := range spec.UpdateColumns {
		existing[c] = row[c]
	}
	return 1, nil
}

func (m *MemoryStore) ReferenceExists(ctx context.Context, tableName string, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.references[tableName][id]
	return ok, nil
}

func (m *MemoryStore) CreateReference(ctx context.Context, ref *storage.ReferenceEntity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ref.Table == storage.ReferenceTable_OperatorSets {
		if _, ok := m.references[storage.ReferenceTable_Avs][ref.ParentId]; !ok {
			return xerrors.Errorf("operator set %s references missing avs %s", ref.Id, ref.ParentId)
		}
	}
	refs, ok := m.references[ref.Table]
	if !ok {
		refs = make(map[string]*storage.ReferenceEntity)
		m.references[ref.Table] = refs
	}
	if _, exists := refs[ref.Id]; exists {
		return nil
	}
	copied := *ref
	refs[ref.Id] = &copied
	return nil
}

func (m *MemoryStore) ListRows(ctx context.Context, tableName string, operatorId string) ([]storage.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.Row, 0)
	t, ok := m.tables[tableName]
	if !ok {
		return out, nil
	}
	keys := make([]string, 0, len(t.rows))
	for k, r := range t.rows {
		if id, _ := r.String("operator_id"); id == operatorId {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, t.rows[k].Copy())
	}
	return out, nil
}

func (m *MemoryStore) SaveOperatorState(ctx context.Context, state *storage.OperatorState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.operatorStates[state.OperatorId] = &copied
	return nil
}

func (m *MemoryStore) GetCheckpoint(ctx context.Context, pipelineName string) (*storage.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.checkpoints[pipelineName]
	if !ok {
		return nil, nil
	}
	copied := *cp
	return &copied, nil
}

func (m *MemoryStore) SaveCheckpoint(ctx context.Context, cp *storage.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *cp
	m.checkpoints[cp.PipelineName] = &copied
	return nil
}

// Rows returns every row of a table, ordered by conflict key.
func (m *MemoryStore) Rows(tableName string) []storage.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[tableName]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]storage.Row, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.rows[k].Copy())
	}
	return out
}

// References returns the ids present in a reference table, sorted.
func (m *MemoryStore) References(tableName string) []*storage.ReferenceEntity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*storage.ReferenceEntity, 0)
	for _, r := range m.references[tableName] {
		copied := *r
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

func (m *MemoryStore) OperatorState(operatorId string) *storage.OperatorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.operatorStates[operatorId]
	if !ok {
		return nil
	}
	copied := *s
	return &copied
}
