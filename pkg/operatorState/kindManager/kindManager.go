package kindManager

import (
	"slices"

	"github.com/Layr-Labs/operator-state/pkg/operatorState/types"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// KindManager holds the closed set of derived-state kinds in a fixed order.
// Order matters only for reporting; kinds never read each other's output.
type KindManager struct {
	Kinds  map[int]types.IStateKind
	logger *zap.Logger
}

func NewKindManager(logger *zap.Logger) *KindManager {
	return &KindManager{
		Kinds:  make(map[int]types.IStateKind),
		logger: logger,
	}
}

// RegisterKind allows a kind to register itself at a fixed index.
func (k *KindManager) RegisterKind(kind types.IStateKind, index int) error {
	if existing, ok := k.Kinds[index]; ok {
		return xerrors.Errorf("index %d already belongs to %s", index, existing.GetKindName())
	}
	for _, existing := range k.Kinds {
		if existing.GetKindName() == kind.GetKindName() {
			return xerrors.Errorf("kind %s is already registered", kind.GetKindName())
		}
	}
	k.Kinds[index] = kind
	return nil
}

func (k *KindManager) GetSortedKindIndexes() []int {
	indexes := make([]int, 0, len(k.Kinds))
	for i := range k.Kinds {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)
	return indexes
}

// CurrentKinds returns every kind with a current table, in index order.
func (k *KindManager) CurrentKinds() []types.IStateKind {
	out := make([]types.IStateKind, 0)
	for _, i := range k.GetSortedKindIndexes() {
		if k.Kinds[i].CurrentTable() != "" {
			out = append(out, k.Kinds[i])
		}
	}
	return out
}

// SnapshotKinds returns every kind with a snapshot table, in index order.
func (k *KindManager) SnapshotKinds() []types.IStateKind {
	out := make([]types.IStateKind, 0)
	for _, i := range k.GetSortedKindIndexes() {
		if k.Kinds[i].SnapshotTable() != "" {
			out = append(out, k.Kinds[i])
		}
	}
	return out
}

func (k *KindManager) GetKind(name string) (types.IStateKind, bool) {
	for _, kind := range k.Kinds {
		if kind.GetKindName() == name {
			return kind, true
		}
	}
	return nil, false
}

// EventTables is the union of every table read by a registered kind.
func (k *KindManager) EventTables() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, i := range k.GetSortedKindIndexes() {
		for _, t := range k.Kinds[i].EventTables() {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
