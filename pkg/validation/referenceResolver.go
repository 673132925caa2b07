package validation

import (
	"context"
	"strconv"
	"strings"

	"github.com/Layr-Labs/operator-state/pkg/postgres"
	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// CreationStrategy builds the reference row to insert for an unseen id.
type CreationStrategy func(id string) (*storage.ReferenceEntity, error)

type referenceType struct {
	create      CreationStrategy
	parentTable string
}

// ReferenceResolver makes sure referenced parent rows exist, creating them
// on first sight. Existence checks are memoized until ClearCache is called.
type ReferenceResolver struct {
	store    storage.StateStore
	logger   *zap.Logger
	registry map[string]*referenceType
	memo     *xsync.Map[string, struct{}]
}

func NewReferenceResolver(store storage.StateStore, l *zap.Logger) *ReferenceResolver {
	r := &ReferenceResolver{
		store:    store,
		logger:   l,
		registry: make(map[string]*referenceType),
		memo:     xsync.NewMap[string, struct{}](),
	}
	r.Register(storage.ReferenceTable_Operators, SimpleEntity(storage.ReferenceTable_Operators), "")
	r.Register(storage.ReferenceTable_Avs, SimpleEntity(storage.ReferenceTable_Avs), "")
	r.Register(storage.ReferenceTable_Stakers, SimpleEntity(storage.ReferenceTable_Stakers), "")
	r.Register(storage.ReferenceTable_Strategies, SimpleEntity(storage.ReferenceTable_Strategies), "")
	r.Register(storage.ReferenceTable_OperatorSets, OperatorSetEntity, storage.ReferenceTable_Avs)
	return r
}

// Register installs the creation strategy for table. When parentTable is set,
// the entity's ParentId is resolved in that table before the entity is created.
func (r *ReferenceResolver) Register(table string, create CreationStrategy, parentTable string) {
	r.registry[table] = &referenceType{
		create:      create,
		parentTable: parentTable,
	}
}

func memoKey(table string, id string) string {
	return table + ":" + id
}

func (r *ReferenceResolver) EnsureExists(ctx context.Context, table string, id string) error {
	key := memoKey(table, id)
	if _, ok := r.memo.Load(key); ok {
		return nil
	}

	exists, err := r.store.ReferenceExists(ctx, table, id)
	if err != nil {
		return xerrors.Errorf("failed to check %s(%s): %w", table, id, err)
	}
	if !exists {
		if err := r.create(ctx, table, id); err != nil {
			return err
		}
	}
	r.memo.Store(key, struct{}{})
	return nil
}

func (r *ReferenceResolver) create(ctx context.Context, table string, id string) error {
	rt, ok := r.registry[table]
	if !ok {
		return xerrors.Errorf("no creation strategy registered for %s", table)
	}
	ref, err := rt.create(id)
	if err != nil {
		return err
	}
	if rt.parentTable != "" {
		if ref.ParentId == "" {
			return xerrors.Errorf("%s(%s) has no parent id", table, id)
		}
		if err := r.EnsureExists(ctx, rt.parentTable, ref.ParentId); err != nil {
			return err
		}
	}

	err = r.store.CreateReference(ctx, ref)
	if err != nil && !postgres.IsDuplicateKeyError(err) {
		return xerrors.Errorf("failed to create %s(%s): %w", table, id, err)
	}
	r.logger.Sugar().Debugw("Created missing reference",
		zap.String("table", table),
		zap.String("id", id),
	)
	return nil
}

// ClearCache drops the existence memo. Called after each operator.
func (r *ReferenceResolver) ClearCache() {
	r.memo.Clear()
}

func (r *ReferenceResolver) CacheSize() int {
	return r.memo.Size()
}

// SimpleEntity creates id+address rows. Hex addresses are stored lowercased.
func SimpleEntity(table string) CreationStrategy {
	return func(id string) (*storage.ReferenceEntity, error) {
		if id == "" {
			return nil, xerrors.Errorf("empty id for %s", table)
		}
		return &storage.ReferenceEntity{
			Table:   table,
			Id:      id,
			Address: NormalizeAddress(id),
		}, nil
	}
}

// OperatorSetEntity parses "<avs>-<index>" into the parent AVS and index.
func OperatorSetEntity(id string) (*storage.ReferenceEntity, error) {
	avs, index, err := ParseOperatorSetId(id)
	if err != nil {
		return nil, err
	}
	return &storage.ReferenceEntity{
		Table:    storage.ReferenceTable_OperatorSets,
		Id:       id,
		ParentId: avs,
		Index:    &index,
	}, nil
}

func ParseOperatorSetId(id string) (string, uint64, error) {
	sep := strings.LastIndex(id, "-")
	if sep <= 0 || sep == len(id)-1 {
		return "", 0, xerrors.Errorf("operator set id '%s' is not of the form <avs>-<index>", id)
	}
	index, err := strconv.ParseUint(id[sep+1:], 10, 64)
	if err != nil {
		return "", 0, xerrors.Errorf("operator set id '%s' has a non-numeric index: %w", id, err)
	}
	return id[:sep], index, nil
}

func NormalizeAddress(s string) string {
	if common.IsHexAddress(s) {
		return strings.ToLower(common.HexToAddress(s).Hex())
	}
	return strings.ToLower(s)
}

func isHexAddress(s string) bool {
	return common.IsHexAddress(s)
}
