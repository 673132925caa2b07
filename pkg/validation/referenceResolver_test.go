package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/Layr-Labs/operator-state/pkg/storage"
	"github.com/Layr-Labs/operator-state/pkg/storage/memoryStore"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingStore struct {
	*memoryStore.MemoryStore
	existsCalls int
	createCalls int
	createErr   error
}

func (c *countingStore) ReferenceExists(ctx context.Context, table string, id string) (bool, error) {
	c.existsCalls++
	return c.MemoryStore.ReferenceExists(ctx, table, id)
}

func (c *countingStore) CreateReference(ctx context.Context, ref *storage.ReferenceEntity) error {
	c.createCalls++
	if c.createErr != nil {
		return c.createErr
	}
	return c.MemoryStore.CreateReference(ctx, ref)
}

func Test_ReferenceResolver(t *testing.T) {
	ctx := context.Background()
	l := zap.NewNop()

	t.Run("Should create an unseen reference exactly once", func(t *testing.T) {
		store := &countingStore{MemoryStore: memoryStore.NewMemoryStore()}
		resolver := NewReferenceResolver(store, l)

		assert.Nil(t, resolver.EnsureExists(ctx, storage.ReferenceTable_Stakers, "0xstaker"))
		assert.Nil(t, resolver.EnsureExists(ctx, storage.ReferenceTable_Stakers, "0xstaker"))

		assert.Equal(t, 1, store.existsCalls)
		assert.Equal(t, 1, store.createCalls)
		assert.Equal(t, 1, len(store.References(storage.ReferenceTable_Stakers)))
	})
	t.Run("Should check the store again after the memo is cleared", func(t *testing.T) {
		store := &countingStore{MemoryStore: memoryStore.NewMemoryStore()}
		resolver := NewReferenceResolver(store, l)

		assert.Nil(t, resolver.EnsureExists(ctx, storage.ReferenceTable_Stakers, "0xstaker"))
		assert.Equal(t, 1, resolver.CacheSize())
		resolver.ClearCache()
		assert.Equal(t, 0, resolver.CacheSize())

		assert.Nil(t, resolver.EnsureExists(ctx, storage.ReferenceTable_Stakers, "0xstaker"))
		assert.Equal(t, 2, store.existsCalls)
		assert.Equal(t, 1, store.createCalls)
	})
	t.Run("Should create the parent avs before an operator set", func(t *testing.T) {
		store := memoryStore.NewMemoryStore()
		resolver := NewReferenceResolver(store, l)

		assert.Nil(t, resolver.EnsureExists(ctx, storage.ReferenceTable_OperatorSets, "0xavs-7"))

		sets := store.References(storage.ReferenceTable_OperatorSets)
		assert.Equal(t, 1, len(sets))
		assert.Equal(t, "0xavs", sets[0].ParentId)
		assert.Equal(t, uint64(7), *sets[0].Index)
		assert.Equal(t, 1, len(store.References(storage.ReferenceTable_Avs)))
	})
	t.Run("Should treat a concurrent duplicate insert as success", func(t *testing.T) {
		store := &countingStore{
			MemoryStore: memoryStore.NewMemoryStore(),
			createErr:   errors.New(`pq: duplicate key value violates unique constraint "stakers_pkey"`),
		}
		resolver := NewReferenceResolver(store, l)

		assert.Nil(t, resolver.EnsureExists(ctx, storage.ReferenceTable_Stakers, "0xstaker"))
	})
	t.Run("Should fail for tables without a creation strategy", func(t *testing.T) {
		resolver := NewReferenceResolver(memoryStore.NewMemoryStore(), l)
		assert.NotNil(t, resolver.EnsureExists(ctx, "unknown_table", "x"))
	})
}

func Test_ParseOperatorSetId(t *testing.T) {
	t.Run("Should split on the last dash", func(t *testing.T) {
		avs, idx, err := ParseOperatorSetId("0xabc-12")
		assert.Nil(t, err)
		assert.Equal(t, "0xabc", avs)
		assert.Equal(t, uint64(12), idx)
	})
	t.Run("Should reject ids without a numeric index", func(t *testing.T) {
		for _, id := range []string{"0xabc", "0xabc-", "-1", "0xabc-x"} {
			_, _, err := ParseOperatorSetId(id)
			assert.NotNil(t, err, id)
		}
	})
}
