// Package testsuite holds conformance tests every kvstore.Store must pass.
package testsuite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/musicschool/internal/pkg/kvstore"
)

// RunTests runs the conformance suite against store. Keys are namespaced per
// run so the suite can share a database with other data.
func RunTests(t *testing.T, store kvstore.Store) {
	prefix := "testsuite/" + uuid.NewString() + "/"

	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, store, prefix) })
	t.Run("SetGetDelete", func(t *testing.T) { testSetGetDelete(t, store, prefix) })
	t.Run("EmptyKey", func(t *testing.T) { testEmptyKey(t, store) })
	t.Run("List", func(t *testing.T) { testList(t, store, prefix) })
	t.Run("CompareAndSwap", func(t *testing.T) { testCompareAndSwap(t, store, prefix) })
	t.Run("ConcurrentCompareAndSwap", func(t *testing.T) { testConcurrentCompareAndSwap(t, store, prefix) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, store.Ping(context.Background())) })
}

func testGetMissing(t *testing.T, store kvstore.Store, prefix string) {
	ctx := context.Background()

	_, err := store.Get(ctx, prefix+"missing")
	require.Error(t, err)
	assert.True(t, kvstore.ErrKeyNotFound.Has(err), "got %v", err)

	value, found, err := kvstore.Lookup(ctx, store, prefix+"missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func testSetGetDelete(t *testing.T, store kvstore.Store, prefix string) {
	ctx := context.Background()
	key := prefix + "alpha"

	require.NoError(t, store.Set(ctx, key, []byte("one")))
	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), value)

	require.NoError(t, store.Set(ctx, key, []byte("two")))
	value, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), value)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.True(t, kvstore.ErrKeyNotFound.Has(err))

	// deleting again is not an error
	require.NoError(t, store.Delete(ctx, key))
}

func testEmptyKey(t *testing.T, store kvstore.Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "")
	assert.True(t, kvstore.ErrEmptyKey.Has(err))
	assert.True(t, kvstore.ErrEmptyKey.Has(store.Set(ctx, "", []byte("x"))))
	assert.True(t, kvstore.ErrEmptyKey.Has(store.Delete(ctx, "")))
	assert.True(t, kvstore.ErrEmptyKey.Has(store.CompareAndSwap(ctx, "", nil, []byte("x"))))
}

func testList(t *testing.T, store kvstore.Store, prefix string) {
	ctx := context.Background()
	base := prefix + "list/"

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, store.Set(ctx, base+k, []byte(k)))
	}
	require.NoError(t, store.Set(ctx, prefix+"other", []byte("x")))
	// glob and LIKE metacharacters must be matched literally
	require.NoError(t, store.Set(ctx, prefix+"li*t_%", []byte("x")))

	keys, err := store.List(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, []string{base + "a", base + "b", base + "c"}, keys)

	keys, err = store.List(ctx, prefix+"li*t_")
	require.NoError(t, err)
	assert.Equal(t, []string{prefix + "li*t_%"}, keys)

	keys, err = store.List(ctx, prefix+"nothing/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testCompareAndSwap(t *testing.T, store kvstore.Store, prefix string) {
	ctx := context.Background()
	key := prefix + "cas"

	// old nil on missing key with nil new is a no-op
	require.NoError(t, store.CompareAndSwap(ctx, key, nil, nil))

	// create
	require.NoError(t, store.CompareAndSwap(ctx, key, nil, []byte("v1")))

	// create again fails
	err := store.CompareAndSwap(ctx, key, nil, []byte("v1"))
	assert.True(t, kvstore.ErrValueChanged.Has(err), "got %v", err)

	// wrong old value
	err = store.CompareAndSwap(ctx, key, []byte("nope"), []byte("v2"))
	assert.True(t, kvstore.ErrValueChanged.Has(err), "got %v", err)

	// swap
	require.NoError(t, store.CompareAndSwap(ctx, key, []byte("v1"), []byte("v2")))
	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value)

	// delete via nil new value
	require.NoError(t, store.CompareAndSwap(ctx, key, []byte("v2"), nil))
	_, err = store.Get(ctx, key)
	assert.True(t, kvstore.ErrKeyNotFound.Has(err))

	// old value on missing key
	err = store.CompareAndSwap(ctx, key, []byte("v2"), []byte("v3"))
	assert.True(t, kvstore.ErrKeyNotFound.Has(err), "got %v", err)
}

func testConcurrentCompareAndSwap(t *testing.T, store kvstore.Store, prefix string) {
	ctx := context.Background()
	key := prefix + "counter"
	require.NoError(t, store.Set(ctx, key, []byte("0")))

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				current, err := store.Get(ctx, key)
				if err != nil {
					t.Error(err)
					return
				}
				var n int
				_, _ = fmt.Sscanf(string(current), "%d", &n)
				err = store.CompareAndSwap(ctx, key, current, []byte(fmt.Sprint(n+1)))
				if kvstore.ErrValueChanged.Has(err) {
					continue
				}
				if err != nil {
					t.Error(err)
				}
				return
			}
		}()
	}
	wg.Wait()

	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(workers), string(value))
}
