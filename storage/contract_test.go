package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBlobStoreContract exercises the behaviour every BlobStore must share.
func runBlobStoreContract(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, "missingKey1")
		assert.ErrorIs(t, err, ErrNotFound)

		ok, err := store.Exists(ctx, "missingKey1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put then get", func(t *testing.T) {
		data := []byte(`{"id":"roundTrip01"}`)
		require.NoError(t, store.Put(ctx, "roundTrip01", data))

		got, err := store.Get(ctx, "roundTrip01")
		require.NoError(t, err)
		assert.Equal(t, data, got)

		ok, err := store.Exists(ctx, "roundTrip01")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("put never overwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "collision01", []byte("first")))
		err := store.Put(ctx, "collision01", []byte("second"))
		assert.ErrorIs(t, err, ErrExists)

		got, err := store.Get(ctx, "collision01")
		require.NoError(t, err)
		assert.Equal(t, "first", string(got))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "toDelete01", []byte("x")))
		require.NoError(t, store.Delete(ctx, "toDelete01"))

		_, err := store.Get(ctx, "toDelete01")
		assert.ErrorIs(t, err, ErrNotFound)

		// deleting again is not an error
		assert.NoError(t, store.Delete(ctx, "toDelete01"))
	})

	t.Run("concurrent put same key", func(t *testing.T) {
		const writers = 8
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.Put(ctx, "raceKey001", []byte(fmt.Sprintf("writer-%d", i)))
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
				continue
			}
			assert.ErrorIs(t, err, ErrExists)
		}
		assert.Equal(t, 1, winners)
	})
}
