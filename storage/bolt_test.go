package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempBoltStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sub", "notes.db")
	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	return store, path
}

func TestBoltStore_Contract(t *testing.T) {
	store, _ := tempBoltStore(t)
	t.Cleanup(func() { store.Close() })
	runBlobStoreContract(t, store)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	store, path := tempBoltStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "AbCdEfGhIjK", []byte("payload")))
	require.NoError(t, store.Close())

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	got, err := reopened.Get(ctx, "AbCdEfGhIjK")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	assert.ErrorIs(t, reopened.Put(ctx, "AbCdEfGhIjK", []byte("other")), ErrExists)
}
