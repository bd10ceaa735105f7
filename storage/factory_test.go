package storage

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnwmail/cryptnote/config"
)

func TestNewStore(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   interface{}
	}{
		{"filesystem", func(c *config.Config) { c.DataDir = filepath.Join(dir, "fs") }, &FilesystemStore{}},
		{"memory", func(c *config.Config) { c.StorageType = config.StorageMemory }, &MemoryStore{}},
		{"bolt", func(c *config.Config) {
			c.StorageType = config.StorageBolt
			c.BoltPath = filepath.Join(dir, "bolt", "notes.db")
		}, &BoltStore{}},
		{"redis", func(c *config.Config) {
			c.StorageType = config.StorageRedis
			c.RedisAddr = mr.Addr()
		}, &RedisStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			store, err := NewStore(context.Background(), cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })

			assert.IsType(t, tt.want, store)
		})
	}
}

func TestNewStore_Unsupported(t *testing.T) {
	cfg := config.Default()
	cfg.StorageType = "tape"

	_, err := NewStore(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported storage type")
}
