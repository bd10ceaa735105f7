package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("storage: key not found")
	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("storage: key already exists")
)

// BlobStore is the durable key-value contract behind the note service.
// Values are opaque bytes; every key is independent.
type BlobStore interface {
	// Put stores data under key. It is create-only: if key is already present
	// it returns ErrExists and leaves the stored value untouched. Readers must
	// never observe a partially written value.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the value for key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists checks if key is present
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources
	Close() error
}
