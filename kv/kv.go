// Package kv holds the key-value backends behind the entity repository.
// Values are opaque bytes (JSON documents in practice) and every backend is
// last-write-wins: there are no transactions and no compare-and-swap.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a key that was never written or was deleted.
var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
