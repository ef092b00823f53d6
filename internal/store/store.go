// Package store provides the key/value persistence layer behind the usage
// ledger. Every backend stores opaque string values under string keys and
// reports the total bytes it holds so a quota can be enforced on top.
package store

import (
	"context"
	"errors"
)

var (
	// ErrStorageFull is returned when a write would exceed the configured quota.
	ErrStorageFull = errors.New("store: storage quota exceeded")
	// ErrClosed is returned by any operation on a closed store.
	ErrClosed = errors.New("store: closed")
	// ErrNotConfigured is returned when no backend could be selected.
	ErrNotConfigured = errors.New("store: not configured")
)

// Store is a durable string key/value store. Implementations must be safe
// for concurrent use.
type Store interface {
	// Read returns ("", false, nil) when key is absent.
	Read(ctx context.Context, key string) (string, bool, error)
	Write(ctx context.Context, key, value string) error
	// Remove is idempotent: removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Usage returns the total bytes of all stored values.
	Usage(ctx context.Context) (int64, error)
	Close() error
}
