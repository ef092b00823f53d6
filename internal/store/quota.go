package store

import (
	"context"
	"fmt"
	"sync"
)

// DefaultQuotaBytes matches the per-origin budget browsers give local storage.
const DefaultQuotaBytes int64 = 5 * 1024 * 1024

// QuotaStore rejects writes that would push the wrapped store past its limit.
type QuotaStore struct {
	Store
	limit int64
	mu    sync.Mutex
}

// WithQuota wraps s so that Write fails with ErrStorageFull once the stored
// bytes would exceed limitBytes. A non-positive limit selects DefaultQuotaBytes.
func WithQuota(s Store, limitBytes int64) *QuotaStore {
	if limitBytes <= 0 {
		limitBytes = DefaultQuotaBytes
	}
	return &QuotaStore{Store: s, limit: limitBytes}
}

// Limit returns the configured byte limit.
func (q *QuotaStore) Limit() int64 { return q.limit }

func (q *QuotaStore) Write(ctx context.Context, key, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	used, err := q.Store.Usage(ctx)
	if err != nil {
		return fmt.Errorf("store: measure usage: %w", err)
	}
	old, _, err := q.Store.Read(ctx, key)
	if err != nil {
		return err
	}
	if next := used - int64(len(old)) + int64(len(value)); next > q.limit {
		return fmt.Errorf("%w: %d of %d bytes", ErrStorageFull, next, q.limit)
	}
	return q.Store.Write(ctx, key, value)
}
