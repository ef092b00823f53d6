package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nghyane/inkledger/internal/config"
	log "github.com/nghyane/inkledger/internal/logging"
)

const bootstrapTimeout = 30 * time.Second

// Open selects a backend from dsn and wraps it with a byte quota.
// quotaBytes <= 0 selects DefaultQuotaBytes.
func Open(ctx context.Context, dsn *config.ParsedDSN, quotaBytes int64) (*QuotaStore, error) {
	if dsn == nil {
		return nil, ErrNotConfigured
	}

	bootstrapCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	backend, err := newBackend(bootstrapCtx, dsn)
	if err != nil {
		return nil, err
	}
	if !dsn.IsLocal() {
		log.Warnf("usage ledger uses remote store %s; ledger writes now depend on network I/O", dsn.Redacted())
	}
	return WithQuota(backend, quotaBytes), nil
}

func newBackend(ctx context.Context, dsn *config.ParsedDSN) (Store, error) {
	switch dsn.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(dsn.Path)
	case config.BackendSQLite:
		s, err := NewSQLiteStore(ctx, dsn.Path)
		if err != nil {
			return nil, fmt.Errorf("store: create sqlite store: %w", err)
		}
		return s, nil
	case config.BackendPostgres:
		s, err := NewPostgresStore(ctx, dsn.URL)
		if err != nil {
			return nil, fmt.Errorf("store: create postgres store: %w", err)
		}
		return s, nil
	case config.BackendRedis:
		s, err := NewRedisStore(ctx, dsn.URL)
		if err != nil {
			return nil, fmt.Errorf("store: create redis store: %w", err)
		}
		return s, nil
	case config.BackendObject:
		s, err := NewObjectStore(ctx, ObjectStoreConfig{
			Endpoint:  dsn.Endpoint,
			AccessKey: dsn.AccessKey,
			SecretKey: dsn.SecretKey,
			Bucket:    dsn.Bucket,
			Prefix:    dsn.Prefix,
			UseSSL:    dsn.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("store: create object store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store: unknown backend: %q", dsn.Backend)
	}
}
