package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps entries in the inkledger_kv table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// NewPostgresStore connects, pings and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store: postgres DSN is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if err := ensurePostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: init postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func ensurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS inkledger_kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	return err
}

func (p *PostgresStore) Read(ctx context.Context, key string) (string, bool, error) {
	if p.closed.Load() {
		return "", false, ErrClosed
	}
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM inkledger_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: postgres read %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PostgresStore) Write(ctx context.Context, key, value string) error {
	if p.closed.Load() {
		return ErrClosed
	}
	_, err := p.pool.Exec(ctx, `
	INSERT INTO inkledger_kv (key, value, updated_at) VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, key, value)
	if err != nil {
		return fmt.Errorf("store: postgres write %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Remove(ctx context.Context, key string) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if _, err := p.pool.Exec(ctx, `DELETE FROM inkledger_kv WHERE key = $1`, key); err != nil {
		return fmt.Errorf("store: postgres remove %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Usage(ctx context.Context) (int64, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	var n int64
	err := p.pool.QueryRow(ctx, `SELECT COALESCE(SUM(OCTET_LENGTH(value)), 0)::BIGINT FROM inkledger_kv`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: postgres usage: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.pool.Close()
	}
	return nil
}
