// Package postgresstore implements storage.Backend over PostgreSQL via pgx.
package postgresstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNilPool is returned when a nil pool is provided to New.
var ErrNilPool = errors.New("postgresstore: pool cannot be nil")

// DefaultTableName is the default table used to store cache entries.
const DefaultTableName = "cachegate_entries"

// Backend is a storage.Backend backed by a PostgreSQL table of (key, value)
// rows.
type Backend struct {
	pool      *pgxpool.Pool
	tableName string
	timeout   time.Duration
}

// Config configures a Backend.
type Config struct {
	TableName string
	Timeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{TableName: DefaultTableName, Timeout: 5 * time.Second}
}

// New wraps pool. The caller is responsible for having created tableName
// with columns (key text primary key, value bytea, updated_at timestamptz).
func New(pool *pgxpool.Pool, cfg *Config) (*Backend, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.TableName == "" {
		cfg.TableName = DefaultTableName
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Backend{pool: pool, tableName: cfg.TableName, timeout: cfg.Timeout}, nil
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

// Get returns the bytes stored under key, if present.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	var value []byte
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", b.tableName)
	err := b.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgresstore: get %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, b.tableName)
	if _, err := b.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("postgresstore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. It is a no-op if key is absent.
func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", b.tableName)
	if _, err := b.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("postgresstore: delete %q: %w", key, err)
	}
	return nil
}
