// Package postgresstore provides a store.Backend backed by PostgreSQL via
// github.com/jackc/pgx/v5, grounded on the teacher's postgresql package
// (postgresql/postgresql.go).
package postgresstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNilPool is returned when a nil pool is provided to NewWithPool.
var ErrNilPool = errors.New("postgresstore: pool cannot be nil")

// DefaultTableName is the table created by CreateTable and used when Config
// omits one.
const DefaultTableName = "httpcache_entries"

// Config configures a Backend.
type Config struct {
	// TableName names the table cache rows are stored in.
	TableName string
	// Timeout bounds each operation when ctx carries no deadline.
	Timeout time.Duration
}

// DefaultConfig returns a Config with the teacher's defaults.
func DefaultConfig() Config {
	return Config{TableName: DefaultTableName, Timeout: 5 * time.Second}
}

// Backend is a store.Backend over a PostgreSQL table (key TEXT PRIMARY KEY,
// data BYTEA, updated_at TIMESTAMPTZ).
type Backend struct {
	pool      *pgxpool.Pool
	tableName string
	timeout   time.Duration
}

// New opens a pool for connString, applies config (or DefaultConfig if
// nil), and ensures the backing table exists.
func New(ctx context.Context, connString string, config *Config) (*Backend, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgresstore: connect: %w", err)
	}
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.TableName == "" {
		cfg.TableName = DefaultTableName
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	b := &Backend{pool: pool, tableName: cfg.TableName, timeout: cfg.Timeout}
	if err := b.createTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// NewWithPool wraps an already-configured *pgxpool.Pool. The table is not
// created; call CreateTable explicitly if needed.
func NewWithPool(pool *pgxpool.Pool, config *Config) (*Backend, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.TableName == "" {
		cfg.TableName = DefaultTableName
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Backend{pool: pool, tableName: cfg.TableName, timeout: cfg.Timeout}, nil
}

// CreateTable issues a CREATE TABLE IF NOT EXISTS for the backend's table.
func (b *Backend) CreateTable(ctx context.Context) error {
	return b.createTable(ctx)
}

func (b *Backend) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + b.tableName + ` (
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`
	_, err := b.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("postgresstore: create table: %w", err)
	}
	return nil
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	var data []byte
	query := `SELECT data FROM ` + b.tableName + ` WHERE key = $1`
	err := b.pool.QueryRow(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgresstore: get %q: %w", key, err)
	}
	return data, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO ` + b.tableName + ` (key, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET data = $2, updated_at = $3
	`
	if _, err := b.pool.Exec(ctx, query, key, value, time.Now()); err != nil {
		return fmt.Errorf("postgresstore: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM ` + b.tableName + ` WHERE key = $1`
	if _, err := b.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("postgresstore: delete %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (b *Backend) Close() {
	b.pool.Close()
}
