package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps pgxpool.Pool so stores and migrations share one injected handle.
type Pool struct {
	*pgxpool.Pool
}

// PoolOption tunes the connection pool.
type PoolOption func(*pgxpool.Config)

// WithMaxConns caps the number of open connections. Zero keeps the pgx default.
func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// WithMinConns keeps n connections open while idle.
func WithMinConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MinConns = n
		}
	}
}

// WithMaxConnIdleTime closes connections idle for longer than d.
func WithMaxConnIdleTime(d time.Duration) PoolOption {
	return func(c *pgxpool.Config) {
		if d > 0 {
			c.MaxConnIdleTime = d
		}
	}
}

// NewPool connects to the balance record database and verifies the connection.
func NewPool(ctx context.Context, dsn string, opts ...PoolOption) (*Pool, error) {
	config, err := poolConfig(dsn, opts...)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

func poolConfig(dsn string, opts ...PoolOption) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.MinConns > config.MaxConns {
		return nil, fmt.Errorf("postgres pool: min conns %d exceeds max conns %d", config.MinConns, config.MaxConns)
	}
	return config, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// unique_violation on the balance_records timestamp primary key
const pgErrUniqueViolation = "23505"

// isDuplicateTimestamp reports whether err is a primary key clash on balance_records.
func isDuplicateTimestamp(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// isNoRecord reports whether a single-row query found no balance record.
func isNoRecord(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
