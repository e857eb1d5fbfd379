// Package database owns the PostgreSQL pool shared by the order repository,
// the menu catalog and the migrations runner.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-pos/internal/config"
	"restaurant-pos/internal/logger"
)

const (
	pingTimeout     = 5 * time.Second
	retryStep       = 2 * time.Second
	maxConnLifetime = time.Hour
	maxConnIdleTime = 30 * time.Minute
)

// DB is the order service's connection pool. Each order unit of work holds
// one connection from Begin until commit or rollback, and so does order
// creation while it bumps the tenant counter. database.max_conns therefore
// caps how many orders can be mutated at once; reads share the remainder.
type DB struct {
	Pool   *pgxpool.Pool
	logger *logger.Logger
}

// PoolConfig builds pgxpool settings from the database section of cfg.
func PoolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pc.MaxConns = int32(cfg.Database.MaxConns)
	pc.MinConns = int32(cfg.Database.MinConns)
	pc.MaxConnLifetime = maxConnLifetime
	pc.MaxConnIdleTime = maxConnIdleTime
	return pc, nil
}

// retryDelay is the wait after the given failed attempt (1-based).
func retryDelay(attempt int) time.Duration {
	return time.Duration(attempt) * retryStep
}

// New opens the pool, retrying up to database.connect_attempts times while
// PostgreSQL comes up. It gives up early if ctx is cancelled.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	pc, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	attempts := cfg.Database.ConnectAttempts
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pool, err := connect(ctx, pc)
		if err == nil {
			log.Info("db_pool_ready", "Database pool ready", "startup", map[string]interface{}{
				"host":      cfg.Database.Host,
				"database":  cfg.Database.Database,
				"max_conns": pc.MaxConns,
				"min_conns": pc.MinConns,
				"attempt":   attempt,
			})
			return &DB{Pool: pool, logger: log}, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		wait := retryDelay(attempt)
		log.Warn("db_connection_failed",
			fmt.Sprintf("Failed to connect to database, retrying in %v", wait),
			"startup", map[string]interface{}{"attempt": attempt, "error": err.Error()})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, lastErr)
}

func connect(ctx context.Context, pc *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping backs GET /health.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Begin starts the transaction behind an order unit of work.
func (db *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	return db.Pool.Begin(ctx)
}

func (db *DB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return db.Pool.Exec(ctx, sql, args...)
}

func (db *DB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return db.Pool.Query(ctx, sql, args...)
}

func (db *DB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return db.Pool.QueryRow(ctx, sql, args...)
}
