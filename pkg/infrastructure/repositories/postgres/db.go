package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/semaphore"

	"github.com/vsinha/mrpbom/pkg/config"
	"github.com/vsinha/mrpbom/pkg/logger"
)

// DB wraps a connection pool and bounds concurrent write transactions
type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB connects with lib/pq using the configured DSN
func NewDB(cfg config.DatabaseConfig) (*DB, error) {
	return Open("postgres", cfg.DSN(), cfg.MaxConcurrentTx)
}

// Open connects with any registered database/sql driver, e.g. "pgx"
func Open(driver, dsn string, maxConcurrentTx int64) (*DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if maxConcurrentTx <= 0 {
		maxConcurrentTx = 10
	}
	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(maxConcurrentTx),
	}, nil
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx.Tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// ReadTx runs fn in a read-only REPEATABLE READ transaction so every query
// sees the same committed state. Reads do not take the write semaphore.
func (db *DB) ReadTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("could not begin read transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Log.Error().Err(rbErr).Msg("could not rollback read transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit read transaction: %w", err)
	}
	return nil
}
