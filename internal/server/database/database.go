// Package database opens the PostgreSQL connection pool shared by the server.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskflow/internal/logging"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"
)

// Options controls pool sizing and the startup connectivity check.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectTimeout bounds the total time spent waiting for the first
	// successful ping.
	ConnectTimeout time.Duration
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// pingBackoff is the initial delay between startup pings.
var pingBackoff = 200 * time.Millisecond

// Open creates the pool and blocks until the database answers a ping or
// ConnectTimeout elapses.
func Open(ctx context.Context, opts Options, logger logging.Logger) (*sql.DB, error) {
	db, err := sqlOpen("pgx", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := WaitReady(ctx, db, opts.ConnectTimeout, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// WaitReady pings db with exponential backoff until it succeeds, ctx is
// done, or timeout elapses.
func WaitReady(ctx context.Context, db *sql.DB, timeout time.Duration, logger logging.Logger) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	b := retry.WithCappedDuration(5*time.Second, retry.NewExponential(pingBackoff))

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			logger.Warn(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}
