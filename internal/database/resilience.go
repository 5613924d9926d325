// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/config"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/metrics"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// newBreaker opens after cfg.BreakerFailures consecutive connection-level
// failures. Query errors (bad SQL, constraint violations, conflicts) count
// as successes so that client mistakes never take the store offline.
func newBreaker(name string, cfg *config.DatabaseConfig) *gobreaker.CircuitBreaker[struct{}] {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	metrics.SetCircuitBreakerState(name, stateToInt(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= failures
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening database circuit")
			}
			return trip
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isConnectionError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.SetCircuitBreakerState(name, stateToInt(to))
		},
	})
}

func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// guard runs fn through the circuit breaker and records its duration.
func (db *DB) guard(op string, fn func() error) error {
	start := time.Now()
	_, err := db.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	metrics.RecordDBQuery(db.dialect.name, op, time.Since(start), err)
	return err
}

// read runs fn against the pool.
func (db *DB) read(op string, fn func(q queryer) error) error {
	return db.guard(op, func() error { return fn(db.conn) })
}

// inTx runs fn in a transaction, re-running it when the engine reports a
// conflict. After cfg.TransactionRetries re-runs the conflict is returned
// as ErrTransactionConflict. fn must not keep state between invocations.
func (db *DB) inTx(ctx context.Context, op string, opts *sql.TxOptions, fn func(tx queryer) error) error {
	retries := db.cfg.TransactionRetries
	for attempt := 0; ; attempt++ {
		err := db.guard(op, func() error { return db.runTx(ctx, opts, fn) })
		if err == nil || !isTransactionConflict(err) {
			return err
		}
		if attempt >= retries {
			logging.Ctx(ctx).Warn().Err(err).Str("operation", op).Int("attempts", attempt+1).Msg("Transaction conflict persisted after retries")
			return conflictError{err: err}
		}

		metrics.RecordTransactionRetry(db.dialect.name, op)
		backoff := time.Duration(1<<attempt) * time.Millisecond
		logging.Ctx(ctx).Debug().Err(err).Str("operation", op).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Retrying conflicted transaction")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (db *DB) runTx(ctx context.Context, opts *sql.TxOptions, fn func(tx queryer) error) error {
	tx, err := db.conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Ctx(ctx).Warn().Err(rbErr).Msg("Failed to rollback transaction")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
