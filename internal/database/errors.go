// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
)

var (
	// ErrTransactionConflict is returned when a transaction still conflicts
	// with concurrent writers after every retry. Callers may retry later.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrCircuitOpen is returned while the circuit breaker rejects calls.
	ErrCircuitOpen = errors.New("database unavailable (circuit open)")

	// ErrUnsupportedDriver is returned by New for drivers it cannot open.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// conflictError matches both ErrTransactionConflict and the driver error.
type conflictError struct{ err error }

func (e conflictError) Error() string { return ErrTransactionConflict.Error() + ": " + e.err.Error() }

func (e conflictError) Unwrap() []error { return []error{ErrTransactionConflict, e.err} }

func (e conflictError) MetricLabel() string { return "conflict" }

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and ignores the error. Use it on error
// paths where the close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// PostgreSQL SQLSTATE codes that mean "run the transaction again".
const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateUniqueViolation      = "23505"
)

// isTransactionConflict reports whether err is a concurrency conflict that
// a retry may resolve. Unique violations count: two writers racing to
// create the same tile or mapping row collide on the unique key.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateSerializationFailure, sqlstateDeadlockDetected, sqlstateUniqueViolation:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "Conflict on tuple deletion") ||
		strings.Contains(msg, "write-write conflict") ||
		strings.Contains(msg, "Duplicate key") ||
		strings.Contains(msg, "duplicate key")
}

// isConnectionError reports whether err means the store itself is
// unreachable, as opposed to a failing query. Only these trip the breaker.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "database is closed")
}
