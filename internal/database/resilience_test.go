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
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/config"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/metrics"
)

// newBareDB opens an in-memory DuckDB without extensions or schema, enough
// to exercise transactions and the breaker.
func newBareDB(t *testing.T, cfg *config.DatabaseConfig) *DB {
	t.Helper()
	conn, err := sql.Open(duckdbDialect.sqlDriver, "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { closeQuietly(conn) })
	return &DB{
		conn:    conn,
		cfg:     cfg,
		dialect: duckdbDialect,
		breaker: newBreaker(t.Name(), cfg),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func TestInTxRetriesConflicts(t *testing.T) {
	db := newBareDB(t, &config.DatabaseConfig{TransactionRetries: 2, BreakerFailures: 5, BreakerTimeout: time.Minute})
	ctx := context.Background()
	serialization := &pgconn.PgError{Code: sqlstateSerializationFailure}

	t.Run("succeeds after conflicts", func(t *testing.T) {
		retries := metrics.DBTransactionRetries.WithLabelValues(config.DriverDuckDB, "retry_ok")
		before := testutil.ToFloat64(retries)

		calls := 0
		err := db.inTx(ctx, "retry_ok", nil, func(queryer) error {
			calls++
			if calls < 3 {
				return serialization
			}
			return nil
		})
		if err != nil {
			t.Fatalf("inTx: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
		if got := testutil.ToFloat64(retries) - before; got != 2 {
			t.Errorf("retry metric delta = %v, want 2", got)
		}
	})

	t.Run("gives up after retries", func(t *testing.T) {
		calls := 0
		err := db.inTx(ctx, "retry_exhausted", nil, func(queryer) error {
			calls++
			return serialization
		})
		if !errors.Is(err, ErrTransactionConflict) {
			t.Fatalf("err = %v, want ErrTransactionConflict", err)
		}
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) {
			t.Error("conflict error should still expose the driver error")
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := db.inTx(ctx, "retry_other", nil, func(queryer) error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("rolls back on error", func(t *testing.T) {
		if _, err := db.conn.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS rollback_probe (v INTEGER)"); err != nil {
			t.Fatalf("create: %v", err)
		}
		_ = db.inTx(ctx, "rollback", nil, func(q queryer) error {
			if _, err := q.ExecContext(ctx, "INSERT INTO rollback_probe VALUES (1)"); err != nil {
				return err
			}
			return errors.New("abort")
		})
		var n int
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM rollback_probe").Scan(&n); err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 0 {
			t.Errorf("rows after rollback = %d, want 0", n)
		}
	})
}

func TestGuardOpensBreakerOnConnectionErrors(t *testing.T) {
	db := newBareDB(t, &config.DatabaseConfig{BreakerFailures: 2, BreakerTimeout: time.Minute})

	refused := fmt.Errorf("dial: connection refused")
	for i := 0; i < 2; i++ {
		if err := db.guard("probe", func() error { return refused }); !errors.Is(err, refused) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}

	called := false
	err := db.guard("probe", func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("open breaker must not run the call")
	}
}

func TestGuardIgnoresQueryErrors(t *testing.T) {
	db := newBareDB(t, &config.DatabaseConfig{BreakerFailures: 1, BreakerTimeout: time.Minute})

	syntax := errors.New("Parser Error: syntax error at or near \"SELEC\"")
	for i := 0; i < 3; i++ {
		if err := db.guard("probe", func() error { return syntax }); errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("attempt %d: query errors must not open the breaker", i)
		}
	}
	if err := db.guard("probe", func() error { return nil }); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestIsTransactionConflict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, false},
		{"duckdb write-write", errors.New("TransactionContext Error: Conflict on update!"), true},
		{"duckdb duplicate key", errors.New("Constraint Error: Duplicate key \"id: 4\" violates primary key constraint"), true},
		{"plain", errors.New("no such table"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isTransactionConflict(tt.err); got != tt.want {
				t.Errorf("isTransactionConflict(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	t.Parallel()

	if isConnectionError(nil) {
		t.Error("nil is not a connection error")
	}
	if !isConnectionError(errors.New("read tcp: connection reset by peer")) {
		t.Error("connection reset should count")
	}
	if !isConnectionError(sql.ErrConnDone) {
		t.Error("sql.ErrConnDone should count")
	}
	if isConnectionError(&pgconn.PgError{Code: "40001"}) {
		t.Error("serialization failure is not a connection error")
	}
}
