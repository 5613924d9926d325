// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// maxParams bounds the number of bind parameters per statement. PostgreSQL
// rejects more than 65535.
const maxParams = 5000

// queryAndScan runs query and scans every row with scan.
func queryAndScan[T any](ctx context.Context, q queryer, query string, args []interface{}, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return out, nil
}

// chunks calls fn on consecutive slices of items no longer than size.
func chunks[T any](items []T, size int, fn func([]T) error) error {
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		if err := fn(items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func scanInt64(rows *sql.Rows) (int64, error) {
	var v int64
	err := rows.Scan(&v)
	return v, err
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableString(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

// optional converts a pointer to a bind argument: nil becomes NULL.
func optional[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
