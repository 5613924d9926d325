// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/config"
)

// dialect captures what differs between the two SQL engines.
type dialect struct {
	name      string
	sqlDriver string

	// foreignKeys is off for DuckDB: its indexes make a row that was
	// updated in the same transaction look like a constraint violation.
	foreignKeys bool

	// serialTx is used for the agglomeration transaction.
	serialTx *sql.TxOptions
}

var (
	duckdbDialect = dialect{
		name:      config.DriverDuckDB,
		sqlDriver: "duckdb",
	}
	postgresDialect = dialect{
		name:        config.DriverPostgres,
		sqlDriver:   "pgx",
		foreignKeys: true,
		serialTx:    &sql.TxOptions{Isolation: sql.LevelSerializable},
	}
)

// references returns a foreign key clause when the engine enforces them.
func (d dialect) references(table string, nullable bool) string {
	if !d.foreignKeys {
		return ""
	}
	action := "CASCADE"
	if nullable {
		action = "SET NULL"
	}
	return fmt.Sprintf(" REFERENCES %s(id) ON DELETE %s", table, action)
}

// placeholders returns "$start, $start+1, ..." for n parameters.
func placeholders(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", start+i)
	}
	return b.String()
}

// int64Args converts ids to query arguments.
func int64Args[T ~int64](ids []T) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return args
}
