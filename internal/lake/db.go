// Package lake owns the DuckDB catalog over the parquet data root: view
// management, the deduplicated query and export entry points, and the
// per-symbol freshness probe incremental planning relies on.
package lake

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"cn-data/internal/dataset"
)

// Lake binds one DuckDB catalog to a parquet data root and a dataset
// registry. The same handle also hosts the ingest manifest table.
type Lake struct {
	db   *sql.DB
	root string
	reg  *dataset.Registry
}

// Open opens (or creates) the catalog at dbPath and binds it to dataRoot.
// An empty path or ":memory:" opens an in-memory catalog.
func Open(dbPath, dataRoot string, reg *dataset.Registry) (*Lake, error) {
	dsn := dbPath
	if dsn == ":memory:" {
		dsn = ""
	}
	if dsn != "" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create catalog dir: %w", err)
			}
		}
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb catalog: %w", err)
	}
	return &Lake{db: db, root: dataRoot, reg: reg}, nil
}

// DB exposes the catalog handle for collaborators that share the
// connection, such as the manifest log.
func (l *Lake) DB() *sql.DB { return l.db }

// Root returns the parquet data root the views read from.
func (l *Lake) Root() string { return l.root }

func (l *Lake) Close() error { return l.db.Close() }
