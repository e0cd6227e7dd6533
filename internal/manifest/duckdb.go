package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const createManifestSQL = `CREATE TABLE IF NOT EXISTS ingest_manifest (
	dataset    TEXT,
	file_path  TEXT,
	rows       BIGINT,
	created_at TIMESTAMP DEFAULT now(),
	extra      JSON
)`

// DuckLog stores the manifest in a DuckDB table (ingest_manifest) inside the
// catalog database. Appends are single-row inserts, each atomic on its own;
// no total ordering across writers is assumed.
type DuckLog struct {
	db *sql.DB
}

// NewDuckLog ensures the manifest table exists and returns the log.
func NewDuckLog(ctx context.Context, db *sql.DB) (*DuckLog, error) {
	if _, err := db.ExecContext(ctx, createManifestSQL); err != nil {
		return nil, fmt.Errorf("create ingest_manifest: %w", err)
	}
	return &DuckLog{db: db}, nil
}

func (l *DuckLog) Append(ctx context.Context, e Entry) error {
	extra, err := json.Marshal(e.Extra)
	if err != nil {
		return fmt.Errorf("marshal manifest extra: %w", err)
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		// Stamped here rather than by the column default so the horizon
		// comparison in Query stays in UTC regardless of session timezone.
		createdAt = time.Now().UTC()
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO ingest_manifest (dataset, file_path, rows, created_at, extra) VALUES (?, ?, ?, ?, ?)`,
		e.Dataset, e.FilePath, e.Rows, createdAt, string(extra))
	if err != nil {
		return fmt.Errorf("append manifest entry for %s: %w", e.FilePath, err)
	}
	return nil
}

func (l *DuckLog) Query(ctx context.Context, f Filter) ([]Entry, error) {
	query, args := buildManifestQuery(f)
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query manifest: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var createdAt time.Time
		var extra string
		if err := rows.Scan(&e.Dataset, &e.FilePath, &e.Rows, &createdAt, &extra); err != nil {
			return nil, fmt.Errorf("scan manifest row: %w", err)
		}
		e.CreatedAt = createdAt
		if extra != "" {
			if err := json.Unmarshal([]byte(extra), &e.Extra); err != nil {
				return nil, fmt.Errorf("decode manifest extra %q: %w", extra, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// buildManifestQuery assembles the filtered SELECT. Kept as a pure function
// so the SQL shape is testable without a database.
func buildManifestQuery(f Filter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT dataset, file_path, rows, created_at, CAST(extra AS VARCHAR) FROM ingest_manifest`)

	var conds []string
	var args []any
	if f.Dataset != "" {
		conds = append(conds, "dataset = ?")
		args = append(args, f.Dataset)
	}
	if f.Symbol != "" {
		conds = append(conds, "json_extract_string(extra, '$.symbol') = ?")
		args = append(args, f.Symbol)
	}
	if f.Start != "" {
		conds = append(conds, "json_extract_string(extra, '$.start') = ?")
		args = append(args, f.Start)
	}
	if f.End != "" {
		conds = append(conds, "json_extract_string(extra, '$.end') = ?")
		args = append(args, f.End)
	}
	if f.Op != "" {
		conds = append(conds, "json_extract_string(extra, '$.op') = ?")
		args = append(args, f.Op)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY created_at")
	return sb.String(), args
}
