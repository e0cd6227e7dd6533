package lake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// dedupFilter keeps exactly one row per (symbol, ts, "interval"): the
// newest ingest_ts wins, with source and file_path as final tie-breakers so
// repeated reads stay deterministic.
const dedupFilter = `row_number() OVER (PARTITION BY symbol, ts, "interval" ORDER BY ingest_ts DESC NULLS LAST, source, file_path) = 1`

// SelectOptions shape one read. Columns, Where, OrderBy and Limit map onto
// the matching SQL clauses; Where may carry ? placeholders bound to Params.
type SelectOptions struct {
	Dataset string
	Variant string
	Columns []string
	Where   string
	Params  []any
	OrderBy string
	Limit   int
	Raw     bool // skip most-recent-wins deduplication
}

// Select runs one read against a dataset view. Unless Raw is set, rows
// superseded by a newer ingest of the same (symbol, ts, interval) are
// filtered out before the caller's predicate applies.
func (l *Lake) Select(ctx context.Context, o SelectOptions) (*sql.Rows, error) {
	spec, err := l.reg.Lookup(o.Dataset)
	if err != nil {
		return nil, err
	}
	if !spec.HasVariant(o.Variant) {
		return nil, fmt.Errorf("dataset %s has no variant %q (have %v)", o.Dataset, o.Variant, spec.Variants)
	}
	view := spec.ViewName(o.Variant)
	ok, err := l.viewExists(ctx, view)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("view %s not created yet (run ensure first)", view)
	}
	rows, err := l.db.QueryContext(ctx, buildSelectSQL(view, o), o.Params...)
	if err != nil {
		return nil, fmt.Errorf("select %s/%s: %w", o.Dataset, o.Variant, err)
	}
	return rows, nil
}

// buildSelectSQL assembles the query. Deduplication happens in a subquery
// BEFORE the caller's predicate: a filter must never resurrect a row that a
// newer ingest of the same bar already superseded.
func buildSelectSQL(view string, o SelectOptions) string {
	cols := "*"
	if len(o.Columns) > 0 {
		quoted := make([]string, len(o.Columns))
		for i, c := range o.Columns {
			quoted[i] = quoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	if o.Raw {
		fmt.Fprintf(&b, "SELECT %s FROM %s", cols, quoteIdent(view))
	} else {
		fmt.Fprintf(&b, "SELECT %s FROM (SELECT * FROM %s QUALIFY %s)", cols, quoteIdent(view), dedupFilter)
	}
	if o.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(o.Where)
	}
	if o.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(o.OrderBy)
	}
	if o.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", o.Limit)
	}
	return b.String()
}
