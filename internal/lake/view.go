package lake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// EnsureView readies one variant's directory (placeholder included) and
// creates or replaces its typed view. Returns the view name.
func (l *Lake) EnsureView(ctx context.Context, name, variant string) (string, error) {
	spec, err := l.reg.Lookup(name)
	if err != nil {
		return "", err
	}
	if !spec.HasVariant(variant) {
		return "", fmt.Errorf("dataset %s has no variant %q (have %v)", name, variant, spec.Variants)
	}
	if spec.EnsureReady != nil {
		if err := spec.EnsureReady(ctx, l.root, variant); err != nil {
			return "", err
		}
	}
	view := spec.ViewName(variant)
	if _, err := l.db.ExecContext(ctx, viewSQL(view, spec.Glob(l.root, variant))); err != nil {
		return "", fmt.Errorf("create view %s: %w", view, err)
	}
	return view, nil
}

// EnsureViews creates every variant view of one dataset.
func (l *Lake) EnsureViews(ctx context.Context, name string) ([]string, error) {
	spec, err := l.reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	views := make([]string, 0, len(spec.Variants))
	for _, v := range spec.Variants {
		view, err := l.EnsureView(ctx, name, v)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// EnsureAll creates the views of every registered dataset.
func (l *Lake) EnsureAll(ctx context.Context) error {
	for _, spec := range l.reg.List() {
		if _, err := l.EnsureViews(ctx, spec.Name); err != nil {
			return err
		}
	}
	return nil
}

// DropViews removes a dataset's views. Missing views are not an error.
func (l *Lake) DropViews(ctx context.Context, name string) error {
	spec, err := l.reg.Lookup(name)
	if err != nil {
		return err
	}
	for _, v := range spec.Variants {
		view := spec.ViewName(v)
		if _, err := l.db.ExecContext(ctx, "DROP VIEW IF EXISTS "+quoteIdent(view)); err != nil {
			return fmt.Errorf("drop view %s: %w", view, err)
		}
	}
	return nil
}

// viewExists checks main/temp schemas for the view, case-insensitive.
func (l *Lake) viewExists(ctx context.Context, name string) (bool, error) {
	const q = `SELECT 1 FROM information_schema.views
WHERE table_schema IN ('main','temp') AND lower(table_name) = lower(?) LIMIT 1`
	var one int
	err := l.db.QueryRowContext(ctx, q, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// viewSQL projects the raw parquet columns into the typed surface views
// expose: epoch millis become TIMESTAMP, trading_day becomes DATE, and the
// file every row came from is exposed as file_path.
func viewSQL(view, glob string) string {
	return fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS
SELECT
    epoch_ms(ts) AS ts,
    CAST(trading_day AS DATE) AS trading_day,
    symbol,
    "interval",
    open,
    high,
    low,
    close,
    volume,
    amount,
    source,
    epoch_ms(ingest_ts) AS ingest_ts,
    filename AS file_path
FROM read_parquet('%s', filename = true)`, quoteIdent(view), sqlLiteral(glob))
}
