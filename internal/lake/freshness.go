package lake

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"cn-data/internal/dataset"
)

// MaxTradingDay probes the newest stored trading day for one symbol by
// scanning only that symbol's partition files. ok is false when the symbol
// has no files yet, or only empty ones; that is the signal for a full fetch,
// not an error.
func (l *Lake) MaxTradingDay(ctx context.Context, ds, variant, symbol string) (time.Time, bool, error) {
	spec, err := l.reg.Lookup(ds)
	if err != nil {
		return time.Time{}, false, err
	}
	glob := symbolGlob(spec, l.root, variant, symbol)
	matches, err := filepath.Glob(glob)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("glob %s: %w", glob, err)
	}
	if len(matches) == 0 {
		return time.Time{}, false, nil
	}

	q := fmt.Sprintf("SELECT max(trading_day) FROM read_parquet('%s')", sqlLiteral(glob))
	var day sql.NullString
	if err := l.db.QueryRowContext(ctx, q).Scan(&day); err != nil {
		return time.Time{}, false, fmt.Errorf("max trading_day for %s: %w", symbol, err)
	}
	if !day.Valid || day.String == "" {
		return time.Time{}, false, nil
	}
	max, err := time.ParseInLocation("2006-01-02", day.String, time.UTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stored trading_day %q for %s: %w", day.String, symbol, err)
	}
	return max, true, nil
}

// symbolGlob narrows the dataset glob to one symbol. The first partition key
// is the symbol key by layout convention.
func symbolGlob(spec dataset.Spec, root, variant, symbol string) string {
	parts := []string{filepath.ToSlash(root), spec.Name, variant}
	for i, k := range spec.PartitionKeys {
		if i == 0 {
			parts = append(parts, k+"="+symbol)
		} else {
			parts = append(parts, k+"=*")
		}
	}
	parts = append(parts, "part-*.parquet")
	return path.Join(parts...)
}
