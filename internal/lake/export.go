package lake

import (
	"context"
	"fmt"
	"strings"

	"cn-data/internal/manifest"
	"cn-data/internal/model"
	"cn-data/internal/saver"
)

// ExportOptions pick the slice to snapshot. Start and End bound trading_day
// inclusively as YYYY-MM-DD; empty means unbounded. Empty Symbols means
// every symbol.
type ExportOptions struct {
	Dataset string
	Variant string
	Symbols []string
	Start   string
	End     string
	RunID   string
}

// ExportResult reports what one export produced.
type ExportResult struct {
	Files int
	Rows  int64
}

// Export materializes the deduplicated winners of a dataset slice as a
// fresh partitioned snapshot under the writer's root, manifested file by
// file with op=export. The snapshot keeps the live store's layout and
// column form, so the same dataset spec can read it back. Winners keep
// their original ingest_ts, which makes repeated exports of unchanged data
// converge on identical file names.
func (l *Lake) Export(ctx context.Context, w *saver.PartitionWriter, o ExportOptions) (ExportResult, error) {
	var res ExportResult
	spec, err := l.reg.Lookup(o.Dataset)
	if err != nil {
		return res, err
	}
	if !spec.HasVariant(o.Variant) {
		return res, fmt.Errorf("dataset %s has no variant %q (have %v)", o.Dataset, o.Variant, spec.Variants)
	}
	view := spec.ViewName(o.Variant)
	ok, err := l.viewExists(ctx, view)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, fmt.Errorf("view %s not created yet (run ensure first)", view)
	}

	query, args := buildExportSQL(view, o)
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return res, fmt.Errorf("export scan %s: %w", view, err)
	}
	defer rows.Close()

	extra := manifest.Extra{Op: "export", RunID: o.RunID}
	var buf []model.Bar
	var cur string
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		wr, err := w.Write(ctx, o.Dataset, o.Variant, buf, extra)
		if err != nil {
			return err
		}
		if len(wr.Errors) > 0 {
			return wr.Errors[0]
		}
		res.Files += len(wr.Files)
		res.Rows += int64(wr.Rows)
		buf = nil
		return nil
	}

	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.Ts, &b.TradingDay, &b.Symbol, &b.Interval,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Amount,
			&b.Source, &b.IngestTs); err != nil {
			return res, fmt.Errorf("export row: %w", err)
		}
		if cur != "" && b.Symbol != cur {
			if err := flush(); err != nil {
				return res, err
			}
		}
		cur = b.Symbol
		buf = append(buf, b)
	}
	if err := rows.Err(); err != nil {
		return res, err
	}
	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}

// buildExportSQL scans dedup winners back in storage form (epoch millis,
// ISO day strings), ordered by symbol then ts so the writer streams one
// symbol at a time.
func buildExportSQL(view string, o ExportOptions) (string, []any) {
	var conds []string
	var args []any
	if len(o.Symbols) > 0 {
		ph := strings.Repeat("?,", len(o.Symbols))
		conds = append(conds, "symbol IN ("+ph[:len(ph)-1]+")")
		for _, s := range o.Symbols {
			args = append(args, s)
		}
	}
	if o.Start != "" {
		conds = append(conds, "trading_day >= CAST(? AS DATE)")
		args = append(args, o.Start)
	}
	if o.End != "" {
		conds = append(conds, "trading_day <= CAST(? AS DATE)")
		args = append(args, o.End)
	}
	where := ""
	if len(conds) > 0 {
		where = "\nWHERE " + strings.Join(conds, " AND ")
	}
	q := fmt.Sprintf(`SELECT
    epoch_ms(ts) AS ts,
    strftime(trading_day, '%%Y-%%m-%%d') AS trading_day,
    symbol,
    "interval",
    open, high, low, close, volume, amount,
    source,
    epoch_ms(ingest_ts) AS ingest_ts
FROM (SELECT * FROM %s QUALIFY %s)%s
ORDER BY symbol, ts`, quoteIdent(view), dedupFilter, where)
	return q, args
}
