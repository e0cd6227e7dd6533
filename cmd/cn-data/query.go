package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/subcommands"

	"cn-data/internal/app"
	"cn-data/internal/lake"
)

// queryCmd reads deduplicated rows from a dataset view and prints them as
// CSV on stdout.
type queryCmd struct {
	dataset string
	variant string
	columns string
	where   string
	args    string
	order   string
	limit   int
	raw     bool

	root    string
	catalog string
}

func (*queryCmd) Name() string { return "query" }

func (*queryCmd) Synopsis() string {
	return "query a dataset view and print CSV to stdout"
}

func (*queryCmd) Usage() string {
	return `query -where "symbol = ?" -args 000001.SZ -order "ts" [-limit 100]:
  Read most-recent-wins rows from a dataset view. -raw skips deduplication and
  shows every physical row, including superseded ones.

`
}

func (c *queryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dataset, "dataset", "ohlcva", "dataset name")
	f.StringVar(&c.variant, "variant", "1d", "dataset variant")
	f.StringVar(&c.columns, "columns", "", "comma-separated projection (default: all)")
	f.StringVar(&c.where, "where", "", "SQL predicate with ? placeholders")
	f.StringVar(&c.args, "args", "", "comma-separated placeholder values")
	f.StringVar(&c.order, "order", "", "SQL order-by expression")
	f.IntVar(&c.limit, "limit", 0, "row cap, 0 = unlimited")
	f.BoolVar(&c.raw, "raw", false, "skip most-recent-wins deduplication")
	f.StringVar(&c.root, "root", "", "data root directory (default: config)")
	f.StringVar(&c.catalog, "catalog", "", "DuckDB catalog path (default: config)")
}

func (c *queryCmd) applyOverrides(cfg *app.Config) {
	if c.root != "" {
		cfg.DataRoot = c.root
	}
	if c.catalog != "" {
		cfg.CatalogPath = c.catalog
	}
}

func (c *queryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig(c.applyOverrides)
	if err != nil {
		slog.Error("config", "error", err)
		return subcommands.ExitUsageError
	}

	a, err := InitializeApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if _, err := a.Lake.EnsureViews(ctx, c.dataset); err != nil {
		slog.Error("ensure views", "error", err)
		return subcommands.ExitFailure
	}

	params := make([]any, 0)
	for _, arg := range splitCSV(c.args) {
		params = append(params, arg)
	}
	rows, err := a.Lake.Select(ctx, lake.SelectOptions{
		Dataset: c.dataset,
		Variant: c.variant,
		Columns: splitCSV(c.columns),
		Where:   c.where,
		Params:  params,
		OrderBy: c.order,
		Limit:   c.limit,
		Raw:     c.raw,
	})
	if err != nil {
		slog.Error("query failed", "error", err)
		return subcommands.ExitFailure
	}
	defer rows.Close()

	if err := writeCSV(os.Stdout, rows); err != nil {
		slog.Error("write csv", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// writeCSV streams a result set as CSV with a header row.
func writeCSV(w io.Writer, rows *sql.Rows) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	rec := make([]string, len(cols))
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for i, v := range vals {
			rec[i] = formatCSV(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func formatCSV(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
