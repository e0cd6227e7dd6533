package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/google/subcommands"

	"cn-data/internal/app"
	"cn-data/internal/lake"
	"cn-data/internal/saver"
	"cn-data/internal/universe"
)

// exportCmd materializes the deduplicated winners of a dataset slice as a
// fresh partitioned snapshot under a destination root.
type exportCmd struct {
	dataset string
	variant string
	symbols string
	start   string
	end     string
	to      string

	root    string
	catalog string
}

func (*exportCmd) Name() string { return "export" }

func (*exportCmd) Synopsis() string {
	return "export deduplicated winner rows as a partitioned parquet snapshot"
}

func (*exportCmd) Usage() string {
	return `export -to /backup/snap [-symbols 000001.SZ] [-start 2024-01-01 -end 2024-06-30]:
  Write the current winner rows of a dataset into a fresh partition tree under
  -to. The snapshot keeps the live layout, so it can be read back as a root.

`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dataset, "dataset", "ohlcva", "dataset name")
	f.StringVar(&c.variant, "variant", "1d", "dataset variant")
	f.StringVar(&c.symbols, "symbols", "", "comma-separated symbol filter (default: all)")
	f.StringVar(&c.start, "start", "", "first trading day, YYYY-MM-DD (default: open)")
	f.StringVar(&c.end, "end", "", "last trading day, YYYY-MM-DD (default: open)")
	f.StringVar(&c.to, "to", "", "destination root directory (required)")
	f.StringVar(&c.root, "root", "", "data root directory (default: config)")
	f.StringVar(&c.catalog, "catalog", "", "DuckDB catalog path (default: config)")
}

func (c *exportCmd) applyOverrides(cfg *app.Config) {
	if c.root != "" {
		cfg.DataRoot = c.root
	}
	if c.catalog != "" {
		cfg.CatalogPath = c.catalog
	}
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.to == "" {
		slog.Error("-to is required")
		return subcommands.ExitUsageError
	}
	for _, day := range []string{c.start, c.end} {
		if day == "" {
			continue
		}
		if _, err := parseDay(day); err != nil {
			slog.Error("bad day", "value", day, "error", err)
			return subcommands.ExitUsageError
		}
	}
	cfg, err := loadConfig(c.applyOverrides)
	if err != nil {
		slog.Error("config", "error", err)
		return subcommands.ExitUsageError
	}

	symbols, err := universe.NormalizeAll(splitCSV(c.symbols))
	if err != nil {
		slog.Error("symbols", "error", err)
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

	dst := saver.NewPartitionWriter(c.to, a.Log)
	res, err := a.Lake.Export(ctx, dst, lake.ExportOptions{
		Dataset: c.dataset,
		Variant: c.variant,
		Symbols: symbols,
		Start:   c.start,
		End:     c.end,
	})
	if err != nil {
		slog.Error("export failed", "error", err)
		return subcommands.ExitFailure
	}
	slog.Info("export done", "to", c.to, "files", res.Files, "rows", res.Rows)
	return subcommands.ExitSuccess
}
