package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"strings"
	"time"

	"github.com/google/subcommands"

	"cn-data/internal/app"
	"cn-data/internal/ingest"
	"cn-data/internal/normalize"
	"cn-data/internal/plan"
	"cn-data/internal/slogx"
	"cn-data/internal/universe"
)

// ingestCmd fetches daily bars for a symbol universe and appends them to the
// partitioned store.
type ingestCmd struct {
	symbols     string
	symbolsFile string
	board       string
	universe    string

	dataset string
	variant string
	start   string
	end     string
	mode    string
	quality string

	lookback    int
	concurrency int
	batchSize   int
	rate        float64
	timeout     time.Duration
	retries     int
	adjust      string
	maxFail     float64

	root    string
	catalog string

	dryRun bool
	resume bool
	since  time.Duration
}

func (*ingestCmd) Name() string { return "ingest" }

func (*ingestCmd) Synopsis() string {
	return "fetch daily bars for a symbol universe and append them to the store"
}

func (*ingestCmd) Usage() string {
	return `ingest -symbols 000001.SZ,600000 -start 2024-01-01 -end 2024-01-31 [-mode auto]:
  Fetch daily bars, normalize them, and write parquet partitions plus manifest
  entries. The universe comes from the first of -symbols, -symbols-file,
  -board, -universe that is set.

`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbols, "symbols", "", "comma-separated symbols or bare codes")
	f.StringVar(&c.symbolsFile, "symbols-file", "", "symbol list file (.txt or .json)")
	f.StringVar(&c.board, "board", "", "eastmoney board code, e.g. BK0475")
	f.StringVar(&c.universe, "universe", "", `named universe ("all" = every listed A-share)`)
	f.StringVar(&c.dataset, "dataset", "ohlcva", "dataset name")
	f.StringVar(&c.variant, "variant", "1d", "dataset variant")
	f.StringVar(&c.start, "start", "", "window start, YYYY-MM-DD UTC (required)")
	f.StringVar(&c.end, "end", "", "window end, YYYY-MM-DD UTC (required)")
	f.StringVar(&c.mode, "mode", "auto", "fetch mode: full, incremental or auto")
	f.StringVar(&c.quality, "quality", "drop", "sanity-check policy: drop or abort")
	f.IntVar(&c.lookback, "lookback", 0, "incremental re-fetch window in days (default: config)")
	f.IntVar(&c.concurrency, "concurrency", 0, "worker count (default: config)")
	f.IntVar(&c.batchSize, "batch", 0, "plan batch size (default: config)")
	f.Float64Var(&c.rate, "rate", 0, "provider requests per second (default: config)")
	f.DurationVar(&c.timeout, "timeout", 0, "provider request timeout (default: config)")
	f.IntVar(&c.retries, "retries", -1, "provider retries per request, 0 disables (default: config)")
	f.StringVar(&c.adjust, "adjust", "", "price adjustment: none, qfq or hfq (default: config)")
	f.Float64Var(&c.maxFail, "max-fail-ratio", -1, "abort threshold for failed/attempted, 0 disables (default: config)")
	f.StringVar(&c.root, "root", "", "data root directory (default: config)")
	f.StringVar(&c.catalog, "catalog", "", "DuckDB catalog path (default: config)")
	f.BoolVar(&c.dryRun, "dry-run", false, "fetch and normalize, write nothing")
	f.BoolVar(&c.resume, "resume", false, "skip windows already recorded in the manifest")
	f.DurationVar(&c.since, "since", 0, "maximum age of manifest entries trusted by -resume (0 = any)")
}

func (c *ingestCmd) applyOverrides(cfg *app.Config) {
	if c.root != "" {
		cfg.DataRoot = c.root
	}
	if c.catalog != "" {
		cfg.CatalogPath = c.catalog
	}
	if c.lookback > 0 {
		cfg.Lookback = c.lookback
	}
	if c.concurrency > 0 {
		cfg.Concurrency = c.concurrency
	}
	if c.batchSize > 0 {
		cfg.BatchSize = c.batchSize
	}
	if c.rate > 0 {
		cfg.RatePerSec = c.rate
	}
	if c.timeout > 0 {
		cfg.Timeout = app.Duration(c.timeout)
	}
	if c.retries >= 0 {
		cfg.Retries = c.retries
	}
	switch c.adjust {
	case "":
	case "none":
		cfg.Adjust = ""
	default:
		cfg.Adjust = c.adjust
	}
	if c.maxFail >= 0 {
		cfg.MaxFailRatio = c.maxFail
	}
}

func (c *ingestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := loadConfig(c.applyOverrides)
	if err != nil {
		slog.Error("config", "error", err)
		return subcommands.ExitUsageError
	}

	start, end, err := parseWindow(c.start, c.end)
	if err != nil {
		slog.Error("window", "error", err)
		return subcommands.ExitUsageError
	}
	mode, err := plan.ParseMode(c.mode)
	if err != nil {
		slog.Error("mode", "error", err)
		return subcommands.ExitUsageError
	}
	policy, err := normalize.ParsePolicy(c.quality)
	if err != nil {
		slog.Error("quality", "error", err)
		return subcommands.ExitUsageError
	}
	allA := false
	switch strings.ToLower(c.universe) {
	case "":
	case "all", "all-a":
		allA = true
	default:
		slog.Error("unknown universe", "universe", c.universe)
		return subcommands.ExitUsageError
	}

	a, err := InitializeApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	slog.Info("using data provider", "provider", a.Quotes.Name())

	symbols, err := universe.Resolve(ctx, a.Universe, universe.Selector{
		Symbols: splitCSV(c.symbols),
		File:    c.symbolsFile,
		Board:   c.board,
		AllA:    allA,
	})
	if err != nil {
		slog.Error("resolve universe", "error", err)
		return subcommands.ExitFailure
	}

	var since time.Time
	if c.since > 0 {
		since = time.Now().UTC().Add(-c.since)
	}

	sum, err := a.Runner.Run(ctx, symbols, ingest.Options{
		Dataset:      c.dataset,
		Variant:      c.variant,
		Start:        start,
		End:          end,
		Mode:         mode,
		Lookback:     cfg.Lookback,
		BatchSize:    cfg.BatchSize,
		Concurrency:  cfg.Concurrency,
		MaxFailRatio: cfg.MaxFailRatio,
		Policy:       policy,
		DryRun:       c.dryRun,
		Resume:       c.resume,
		ResumeSince:  since,
		LogLevel:     slogx.ParseLevel(cfg.LogLevel),
	})
	if err != nil {
		if errors.Is(err, ingest.ErrTooManyFailures) {
			slog.Error("ingest aborted", "error", err,
				"succeeded", sum.Succeeded, "failed", sum.Failed)
		} else {
			slog.Error("ingest failed", "error", err)
		}
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
