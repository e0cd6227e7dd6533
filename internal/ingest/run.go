// Package ingest orchestrates one end-to-end run: resolve fetch windows,
// fan symbols out to a worker pool, normalize and persist what comes back,
// refresh the views, and account for every symbol in a run report.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cn-data/internal/dataset"
	"cn-data/internal/manifest"
	"cn-data/internal/normalize"
	"cn-data/internal/plan"
	"cn-data/internal/provider"
	"cn-data/internal/saver"
	"cn-data/internal/slogx"
)

const (
	defaultConcurrency = 8
	heartbeatInterval  = 30 * time.Second
)

// ErrTooManyFailures aborts a run whose failure ratio crossed the limit.
var ErrTooManyFailures = errors.New("too many failed symbols")

// ViewEnsurer refreshes a dataset's views once writes have landed.
type ViewEnsurer interface {
	EnsureViews(ctx context.Context, name string) ([]string, error)
}

// Options shape one run.
type Options struct {
	Dataset      string
	Variant      string
	Start        time.Time // inclusive UTC day
	End          time.Time // inclusive UTC day
	Mode         plan.Mode
	Lookback     int
	BatchSize    int
	Concurrency  int
	MaxFailRatio float64 // abort when failed/(done) exceeds this; 0 disables
	Policy       normalize.Policy
	DryRun       bool // fetch and normalize, write nothing
	Resume       bool // skip windows already recorded in the manifest
	ResumeSince  time.Time
	RunID        string
	LogLevel     slog.Level
}

// Runner wires the collaborators of an ingest run. Freshness and Views are
// normally both the lake.
type Runner struct {
	Registry  *dataset.Registry
	Provider  provider.QuoteProvider
	Freshness plan.StoreReader
	Views     ViewEnsurer
	Writer    *saver.PartitionWriter
	Log       manifest.Log
}

// Summary is the accounting of one run.
type Summary struct {
	RunID     string
	Planned   int // symbols with a fetchable window
	Skipped   int // up-to-date symbols, nothing to fetch
	Succeeded int
	Failed    int
	Resumed   int // succeeded via manifest resume, not refetched
	Rows      int
	Files     int
	FailRatio float64
	Elapsed   time.Duration
}

// itemResult is what one worker reports for one symbol window.
type itemResult struct {
	Ok        bool
	Symbol    string
	DateRange string
	Reason    string
	Rows      int
	Files     int
	Resumed   bool
}

// Run executes the whole pipeline for one dataset variant. The returned
// Summary is valid even when err is non-nil.
func (r *Runner) Run(ctx context.Context, symbols []string, opts Options) (*Summary, error) {
	started := time.Now()
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()[:8]
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	spec, err := r.Registry.Lookup(opts.Dataset)
	if err != nil {
		return nil, err
	}
	if !spec.HasVariant(opts.Variant) {
		return nil, fmt.Errorf("dataset %s has no variant %q (have %v)", opts.Dataset, opts.Variant, spec.Variants)
	}

	resolver := &plan.Resolver{Store: r.Freshness, Lookback: opts.Lookback}
	p, err := plan.Build(ctx, resolver, opts.Dataset, opts.Variant, symbols, opts.Start, opts.End, opts.Mode, opts.BatchSize)
	if err != nil {
		return nil, err
	}

	sum := &Summary{RunID: opts.RunID, Planned: p.Items(), Skipped: len(p.Skipped)}
	slog.Info("ingest plan",
		"run_id", opts.RunID,
		"dataset", opts.Dataset, "variant", opts.Variant,
		"mode", string(opts.Mode),
		"to_fetch", sum.Planned, "skipped", sum.Skipped,
		"batches", len(p.Batches))

	if sum.Planned == 0 {
		// Nothing to fetch; still make sure the views exist.
		if !opts.DryRun {
			if _, err := r.Views.EnsureViews(ctx, opts.Dataset); err != nil {
				slog.Warn("could not ensure views", "run_id", opts.RunID, "error", err)
			}
		}
		slog.Info("nothing to do", "run_id", opts.RunID)
		sum.Elapsed = time.Since(started)
		return sum, nil
	}

	results := r.runParallel(ctx, spec, p, opts)

	var successList []string
	var failedList []failedEntry
	for _, res := range results {
		if res.Ok {
			sum.Succeeded++
			sum.Rows += res.Rows
			sum.Files += res.Files
			if res.Resumed {
				sum.Resumed++
			}
			successList = appendSuccess(successList, res.Symbol)
		} else {
			sum.Failed++
			failedList = append(failedList, failedEntry{Symbol: res.Symbol, DateRange: res.DateRange, Reason: res.Reason})
		}
	}

	if !opts.DryRun {
		if len(successList) > 0 || len(failedList) > 0 {
			if err := writeRunReport(r.Writer.Root, successList, failedList); err != nil {
				slog.Warn("could not write run report", "error", err)
			}
		}
		// Writes are durable at this point; a view failure is logged, not
		// returned. Query and export ensure views again themselves.
		if _, err := r.Views.EnsureViews(ctx, opts.Dataset); err != nil {
			slog.Warn("could not ensure views", "run_id", opts.RunID, "error", err)
		}
	}

	sum.Elapsed = time.Since(started)
	slog.Info("ingest done",
		"run_id", opts.RunID,
		"success", sum.Succeeded, "failed", sum.Failed, "resumed", sum.Resumed,
		"rows", sum.Rows, "files", sum.Files,
		"elapsed", sum.Elapsed.Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if done := sum.Succeeded + sum.Failed; done > 0 && opts.MaxFailRatio > 0 {
		sum.FailRatio = float64(sum.Failed) / float64(done)
		if sum.FailRatio > opts.MaxFailRatio {
			return sum, fmt.Errorf("%w: %d/%d (ratio %.2f > %.2f)",
				ErrTooManyFailures, sum.Failed, done, sum.FailRatio, opts.MaxFailRatio)
		}
	}
	return sum, nil
}

// runParallel drains the plan with a worker pool. Worker logs fan in through
// one channel logger so interleaved output stays line-atomic; a heartbeat
// reports progress while the pool runs.
func (r *Runner) runParallel(ctx context.Context, spec dataset.Spec, p *plan.Plan, opts Options) []itemResult {
	items := make([]plan.Item, 0, p.Items())
	for _, b := range p.Batches {
		items = append(items, b.Items...)
	}

	logs := make(chan string, 2048)
	logger := slogx.NewChanLogger(logs, opts.LogLevel)
	var logWg sync.WaitGroup
	logWg.Add(1)
	go func() {
		defer logWg.Done()
		runLogWriter(logs)
	}()

	pending := make(chan plan.Item, len(items))
	for _, it := range items {
		pending <- it
	}
	close(pending)

	results := make(chan itemResult, len(items)+16)
	var mu sync.Mutex
	var success, failed int
	rowsPerSymbol := make(map[string]int)
	var all []itemResult
	var resWg sync.WaitGroup
	resWg.Add(1)
	go func() {
		defer resWg.Done()
		runResultCollector(results, &mu, &success, &failed, rowsPerSymbol, &all)
	}()

	hbCtx, hbCancel := context.WithCancel(ctx)
	go runHeartbeat(hbCtx, heartbeatInterval, len(items), &mu, &success, &failed, rowsPerSymbol, logger)

	var wg sync.WaitGroup
	wg.Add(opts.Concurrency)
	for i := 0; i < opts.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case it, ok := <-pending:
					if !ok {
						return
					}
					results <- r.processItem(ctx, logger, spec, it, opts)
				}
			}
		}()
	}
	wg.Wait()
	close(results)
	resWg.Wait()
	hbCancel()

	mu.Lock()
	total := 0
	for _, n := range rowsPerSymbol {
		total += n
	}
	logger.Info("summary", "rows", total, "success", success, "failed", failed)
	var failures []failedEntry
	for _, res := range all {
		if !res.Ok {
			failures = append(failures, failedEntry{Symbol: res.Symbol, DateRange: res.DateRange, Reason: res.Reason})
		}
	}
	mu.Unlock()
	if len(failures) > 0 {
		logger.Info("summary failed", "count", len(failures), "reasons", joinFailedReasons(failures))
	}

	close(logs)
	logWg.Wait()
	return all
}

// processItem runs fetch, normalize, write for one symbol window.
func (r *Runner) processItem(ctx context.Context, logger *slog.Logger, spec dataset.Spec, it plan.Item, opts Options) itemResult {
	startStr := it.Start.Format("2006-01-02")
	endStr := it.End.Format("2006-01-02")
	dateRange := startStr + ".." + endStr

	if opts.Resume {
		done, err := manifest.Completed(ctx, r.Log, opts.Dataset, it.Symbol, startStr, endStr, opts.ResumeSince)
		if err != nil {
			logger.Warn("resume check failed, refetching", "symbol", it.Symbol, "error", err)
		} else if done {
			logger.Info("already ingested, skip", "symbol", it.Symbol, "date_range", dateRange)
			return itemResult{Ok: true, Symbol: it.Symbol, DateRange: dateRange, Reason: "already-ingested", Resumed: true}
		}
	}

	batch, err := r.Provider.DailyBars(ctx, it.Symbol, it.Start, it.End)
	if err != nil {
		logger.Error("fetch fail", "symbol", it.Symbol, "date_range", dateRange, "reason", err.Error())
		return itemResult{Symbol: it.Symbol, DateRange: dateRange, Reason: err.Error()}
	}

	rows, rep, err := normalize.Normalize(batch, spec, normalize.Options{
		Interval: opts.Variant,
		Policy:   opts.Policy,
	})
	if err != nil {
		logger.Error("normalize fail", "symbol", it.Symbol, "date_range", dateRange, "reason", err.Error())
		return itemResult{Symbol: it.Symbol, DateRange: dateRange, Reason: err.Error()}
	}
	if v := rep.Violations(); v > 0 {
		logger.Warn("quality violations", "symbol", it.Symbol, "violations", v, "dropped", rep.Dropped)
	}
	if len(rows) == 0 {
		// Holiday spans and delisted symbols come back empty; that is not
		// a failure, there is just nothing to write.
		logger.Info("no data", "symbol", it.Symbol, "date_range", dateRange)
		return itemResult{Ok: true, Symbol: it.Symbol, DateRange: dateRange, Reason: "no-data"}
	}

	if opts.DryRun {
		logger.Info("dry-run, skip write", "symbol", it.Symbol, "date_range", dateRange, "rows", len(rows))
		return itemResult{Ok: true, Symbol: it.Symbol, DateRange: dateRange, Reason: "dry-run", Rows: len(rows)}
	}

	extra := manifest.Extra{
		Symbol: it.Symbol,
		Start:  startStr,
		End:    endStr,
		Mode:   string(it.Mode),
		Reason: it.Reason,
		RunID:  opts.RunID,
		Op:     "ingest",
	}
	res, err := r.Writer.Write(ctx, opts.Dataset, opts.Variant, rows, extra)
	if err != nil {
		logger.Error("write fail", "symbol", it.Symbol, "date_range", dateRange, "reason", err.Error())
		return itemResult{Symbol: it.Symbol, DateRange: dateRange, Reason: err.Error()}
	}
	if len(res.Errors) > 0 {
		// Partial write: some partitions landed and are manifested, the
		// failing ones left nothing visible behind.
		reason := res.Errors[0].Error()
		logger.Error("write fail", "symbol", it.Symbol, "date_range", dateRange,
			"reason", reason, "files_ok", len(res.Files))
		return itemResult{Symbol: it.Symbol, DateRange: dateRange, Reason: reason, Rows: res.Rows, Files: len(res.Files)}
	}

	logger.Info("ingest ok", "symbol", it.Symbol, "date_range", dateRange, "rows", res.Rows, "files", len(res.Files))
	return itemResult{Ok: true, Symbol: it.Symbol, DateRange: dateRange, Rows: res.Rows, Files: len(res.Files)}
}
