// Package plan resolves per-symbol fetch windows against the stored data and
// slices them into bounded batches for the ingest workers.
package plan

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Mode selects how a fetch window is derived from stored data.
type Mode string

const (
	ModeFull        Mode = "full"        // requested window as-is
	ModeIncremental Mode = "incremental" // continue from stored max trading day
	ModeAuto        Mode = "auto"        // incremental when data exists, else full
)

// ParseMode validates a mode string. Unknown modes are configuration errors,
// caught before any fetch is attempted.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFull:
		return ModeFull, nil
	case ModeIncremental:
		return ModeIncremental, nil
	case ModeAuto, "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("unknown freshness mode %q (use: full, incremental, auto)", s)
	}
}

// Reasons recorded on windows and carried into manifest extras.
const (
	ReasonNoPriorData = "no-prior-data" // incremental/auto fell back to full
	ReasonUpToDate    = "up-to-date"    // nothing newer to fetch, symbol skipped
)

// StoreReader is the slice of the lake the resolver needs: the newest stored
// trading day per symbol. ok is false when the symbol has no partitions.
type StoreReader interface {
	MaxTradingDay(ctx context.Context, dataset, variant, symbol string) (day time.Time, ok bool, err error)
}

// Window is one symbol's resolved fetch assignment.
type Window struct {
	Symbol string
	Start  time.Time // inclusive UTC day
	End    time.Time // inclusive UTC day
	Mode   Mode      // effective mode after auto resolution
	Reason string    // ReasonNoPriorData, ReasonUpToDate or empty
	Empty  bool      // true when there is nothing to fetch
}

// Resolver derives fetch windows. Lookback re-fetches that many most recent
// stored days on incremental runs to pick up upstream restatements; negative
// values are clamped to zero.
type Resolver struct {
	Store    StoreReader
	Lookback int
}

// Resolve computes the fetch window for one symbol over the requested
// [start, end] day range.
func (r *Resolver) Resolve(ctx context.Context, ds, variant, symbol string, start, end time.Time, mode Mode) (Window, error) {
	w := Window{Symbol: symbol, Start: start, End: end, Mode: mode}
	switch mode {
	case ModeFull:
		return w, nil
	case ModeIncremental, ModeAuto:
	default:
		return Window{}, fmt.Errorf("unknown freshness mode %q", mode)
	}

	maxDay, ok, err := r.Store.MaxTradingDay(ctx, ds, variant, symbol)
	if err != nil {
		return Window{}, fmt.Errorf("inspect %s/%s for %s: %w", ds, variant, symbol, err)
	}
	if !ok {
		// Nothing stored yet: both incremental and auto degrade to a full
		// fetch of the requested window, and say so.
		w.Mode = ModeFull
		w.Reason = ReasonNoPriorData
		return w, nil
	}

	lookback := r.Lookback
	if lookback < 0 {
		lookback = 0
	}
	fetchStart := maxDay.AddDate(0, 0, 1-lookback)
	if start.After(fetchStart) {
		fetchStart = start
	}
	w.Mode = ModeIncremental
	w.Start = fetchStart
	if fetchStart.After(end) {
		w.Empty = true
		w.Reason = ReasonUpToDate
	}
	return w, nil
}
