package plan

import (
	"context"
	"time"
)

const defaultBatchSize = 64

// Item is one symbol's fetch assignment inside a batch. An item is never
// split: its whole window travels with it.
type Item struct {
	Symbol string
	Start  time.Time
	End    time.Time
	Mode   Mode
	Reason string
}

// Batch is a bounded group of items dispatched together.
type Batch struct {
	Index int
	Items []Item
}

// Plan is the run's full work order. In-memory only; durable progress lives
// in the manifest log.
type Plan struct {
	Dataset string
	Variant string
	Batches []Batch
	Skipped []Window // empty windows, kept for reporting
}

// Items returns the number of fetchable items across all batches.
func (p *Plan) Items() int {
	n := 0
	for _, b := range p.Batches {
		n += len(b.Items)
	}
	return n
}

// Build resolves every symbol through r and packs the fetchable windows into
// batches of at most size items. Duplicate symbols are planned once; symbols
// with empty windows land in Skipped.
func Build(ctx context.Context, r *Resolver, ds, variant string, symbols []string, start, end time.Time, mode Mode, size int) (*Plan, error) {
	if size <= 0 {
		size = defaultBatchSize
	}
	p := &Plan{Dataset: ds, Variant: variant}

	seen := make(map[string]bool, len(symbols))
	var items []Item
	for _, sym := range symbols {
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true

		w, err := r.Resolve(ctx, ds, variant, sym, start, end, mode)
		if err != nil {
			return nil, err
		}
		if w.Empty {
			p.Skipped = append(p.Skipped, w)
			continue
		}
		items = append(items, Item{Symbol: w.Symbol, Start: w.Start, End: w.End, Mode: w.Mode, Reason: w.Reason})
	}

	for i := 0; i < len(items); i += size {
		j := i + size
		if j > len(items) {
			j = len(items)
		}
		p.Batches = append(p.Batches, Batch{Index: len(p.Batches), Items: items[i:j]})
	}
	return p, nil
}
