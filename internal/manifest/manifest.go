// Package manifest is the append-only lineage log of the lake: one entry per
// completed partition write. Entries are never updated or deleted here;
// retention is an operator concern.
package manifest

import (
	"context"
	"time"
)

// Entry is one recorded write.
type Entry struct {
	Dataset   string    `json:"dataset"`
	FilePath  string    `json:"file_path"`
	Rows      int64     `json:"rows"`
	CreatedAt time.Time `json:"created_at"` // assigned by the store on append
	Extra     Extra     `json:"extra"`
}

// Extra is the free-form lineage metadata, stored as a JSON column.
type Extra struct {
	Symbol string `json:"symbol,omitempty"`
	Start  string `json:"start,omitempty"` // fetch window start, YYYY-MM-DD
	End    string `json:"end,omitempty"`   // fetch window end, YYYY-MM-DD
	Mode   string `json:"mode,omitempty"`  // full | incremental | auto
	Reason string `json:"reason,omitempty"`
	RunID  string `json:"run_id,omitempty"`
	Op     string `json:"op,omitempty"` // ingest | export
}

// Filter narrows a Query. Zero fields match everything.
type Filter struct {
	Dataset string
	Symbol  string    // matches Extra.Symbol
	Start   string    // matches Extra.Start exactly
	End     string    // matches Extra.End exactly
	Op      string    // matches Extra.Op
	Since   time.Time // CreatedAt >= Since when non-zero
}

// Log is the lineage record behind a deliberately narrow interface so the
// backing store stays swappable.
type Log interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, f Filter) ([]Entry, error)
}

// Completed reports whether an ingest of (dataset, symbol, window) is already
// on record no earlier than since. Used for plan resume: completed items are
// skipped instead of re-fetched. Export entries never count, even when their
// window coincides.
func Completed(ctx context.Context, log Log, dataset, symbol, start, end string, since time.Time) (bool, error) {
	entries, err := log.Query(ctx, Filter{
		Dataset: dataset,
		Symbol:  symbol,
		Start:   start,
		End:     end,
		Op:      "ingest",
		Since:   since,
	})
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}
