package manifest

import (
	"context"
	"sync"
	"time"
)

// MemLog keeps entries in memory. Backs dry runs, where writes must leave no
// durable trace, and tests.
type MemLog struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemLog() *MemLog { return &MemLog{} }

func (l *MemLog) Append(_ context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	l.entries = append(l.entries, e)
	return nil
}

func (l *MemLog) Query(_ context.Context, f Filter) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if f.Dataset != "" && e.Dataset != f.Dataset {
			continue
		}
		if f.Symbol != "" && e.Extra.Symbol != f.Symbol {
			continue
		}
		if f.Start != "" && e.Extra.Start != f.Start {
			continue
		}
		if f.End != "" && e.Extra.End != f.End {
			continue
		}
		if f.Op != "" && e.Extra.Op != f.Op {
			continue
		}
		if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
