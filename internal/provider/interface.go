package provider

import (
	"context"
	"time"

	"cn-data/internal/model"
)

// QuoteProvider is the abstraction used by the application when fetching bar
// data from a quote source. Implementations own their rate limiting, retries
// and resource cleanup.
type QuoteProvider interface {
	Name() string
	// DailyBars fetches the raw daily klines for one symbol over the
	// inclusive [start, end] day range. An empty batch is not an error.
	DailyBars(ctx context.Context, symbol string, start, end time.Time) (*model.RawBatch, error)
	Close() error
}

// UniverseLister resolves symbol universes from the quote source. Returned
// codes are raw exchange codes; canonicalization happens in universe.
type UniverseLister interface {
	// ListAll returns every listed A-share code.
	ListAll(ctx context.Context) ([]string, error)
	// BoardConstituents returns the codes of an industry or concept board,
	// e.g. BK0475.
	BoardConstituents(ctx context.Context, board string) ([]string, error)
}
