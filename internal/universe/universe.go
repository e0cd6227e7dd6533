package universe

import (
	"context"
	"fmt"
	"log/slog"

	"cn-data/internal/provider"
)

// Selector names one way of picking the universe. Precedence when several
// fields are set: Symbols, File, Board, AllA.
type Selector struct {
	Symbols []string // explicit symbols or bare codes
	File    string   // .txt or .json symbol list
	Board   string   // eastmoney board code, e.g. BK0475
	AllA    bool     // every listed A-share
}

// Resolve expands the selector into normalized, deduplicated canonical
// symbols. An empty result is an error: every downstream stage assumes at
// least one symbol.
func Resolve(ctx context.Context, lister provider.UniverseLister, sel Selector) ([]string, error) {
	var (
		raw []string
		src string
		err error
	)
	switch {
	case len(sel.Symbols) > 0:
		raw, src = sel.Symbols, "args"
	case sel.File != "":
		raw, err = LoadSymbolsFromFile(sel.File)
		src = sel.File
	case sel.Board != "":
		if lister == nil {
			return nil, fmt.Errorf("board selector needs a quote provider")
		}
		raw, err = lister.BoardConstituents(ctx, sel.Board)
		src = "board:" + sel.Board
	case sel.AllA:
		if lister == nil {
			return nil, fmt.Errorf("all-market selector needs a quote provider")
		}
		raw, err = lister.ListAll(ctx)
		src = "all-a"
	default:
		return nil, fmt.Errorf("no universe selector (use -symbols, -symbols-file, -board, or -all)")
	}
	if err != nil {
		return nil, err
	}

	symbols, err := NormalizeAll(raw)
	if err != nil {
		return nil, fmt.Errorf("universe %s: %w", src, err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe %s resolved empty", src)
	}
	slog.Info("resolved universe", "source", src, "count", len(symbols))
	return symbols, nil
}
