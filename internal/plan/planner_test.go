package plan

import (
	"context"
	"testing"
	"time"
)

func TestBuildBatchesInvariants(t *testing.T) {
	store := &fakeStore{days: map[string]time.Time{}}
	r := &Resolver{Store: store}

	symbols := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		symbols = append(symbols, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("sym-2006-01-02"))
	}
	// duplicates and blanks must not inflate the plan
	symbols = append(symbols, symbols[0], symbols[1], "")

	p, err := Build(context.Background(), r, "ohlcva", "1d", symbols, day("2024-01-02"), day("2024-01-15"), ModeAuto, 64)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if p.Items() != 150 {
		t.Errorf("items = %d, want 150 unique symbols", p.Items())
	}
	if len(p.Batches) != 3 {
		t.Errorf("batches = %d, want ceil(150/64) = 3", len(p.Batches))
	}

	seen := make(map[string]bool)
	for _, b := range p.Batches {
		if len(b.Items) > 64 {
			t.Errorf("batch %d has %d items, exceeds size", b.Index, len(b.Items))
		}
		for _, it := range b.Items {
			if seen[it.Symbol] {
				t.Errorf("symbol %s planned twice", it.Symbol)
			}
			seen[it.Symbol] = true
			if !it.Start.Equal(day("2024-01-02")) || !it.End.Equal(day("2024-01-15")) {
				t.Errorf("item window mutated: %+v", it)
			}
			if it.Mode != ModeFull || it.Reason != ReasonNoPriorData {
				t.Errorf("auto on empty store should resolve full with reason, got %+v", it)
			}
		}
	}
	for i, b := range p.Batches {
		if b.Index != i {
			t.Errorf("batch index %d at position %d", b.Index, i)
		}
	}
}

func TestBuildSkipsUpToDateSymbols(t *testing.T) {
	store := &fakeStore{days: map[string]time.Time{
		"600000.SH": day("2024-01-15"), // already at requested end
		"000001.SZ": day("2024-01-10"),
	}}
	r := &Resolver{Store: store}
	p, err := Build(context.Background(), r, "ohlcva", "1d",
		[]string{"600000.SH", "000001.SZ"}, day("2024-01-02"), day("2024-01-15"), ModeIncremental, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if p.Items() != 1 {
		t.Fatalf("items = %d, want only the stale symbol", p.Items())
	}
	if got := p.Batches[0].Items[0]; got.Symbol != "000001.SZ" || !got.Start.Equal(day("2024-01-11")) {
		t.Errorf("planned item = %+v", got)
	}
	if len(p.Skipped) != 1 || p.Skipped[0].Symbol != "600000.SH" || p.Skipped[0].Reason != ReasonUpToDate {
		t.Errorf("skipped = %+v", p.Skipped)
	}
}

func TestBuildDefaultBatchSize(t *testing.T) {
	r := &Resolver{Store: &fakeStore{days: map[string]time.Time{}}}
	symbols := make([]string, 65)
	for i := range symbols {
		symbols[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("s2006-01-02")
	}
	p, err := Build(context.Background(), r, "ohlcva", "1d", symbols, day("2024-01-02"), day("2024-01-15"), ModeFull, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(p.Batches) != 2 || len(p.Batches[0].Items) != 64 || len(p.Batches[1].Items) != 1 {
		t.Errorf("default batching wrong: %d batches", len(p.Batches))
	}
}
