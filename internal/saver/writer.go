// Package saver persists bar rows into the partitioned parquet store.
// Files are immutable once visible; concurrent writers only ever add files.
package saver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"cn-data/internal/manifest"
	"cn-data/internal/model"
)

// PartitionWriter writes bars under Root using the
// <dataset>/<variant>/symbol=S/year=Y/month=M layout and records every
// completed file in the manifest log.
type PartitionWriter struct {
	Root string
	Log  manifest.Log
}

func NewPartitionWriter(root string, log manifest.Log) *PartitionWriter {
	return &PartitionWriter{Root: root, Log: log}
}

// WrittenFile describes one file made visible by a Write call.
type WrittenFile struct {
	Path   string
	Rows   int
	Symbol string
	Year   string
	Month  string
}

// PartitionError is a failure scoped to a single partition. Sibling
// partitions of the same Write call are unaffected.
type PartitionError struct {
	Symbol string
	Year   string
	Month  string
	Err    error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %s/%s-%s: %v", e.Symbol, e.Year, e.Month, e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// WriteResult aggregates the outcome of one Write call.
type WriteResult struct {
	Files  []WrittenFile
	Rows   int
	Errors []*PartitionError
}

type partKey struct {
	symbol string
	year   string
	month  string
}

// Write groups rows by (symbol, year, month) and publishes one file per
// partition: temp write, sync, rename, then one manifest entry. A failing
// partition discards its temp file and gets no manifest entry; the remaining
// partitions still complete. extra is recorded on every manifest entry, with
// Extra.Symbol defaulted to the partition's symbol when unset.
func (w *PartitionWriter) Write(ctx context.Context, ds, variant string, rows []model.Bar, extra manifest.Extra) (WriteResult, error) {
	var res WriteResult
	if len(rows) == 0 {
		return res, nil
	}

	groups := make(map[partKey][]model.Bar)
	for _, b := range rows {
		year, month, ok := b.PartitionYearMonth()
		if !ok {
			res.Errors = append(res.Errors, &PartitionError{
				Symbol: b.Symbol,
				Err:    fmt.Errorf("malformed trading_day %q", b.TradingDay),
			})
			continue
		}
		k := partKey{symbol: b.Symbol, year: year, month: month}
		groups[k] = append(groups[k], b)
	}

	keys := make([]partKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.symbol != b.symbol {
			return a.symbol < b.symbol
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.month < b.month
	})

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		part := groups[k]
		sort.Slice(part, func(i, j int) bool { return part[i].Ts < part[j].Ts })

		dir := filepath.Join(w.Root, ds, variant,
			"symbol="+k.symbol, "year="+k.year, "month="+k.month)
		if err := os.MkdirAll(dir, 0755); err != nil {
			res.Errors = append(res.Errors, &PartitionError{k.symbol, k.year, k.month, err})
			continue
		}
		name := partFileName(part)
		if err := writeParquetAtomic(dir, name, part); err != nil {
			res.Errors = append(res.Errors, &PartitionError{k.symbol, k.year, k.month, err})
			continue
		}
		path := filepath.Join(dir, name)

		e := manifest.Entry{
			Dataset:  ds,
			FilePath: path,
			Rows:     int64(len(part)),
			Extra:    extra,
		}
		if e.Extra.Symbol == "" {
			e.Extra.Symbol = k.symbol
		}
		if err := w.Log.Append(ctx, e); err != nil {
			res.Errors = append(res.Errors, &PartitionError{k.symbol, k.year, k.month,
				fmt.Errorf("file visible but manifest append failed: %w", err)})
			continue
		}
		res.Files = append(res.Files, WrittenFile{Path: path, Rows: len(part), Symbol: k.symbol, Year: k.year, Month: k.month})
		res.Rows += len(part)
	}
	return res, nil
}

// partFileName derives the immutable file name from the partition's row
// window and a digest of its full content. Identical content converges on
// the same name (idempotent retries); different content never collides.
// Callers pass rows already sorted by Ts.
func partFileName(rows []model.Bar) string {
	start := compactDay(rows[0].TradingDay)
	end := compactDay(rows[len(rows)-1].TradingDay)
	h := sha256.New()
	for _, b := range rows {
		h.Write([]byte(b.Symbol))
		h.Write([]byte{'|'})
		h.Write([]byte(b.TradingDay))
		h.Write([]byte{'|'})
		h.Write([]byte(strconv.FormatInt(b.Ts, 10)))
		h.Write([]byte{'|'})
		h.Write([]byte(b.Interval))
		h.Write([]byte{'|'})
		h.Write([]byte(formatFloat(b.Open)))
		h.Write([]byte{'|'})
		h.Write([]byte(formatFloat(b.High)))
		h.Write([]byte{'|'})
		h.Write([]byte(formatFloat(b.Low)))
		h.Write([]byte{'|'})
		h.Write([]byte(formatFloat(b.Close)))
		h.Write([]byte{'|'})
		h.Write([]byte(formatFloat(b.Volume)))
		h.Write([]byte{'|'})
		h.Write([]byte(formatFloat(b.Amount)))
		h.Write([]byte{'|'})
		h.Write([]byte(b.Source))
		h.Write([]byte{'|'})
		h.Write([]byte(strconv.FormatInt(b.IngestTs, 10)))
		h.Write([]byte{'\n'})
	}
	digest := hex.EncodeToString(h.Sum(nil))[:8]
	return fmt.Sprintf("part-%s-%s-%s.parquet", start, end, digest)
}

// compactDay turns YYYY-MM-DD into YYYYMMDD.
func compactDay(day string) string {
	if len(day) < 10 {
		return day
	}
	return day[:4] + day[5:7] + day[8:10]
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
