// Package normalize types raw provider batches against a dataset schema and
// enforces row sanity before anything reaches the writer.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cn-data/internal/dataset"
	"cn-data/internal/model"
)

// China has no DST; a fixed UTC+8 zone is exact for trading days.
var shanghai = time.FixedZone("Asia/Shanghai", 8*60*60)

// SchemaError names the first offending column of a raw batch, in canonical
// schema order. Fatal to the batch, never to the run.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error on column %q: %s", e.Column, e.Reason)
}

// Report counts what validation did to a batch.
type Report struct {
	RowsIn           int
	RowsOut          int
	Duplicates       int
	NonPositivePrice int
	PriceOrder       int // high/low inconsistent with open/close
	NegativeVolume   int
	NegativeAmount   int
	Dropped          int
}

// Violations is the total number of sanity-check hits.
func (r Report) Violations() int {
	return r.NonPositivePrice + r.PriceOrder + r.NegativeVolume + r.NegativeAmount
}

// QualityError is returned under PolicyAbortBatch when any sanity check hit.
type QualityError struct {
	Report Report
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("data quality violations in batch: %d of %d rows", e.Report.Violations(), e.Report.RowsIn)
}

// Policy decides what happens to rows failing sanity checks. Values are
// never coerced.
type Policy int

const (
	PolicyDropRow Policy = iota
	PolicyAbortBatch
)

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return PolicyDropRow, nil
	case "abort":
		return PolicyAbortBatch, nil
	default:
		return 0, fmt.Errorf("unknown quality policy %q (use: drop, abort)", s)
	}
}

// Options control stamping and disposition.
type Options struct {
	Interval   string    // stamped on every row, e.g. 1d
	Policy     Policy    // sanity check disposition
	IngestTime time.Time // zero means now
}

// stamped columns are produced here, not read from the raw batch.
var stamped = map[string]bool{
	"ts":        true,
	"symbol":    true,
	"interval":  true,
	"source":    true,
	"ingest_ts": true,
}

// Normalize parses batch into canonical bars against spec.Schema: required
// columns present and typed, enrichment stamped, in-batch duplicates removed
// (latest ingest_ts wins, first input occurrence on ties), sanity checks
// applied per opts.Policy.
func Normalize(batch *model.RawBatch, spec dataset.Spec, opts Options) ([]model.Bar, Report, error) {
	var rep Report
	if batch.Symbol == "" {
		return nil, rep, &SchemaError{Column: "symbol", Reason: "missing"}
	}
	if opts.Interval == "" {
		opts.Interval = "1d"
	}
	ingestTime := opts.IngestTime
	if ingestTime.IsZero() {
		ingestTime = time.Now()
	}
	ingestTs := ingestTime.UTC().UnixMilli()

	// Bind required input columns in canonical order so the first schema
	// problem is reported deterministically.
	type binding struct {
		col model.Column
		idx int
	}
	var binds []binding
	for _, c := range spec.Schema {
		if stamped[c.Name] {
			continue
		}
		idx := batch.ColumnIndex(c.Name)
		if idx < 0 {
			return nil, rep, &SchemaError{Column: c.Name, Reason: "missing"}
		}
		binds = append(binds, binding{col: c, idx: idx})
	}

	rep.RowsIn = len(batch.Rows)
	bars := make([]model.Bar, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		b := model.Bar{
			Symbol:   batch.Symbol,
			Interval: opts.Interval,
			Source:   batch.Source,
			IngestTs: ingestTs,
		}
		for _, bd := range binds {
			if bd.idx >= len(row) {
				return nil, rep, &SchemaError{Column: bd.col.Name, Reason: "row too short"}
			}
			cell := strings.TrimSpace(row[bd.idx])
			if err := bindCell(&b, bd.col, cell); err != nil {
				return nil, rep, err
			}
		}
		bars = append(bars, b)
	}

	bars, dups := dedupeKeepLatest(bars)
	rep.Duplicates = dups

	kept := bars[:0]
	for _, b := range bars {
		if ok := checkSanity(&b, &rep); ok {
			kept = append(kept, b)
		} else {
			rep.Dropped++
		}
	}
	if rep.Violations() > 0 && opts.Policy == PolicyAbortBatch {
		rep.RowsOut = 0
		return nil, rep, &QualityError{Report: rep}
	}
	rep.RowsOut = len(kept)
	return kept, rep, nil
}

// bindCell parses one cell into its Bar field by canonical column name.
func bindCell(b *model.Bar, col model.Column, cell string) error {
	switch col.Kind {
	case model.KindDay:
		day, err := time.ParseInLocation("2006-01-02", cell, shanghai)
		if err != nil {
			return &SchemaError{Column: col.Name, Reason: fmt.Sprintf("bad day %q", cell)}
		}
		b.TradingDay = cell
		b.Ts = day.UTC().UnixMilli()
		return nil
	case model.KindFloat:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return &SchemaError{Column: col.Name, Reason: fmt.Sprintf("bad number %q", cell)}
		}
		switch col.Name {
		case "open":
			b.Open = f
		case "high":
			b.High = f
		case "low":
			b.Low = f
		case "close":
			b.Close = f
		case "volume":
			b.Volume = f
		case "amount":
			b.Amount = f
		default:
			return &SchemaError{Column: col.Name, Reason: "no binding for column"}
		}
		return nil
	default:
		return &SchemaError{Column: col.Name, Reason: "no binding for column"}
	}
}

// dedupeKeepLatest removes in-batch duplicate keys, keeping the row with the
// latest ingest_ts; on equal ingest_ts the first input occurrence stays.
func dedupeKeepLatest(bars []model.Bar) ([]model.Bar, int) {
	seen := make(map[model.BarKey]int, len(bars))
	out := bars[:0]
	dups := 0
	for _, b := range bars {
		k := b.Key()
		if i, ok := seen[k]; ok {
			dups++
			if b.IngestTs > out[i].IngestTs {
				out[i] = b
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, b)
	}
	return out, dups
}

func checkSanity(b *model.Bar, rep *Report) bool {
	ok := true
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		rep.NonPositivePrice++
		ok = false
	}
	if b.High < b.Low || b.High < b.Open || b.High < b.Close || b.Low > b.Open || b.Low > b.Close {
		rep.PriceOrder++
		ok = false
	}
	if b.Volume < 0 {
		rep.NegativeVolume++
		ok = false
	}
	if b.Amount < 0 {
		rep.NegativeAmount++
		ok = false
	}
	return ok
}
