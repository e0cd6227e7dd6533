package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cn-data/internal/dataset"
	"cn-data/internal/model"
)

// klineColumns mirrors the provider's column order, which intentionally
// differs from canonical schema order.
var klineColumns = []string{"trading_day", "open", "close", "high", "low", "volume", "amount"}

func rawBatch(rows ...[]string) *model.RawBatch {
	return &model.RawBatch{
		Source:  "eastmoney",
		Symbol:  "000001.SZ",
		Columns: klineColumns,
		Rows:    rows,
	}
}

func opts() Options {
	return Options{
		Interval:   "1d",
		Policy:     PolicyDropRow,
		IngestTime: time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestNormalizeHappyPath(t *testing.T) {
	batch := rawBatch(
		[]string{"2024-01-02", "10.00", "10.50", "10.70", "9.90", "1000", "10450"},
		[]string{"2024-01-03", "10.50", "10.40", "10.60", "10.30", "900", "9360"},
	)
	bars, rep, err := Normalize(batch, dataset.OHLCVA(), opts())
	require.NoError(t, err)
	require.Len(t, bars, 2)

	b := bars[0]
	assert.Equal(t, "000001.SZ", b.Symbol)
	assert.Equal(t, "1d", b.Interval)
	assert.Equal(t, "eastmoney", b.Source)
	assert.Equal(t, "2024-01-02", b.TradingDay)
	assert.Equal(t, 10.0, b.Open)
	assert.Equal(t, 10.7, b.High)
	assert.Equal(t, 9.9, b.Low)
	assert.Equal(t, 10.5, b.Close)
	assert.Equal(t, 1000.0, b.Volume)
	assert.Equal(t, 10450.0, b.Amount)

	// Shanghai midnight of 2024-01-02 is 16:00 UTC the day before.
	wantTs := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, wantTs, b.Ts)
	assert.Equal(t, opts().IngestTime.UnixMilli(), b.IngestTs)

	assert.Equal(t, 2, rep.RowsIn)
	assert.Equal(t, 2, rep.RowsOut)
	assert.Zero(t, rep.Violations())
}

func TestNormalizeMissingColumnNamesFirstInCanonicalOrder(t *testing.T) {
	batch := rawBatch([]string{"2024-01-02", "10", "10", "10", "10", "1", "1"})
	batch.Columns = []string{"trading_day", "close", "volume", "amount"} // open, high, low absent

	_, _, err := Normalize(batch, dataset.OHLCVA(), opts())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "open", se.Column, "canonical order puts open before high and low")
}

func TestNormalizeUnparsableCell(t *testing.T) {
	batch := rawBatch([]string{"2024-01-02", "10.00", "10.50", "10.70", "9.90", "n/a", "10450"})
	_, _, err := Normalize(batch, dataset.OHLCVA(), opts())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "volume", se.Column)
}

func TestNormalizeBadDay(t *testing.T) {
	batch := rawBatch([]string{"02/01/2024", "10.00", "10.50", "10.70", "9.90", "1000", "10450"})
	_, _, err := Normalize(batch, dataset.OHLCVA(), opts())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "trading_day", se.Column)
}

func TestNormalizeRowTooShort(t *testing.T) {
	batch := rawBatch([]string{"2024-01-02", "10.00"})
	_, _, err := Normalize(batch, dataset.OHLCVA(), opts())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
}

func TestNormalizeMissingSymbol(t *testing.T) {
	batch := rawBatch([]string{"2024-01-02", "10.00", "10.50", "10.70", "9.90", "1000", "10450"})
	batch.Symbol = ""
	_, _, err := Normalize(batch, dataset.OHLCVA(), opts())
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "symbol", se.Column)
}

func TestNormalizeDedupKeepsFirstOnEqualIngest(t *testing.T) {
	batch := rawBatch(
		[]string{"2024-01-02", "10.00", "10.50", "10.70", "9.90", "1000", "10450"},
		[]string{"2024-01-02", "10.00", "11.11", "11.20", "9.90", "1000", "10450"},
	)
	bars, rep, err := Normalize(batch, dataset.OHLCVA(), opts())
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 10.5, bars[0].Close, "first occurrence wins on equal ingest_ts")
	assert.Equal(t, 1, rep.Duplicates)
}

func TestDedupeKeepLatestPrefersNewerIngest(t *testing.T) {
	bars := []model.Bar{
		{Symbol: "A", Ts: 1, Interval: "1d", Close: 1.0, IngestTs: 100},
		{Symbol: "A", Ts: 1, Interval: "1d", Close: 2.0, IngestTs: 200},
	}
	out, dups := dedupeKeepLatest(bars)
	require.Len(t, out, 1)
	assert.Equal(t, 2.0, out[0].Close)
	assert.Equal(t, 1, dups)
}

func TestNormalizeDropPolicy(t *testing.T) {
	batch := rawBatch(
		[]string{"2024-01-02", "10.00", "10.50", "9.00", "9.90", "1000", "10450"}, // high < low
		[]string{"2024-01-03", "10.50", "10.40", "10.60", "10.30", "900", "9360"},
	)
	bars, rep, err := Normalize(batch, dataset.OHLCVA(), opts())
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "2024-01-03", bars[0].TradingDay)
	assert.Equal(t, 1, rep.PriceOrder)
	assert.Equal(t, 1, rep.Dropped)
	assert.Equal(t, 1, rep.RowsOut)
}

func TestNormalizeAbortPolicy(t *testing.T) {
	batch := rawBatch(
		[]string{"2024-01-02", "10.00", "10.50", "9.00", "9.90", "1000", "10450"},
		[]string{"2024-01-03", "10.50", "10.40", "10.60", "10.30", "900", "9360"},
	)
	o := opts()
	o.Policy = PolicyAbortBatch
	bars, rep, err := Normalize(batch, dataset.OHLCVA(), o)
	var qe *QualityError
	require.ErrorAs(t, err, &qe)
	assert.Nil(t, bars)
	assert.Equal(t, 1, qe.Report.PriceOrder)
	assert.Zero(t, rep.RowsOut)
}

func TestNormalizeSanityCategories(t *testing.T) {
	tests := []struct {
		name  string
		row   []string
		check func(t *testing.T, rep Report)
	}{
		{
			name: "non-positive price",
			row:  []string{"2024-01-02", "0", "10.50", "10.70", "9.90", "1000", "10450"},
			check: func(t *testing.T, rep Report) {
				assert.Equal(t, 1, rep.NonPositivePrice)
			},
		},
		{
			name: "negative volume",
			row:  []string{"2024-01-02", "10.00", "10.50", "10.70", "9.90", "-5", "10450"},
			check: func(t *testing.T, rep Report) {
				assert.Equal(t, 1, rep.NegativeVolume)
			},
		},
		{
			name: "negative amount",
			row:  []string{"2024-01-02", "10.00", "10.50", "10.70", "9.90", "1000", "-1"},
			check: func(t *testing.T, rep Report) {
				assert.Equal(t, 1, rep.NegativeAmount)
			},
		},
		{
			name: "close above high",
			row:  []string{"2024-01-02", "10.00", "12.00", "10.70", "9.90", "1000", "10450"},
			check: func(t *testing.T, rep Report) {
				assert.Equal(t, 1, rep.PriceOrder)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars, rep, err := Normalize(rawBatch(tt.row), dataset.OHLCVA(), opts())
			require.NoError(t, err)
			assert.Empty(t, bars)
			assert.Equal(t, 1, rep.Dropped)
			tt.check(t, rep)
		})
	}
}

func TestNormalizeEmptyBatch(t *testing.T) {
	bars, rep, err := Normalize(rawBatch(), dataset.OHLCVA(), opts())
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.Zero(t, rep.RowsIn)
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy("drop"); err != nil || p != PolicyDropRow {
		t.Errorf("drop = %v, %v", p, err)
	}
	if p, err := ParsePolicy("ABORT"); err != nil || p != PolicyAbortBatch {
		t.Errorf("abort = %v, %v", p, err)
	}
	if p, err := ParsePolicy(""); err != nil || p != PolicyDropRow {
		t.Errorf("default = %v, %v", p, err)
	}
	if _, err := ParsePolicy("coerce"); err == nil {
		t.Error("unknown policy should error")
	}
}
