package saver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"cn-data/internal/manifest"
	"cn-data/internal/model"
)

func mkBar(symbol, day string, close float64, ingestTs int64) model.Bar {
	t, _ := time.ParseInLocation("2006-01-02", day, time.UTC)
	return model.Bar{
		Ts:         t.UnixMilli(),
		TradingDay: day,
		Symbol:     symbol,
		Interval:   "1d",
		Open:       close - 0.5,
		High:       close + 1,
		Low:        close - 1,
		Close:      close,
		Volume:     1000,
		Amount:     close * 1000,
		Source:     "eastmoney",
		IngestTs:   ingestTs,
	}
}

func noTempFiles(t *testing.T, root string) {
	t.Helper()
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".tmp") {
			t.Errorf("temp file left visible: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
}

func TestWriteSinglePartition(t *testing.T) {
	root := t.TempDir()
	log := manifest.NewMemLog()
	w := NewPartitionWriter(root, log)

	rows := []model.Bar{
		mkBar("000001.SZ", "2024-01-02", 10.5, 100),
		mkBar("000001.SZ", "2024-01-03", 10.7, 100),
		mkBar("000001.SZ", "2024-01-04", 10.6, 100),
	}
	res, err := w.Write(context.Background(), "ohlcva", "1d", rows,
		manifest.Extra{Start: "2024-01-02", End: "2024-01-04", Mode: "full", Op: "ingest"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("partition errors: %v", res.Errors)
	}
	if len(res.Files) != 1 || res.Rows != 3 {
		t.Fatalf("files=%d rows=%d, want 1 file with 3 rows", len(res.Files), res.Rows)
	}

	f := res.Files[0]
	wantDir := filepath.Join(root, "ohlcva", "1d", "symbol=000001.SZ", "year=2024", "month=01")
	if filepath.Dir(f.Path) != wantDir {
		t.Errorf("file dir = %s, want %s", filepath.Dir(f.Path), wantDir)
	}
	base := filepath.Base(f.Path)
	if !strings.HasPrefix(base, "part-20240102-20240104-") || !strings.HasSuffix(base, ".parquet") {
		t.Errorf("file name = %q, want part-<start>-<end>-<hash>.parquet", base)
	}
	noTempFiles(t, root)

	got, err := parquet.ReadFile[model.Bar](f.Path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("read %d rows, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Ts < got[i-1].Ts {
			t.Errorf("rows not ts-ordered at %d", i)
		}
	}

	entries, err := log.Query(context.Background(), manifest.Filter{Dataset: "ohlcva"})
	if err != nil {
		t.Fatalf("manifest query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("manifest entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Rows != 3 || e.FilePath != f.Path {
		t.Errorf("manifest entry = %+v", e)
	}
	if e.Extra.Symbol != "000001.SZ" || e.Extra.Start != "2024-01-02" || e.Extra.Mode != "full" {
		t.Errorf("manifest extra = %+v", e.Extra)
	}
}

func TestWriteSplitsAcrossMonths(t *testing.T) {
	root := t.TempDir()
	log := manifest.NewMemLog()
	w := NewPartitionWriter(root, log)

	rows := []model.Bar{
		mkBar("600000.SH", "2024-01-31", 8.1, 1),
		mkBar("600000.SH", "2024-02-01", 8.2, 1),
	}
	res, err := w.Write(context.Background(), "ohlcva", "1d", rows, manifest.Extra{Op: "ingest"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(res.Files) != 2 {
		t.Fatalf("files = %d, want 2 (one per month)", len(res.Files))
	}
	if res.Files[0].Month != "01" || res.Files[1].Month != "02" {
		t.Errorf("months = %s, %s", res.Files[0].Month, res.Files[1].Month)
	}
	entries, _ := log.Query(context.Background(), manifest.Filter{})
	if len(entries) != 2 {
		t.Errorf("manifest entries = %d, want one per file", len(entries))
	}
}

func TestPartFileNameContentAddressed(t *testing.T) {
	rowsA := []model.Bar{mkBar("000001.SZ", "2024-01-02", 10.5, 100)}
	rowsB := []model.Bar{mkBar("000001.SZ", "2024-01-02", 10.5, 100)}
	if partFileName(rowsA) != partFileName(rowsB) {
		t.Error("identical content must produce identical names")
	}
	rowsC := []model.Bar{mkBar("000001.SZ", "2024-01-02", 10.5, 200)}
	if partFileName(rowsA) == partFileName(rowsC) {
		t.Error("different ingest_ts must produce a different name")
	}
	rowsD := []model.Bar{mkBar("000001.SZ", "2024-01-02", 10.6, 100)}
	if partFileName(rowsA) == partFileName(rowsD) {
		t.Error("different close must produce a different name")
	}
}

func TestRewriteIdenticalContentIsIdempotent(t *testing.T) {
	root := t.TempDir()
	log := manifest.NewMemLog()
	w := NewPartitionWriter(root, log)
	rows := []model.Bar{
		mkBar("000001.SZ", "2024-01-02", 10.5, 100),
		mkBar("000001.SZ", "2024-01-03", 10.7, 100),
	}

	first, err := w.Write(context.Background(), "ohlcva", "1d", rows, manifest.Extra{})
	if err != nil || len(first.Errors) != 0 {
		t.Fatalf("first write: %v %v", err, first.Errors)
	}
	second, err := w.Write(context.Background(), "ohlcva", "1d", rows, manifest.Extra{})
	if err != nil || len(second.Errors) != 0 {
		t.Fatalf("second write: %v %v", err, second.Errors)
	}
	if first.Files[0].Path != second.Files[0].Path {
		t.Errorf("retried identical write must converge on one file: %s vs %s",
			first.Files[0].Path, second.Files[0].Path)
	}

	dir := filepath.Dir(first.Files[0].Path)
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(des) != 1 {
		t.Errorf("partition holds %d files, want 1", len(des))
	}
	entries, _ := log.Query(context.Background(), manifest.Filter{})
	if len(entries) != 2 {
		t.Errorf("manifest entries = %d, re-ingestion appends, never rewrites", len(entries))
	}
}

func TestWriteMalformedDayIsolatedFromSiblings(t *testing.T) {
	root := t.TempDir()
	log := manifest.NewMemLog()
	w := NewPartitionWriter(root, log)

	bad := mkBar("000001.SZ", "2024-01-02", 10.5, 1)
	bad.TradingDay = "garbage"
	rows := []model.Bar{bad, mkBar("600000.SH", "2024-01-02", 8.0, 1)}

	res, err := w.Write(context.Background(), "ohlcva", "1d", rows, manifest.Extra{})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly the malformed row", res.Errors)
	}
	if len(res.Files) != 1 || res.Files[0].Symbol != "600000.SH" {
		t.Fatalf("good partition should still land, got %+v", res.Files)
	}
	entries, _ := log.Query(context.Background(), manifest.Filter{})
	if len(entries) != 1 {
		t.Errorf("failed partition must not reach the manifest, entries = %d", len(entries))
	}
}

type failLog struct{}

func (failLog) Append(context.Context, manifest.Entry) error { return errors.New("disk full") }
func (failLog) Query(context.Context, manifest.Filter) ([]manifest.Entry, error) {
	return nil, nil
}

func TestWriteManifestFailureReported(t *testing.T) {
	root := t.TempDir()
	w := NewPartitionWriter(root, failLog{})
	rows := []model.Bar{mkBar("000001.SZ", "2024-01-02", 10.5, 1)}

	res, err := w.Write(context.Background(), "ohlcva", "1d", rows, manifest.Extra{})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Error(), "manifest") {
		t.Fatalf("manifest failure should surface as a partition error, got %v", res.Errors)
	}
	if len(res.Files) != 0 {
		t.Errorf("a write without a manifest entry must not count as completed")
	}
}

func TestWritePlaceholder(t *testing.T) {
	variantDir := filepath.Join(t.TempDir(), "ohlcva", "1d")
	if err := os.MkdirAll(variantDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := WritePlaceholder(variantDir); err != nil {
		t.Fatalf("placeholder: %v", err)
	}

	pattern := filepath.Join(variantDir, "symbol=__placeholder__", "year=1970", "month=01", "part-empty-*.parquet")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) != 1 {
		t.Fatalf("placeholder glob %q matches = %v (%v)", pattern, matches, err)
	}
	rows, err := parquet.ReadFile[model.Bar](matches[0])
	if err != nil {
		t.Fatalf("placeholder must be a readable parquet file: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("placeholder rows = %d, want 0", len(rows))
	}

	partGlob := filepath.Join(variantDir, "symbol=*", "year=*", "month=*", "part-*.parquet")
	matches, _ = filepath.Glob(partGlob)
	if len(matches) != 1 {
		t.Errorf("placeholder must match the partition glob, matches = %v", matches)
	}
	noTempFiles(t, variantDir)
}

func TestWriteEmptyRowsNoop(t *testing.T) {
	root := t.TempDir()
	w := NewPartitionWriter(root, manifest.NewMemLog())
	res, err := w.Write(context.Background(), "ohlcva", "1d", nil, manifest.Extra{})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(res.Files) != 0 || res.Rows != 0 || len(res.Errors) != 0 {
		t.Errorf("empty write should be a no-op, got %+v", res)
	}
}
