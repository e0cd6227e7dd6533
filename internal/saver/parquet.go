package saver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"cn-data/internal/model"
)

// placeholderSymbol keys the synthetic partition that keeps globs non-empty
// on a fresh store. Zero rows, canonical schema.
const placeholderSymbol = "__placeholder__"

// writeParquetAtomic writes rows to a temp file in dir, syncs, then renames
// to name. The rename is the visibility boundary: readers either see the
// complete file or nothing. On any failure the temp file is removed.
func writeParquetAtomic(dir, name string, rows []model.Bar) error {
	f, err := os.CreateTemp(dir, "part-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmp := f.Name()
	discard := func(err error) error {
		f.Close()
		os.Remove(tmp)
		return err
	}

	w := parquet.NewGenericWriter[model.Bar](f)
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return discard(fmt.Errorf("write parquet rows: %w", err))
		}
	}
	if err := w.Close(); err != nil {
		return discard(fmt.Errorf("close parquet writer: %w", err))
	}
	if err := f.Sync(); err != nil {
		return discard(fmt.Errorf("sync %s: %w", tmp, err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	final := filepath.Join(dir, name)
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s -> %s: %w", tmp, final, err)
	}
	return nil
}

// WritePlaceholder writes a zero-row parquet file with the canonical bar
// schema under symbol=__placeholder__/year=1970/month=01 of variantDir, so
// that view creation over the partition glob always has a file to bind.
func WritePlaceholder(variantDir string) error {
	dir := filepath.Join(variantDir, "symbol="+placeholderSymbol, "year=1970", "month=01")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create placeholder dir %s: %w", dir, err)
	}
	name := fmt.Sprintf("part-empty-%s.parquet", uuid.NewString()[:8])
	if err := writeParquetAtomic(dir, name, nil); err != nil {
		return fmt.Errorf("write placeholder: %w", err)
	}
	return nil
}
