package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cn-data/internal/model"
	"cn-data/internal/saver"
)

// OHLCVA returns the built-in daily bar dataset spec. Partitioning is
// symbol=SYM/year=YYYY/month=MM under <root>/ohlcva/<variant>/.
func OHLCVA() Spec {
	return Spec{
		Name:          "ohlcva",
		Variants:      []string{"1d"},
		PartitionKeys: []string{"symbol", "year", "month"},
		Schema:        model.BarSchema(),
		EnsureReady:   ensureOHLCVAReady,
	}
}

// ensureOHLCVAReady creates the variant directory and, when no partition file
// exists yet, writes a zero-row placeholder so view creation over the glob
// never fails.
func ensureOHLCVAReady(ctx context.Context, root, variant string) error {
	s := OHLCVA()
	dir := s.VariantDir(root, variant)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create variant dir %s: %w", dir, err)
	}
	matches, err := filepath.Glob(s.Glob(root, variant))
	if err != nil {
		return fmt.Errorf("glob %s: %w", s.Glob(root, variant), err)
	}
	if len(matches) > 0 {
		return nil
	}
	return saver.WritePlaceholder(dir)
}
