package app

import (
	"context"
	"fmt"

	"cn-data/internal/dataset"
	"cn-data/internal/ingest"
	"cn-data/internal/lake"
	"cn-data/internal/manifest"
	"cn-data/internal/provider"
	"cn-data/internal/saver"
)

// ProvideRegistry builds the dataset registry with every built-in spec (for Wire).
func ProvideRegistry() (*dataset.Registry, error) {
	reg := dataset.NewRegistry()
	if err := reg.Register(dataset.OHLCVA()); err != nil {
		return nil, err
	}
	return reg, nil
}

// ProvideLake opens the DuckDB catalog over the data root (for Wire).
// Caller must Close the lake when shutting down.
func ProvideLake(cfg *Config, reg *dataset.Registry) (*lake.Lake, error) {
	return lake.Open(cfg.CatalogPath, cfg.DataRoot, reg)
}

// ProvideManifestLog creates the append-only manifest table inside the lake
// catalog (for Wire).
func ProvideManifestLog(ctx context.Context, l *lake.Lake) (manifest.Log, error) {
	return manifest.NewDuckLog(ctx, l.DB())
}

// ProvideWriter creates the parquet partition writer rooted at the data root
// (for Wire).
func ProvideWriter(cfg *Config, log manifest.Log) *saver.PartitionWriter {
	return saver.NewPartitionWriter(cfg.DataRoot, log)
}

// ProvideEastmoneyProvider creates the configured quote provider (for Wire).
// Returns error if the configured provider is not eastmoney.
// Caller must call Close() when shutting down.
func ProvideEastmoneyProvider(cfg *Config) (*provider.EastmoneyProvider, error) {
	p, err := CreateProvider(cfg)
	if err != nil {
		return nil, err
	}
	ep, ok := p.(*provider.EastmoneyProvider)
	if !ok {
		return nil, fmt.Errorf("expected *provider.EastmoneyProvider, got %T", p)
	}
	return ep, nil
}

// ProvideRunner assembles the ingest runner from its collaborators (for Wire).
func ProvideRunner(reg *dataset.Registry, qp provider.QuoteProvider, l *lake.Lake, w *saver.PartitionWriter, log manifest.Log) *ingest.Runner {
	return &ingest.Runner{
		Registry:  reg,
		Provider:  qp,
		Freshness: l,
		Views:     l,
		Writer:    w,
		Log:       log,
	}
}
