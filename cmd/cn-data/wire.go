//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"cn-data/internal/app"
	"cn-data/internal/dataset"
	"cn-data/internal/ingest"
	"cn-data/internal/lake"
	"cn-data/internal/manifest"
	"cn-data/internal/provider"
	"cn-data/internal/saver"
)

// App holds application dependencies built by Wire.
type App struct {
	Config   *app.Config
	Quotes   provider.QuoteProvider
	Universe provider.UniverseLister
	Registry *dataset.Registry
	Lake     *lake.Lake
	Log      manifest.Log
	Writer   *saver.PartitionWriter
	Runner   *ingest.Runner
}

// Close releases the provider and the catalog connection.
func (a *App) Close() {
	if a.Quotes != nil {
		a.Quotes.Close()
	}
	if a.Lake != nil {
		a.Lake.Close()
	}
}

// InitializeApp builds the dependency graph via Wire from an already loaded
// (and flag-adjusted) config. Caller must call a.Close() when done.
func InitializeApp(ctx context.Context, cfg *app.Config) (*App, error) {
	wire.Build(
		app.ProvideRegistry,
		app.ProvideLake,
		app.ProvideManifestLog,
		app.ProvideWriter,
		app.ProvideEastmoneyProvider,
		wire.Bind(new(provider.QuoteProvider), new(*provider.EastmoneyProvider)),
		wire.Bind(new(provider.UniverseLister), new(*provider.EastmoneyProvider)),
		app.ProvideRunner,
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
