package provider

import (
	"cn-data/internal/provider/eastmoney"
)

// EastmoneyProvider is a QuoteProvider implementation backed by the eastmoney
// push2 quote API. It embeds *eastmoney.Client to expose fetch and universe
// capabilities with minimal boilerplate.
type EastmoneyProvider struct {
	*eastmoney.Client
}

// NewEastmoneyProvider creates a new eastmoney-backed QuoteProvider.
func NewEastmoneyProvider(cfg eastmoney.Config) (*EastmoneyProvider, error) {
	client, err := eastmoney.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &EastmoneyProvider{Client: client}, nil
}

// Name returns provider name
func (p *EastmoneyProvider) Name() string {
	return "eastmoney"
}
