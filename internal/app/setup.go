package app

import (
	"fmt"
	"strings"
	"time"

	"cn-data/internal/provider"
	"cn-data/internal/provider/eastmoney"
)

// CreateProvider creates QuoteProvider from config (currently eastmoney only)
func CreateProvider(cfg *Config) (provider.QuoteProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "eastmoney":
		return createEastmoneyProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported data provider: %s. Options: eastmoney", cfg.Provider)
	}
}

func createEastmoneyProvider(cfg *Config) (provider.QuoteProvider, error) {
	retries := cfg.Retries
	if retries == 0 {
		// Zero in config means no retries; the client reserves 0 for its
		// own default.
		retries = -1
	}
	return provider.NewEastmoneyProvider(eastmoney.Config{
		KlineBaseURL: cfg.KlineBaseURL,
		ListBaseURL:  cfg.ListBaseURL,
		Timeout:      time.Duration(cfg.Timeout),
		Retries:      retries,
		RatePerSec:   cfg.RatePerSec,
		Adjust:       cfg.Adjust,
	})
}
