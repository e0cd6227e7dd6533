// Package eastmoney fetches daily klines and symbol universes from the
// eastmoney push2 quote API, the upstream behind most CN A-share data tools.
package eastmoney

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	defaultKlineBaseURL = "https://push2his.eastmoney.com"
	defaultListBaseURL  = "https://push2.eastmoney.com"

	// clist page size; total counts in the thousands for the full market
	listPageSize = 200
	// hard page cap so a lying total can never loop forever
	maxListPages = 200

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
)

// Config holds the connector knobs. Zero values fall back to defaults.
type Config struct {
	KlineBaseURL string
	ListBaseURL  string
	Timeout      time.Duration // per request, default 20s
	Retries      int           // transient-failure retries per request, default 2
	RatePerSec   float64       // shared request budget, default 8
	Adjust       string        // price adjustment: "", qfq, hfq
}

// Client talks to the quote API under a shared token-bucket rate limit.
// Retries with backoff are handled per request by the HTTP layer; exhausted
// retries surface as errors the caller records as per-symbol skips.
type Client struct {
	http         *resty.Client
	limiter      *rate.Limiter
	klineBaseURL string
	listBaseURL  string
	fqt          int
}

// NewClient validates cfg and builds the client.
func NewClient(cfg Config) (*Client, error) {
	fqt, err := fqtFromAdjust(cfg.Adjust)
	if err != nil {
		return nil, err
	}
	if cfg.KlineBaseURL == "" {
		cfg.KlineBaseURL = defaultKlineBaseURL
	}
	if cfg.ListBaseURL == "" {
		cfg.ListBaseURL = defaultListBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	} else if cfg.Retries == 0 {
		cfg.Retries = 2
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 8
	}

	httpc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(60 * time.Second).
		SetHeader("User-Agent", userAgent).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == 429 || r.StatusCode() >= 500
		})

	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		http:         httpc,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		klineBaseURL: strings.TrimRight(cfg.KlineBaseURL, "/"),
		listBaseURL:  strings.TrimRight(cfg.ListBaseURL, "/"),
		fqt:          fqt,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}

// fqtFromAdjust maps the price adjustment mode to the API's fqt parameter:
// none=0, qfq=1 (forward), hfq=2 (backward).
func fqtFromAdjust(adjust string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(adjust)) {
	case "":
		return 0, nil
	case "qfq":
		return 1, nil
	case "hfq":
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown adjust mode %q (use: \"\", qfq, hfq)", adjust)
	}
}

// secIDFor maps a canonical symbol to the API's market-prefixed security id:
// 1.<code> for SH, 0.<code> for everything else.
func secIDFor(symbol string) string {
	code := symbol
	market := "0"
	if i := strings.IndexByte(symbol, '.'); i >= 0 {
		code = symbol[:i]
		if symbol[i+1:] == "SH" {
			market = "1"
		}
	}
	return market + "." + code
}
