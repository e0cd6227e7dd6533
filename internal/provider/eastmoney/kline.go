package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cn-data/internal/model"
)

// klineColumns is the RawBatch column layout, aligned with the fields2
// parameter below (f51..f57).
var klineColumns = []string{"trading_day", "open", "close", "high", "low", "volume", "amount"}

// DailyBars fetches raw daily klines for one canonical symbol over the
// inclusive [start, end] day range. Unknown or delisted symbols yield an
// empty batch, not an error.
func (c *Client) DailyBars(ctx context.Context, symbol string, start, end time.Time) (*model.RawBatch, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"secid":   secIDFor(symbol),
			"klt":     "101", // daily
			"fqt":     strconv.Itoa(c.fqt),
			"beg":     start.Format("20060102"),
			"end":     end.Format("20060102"),
			"fields1": "f1,f2,f3,f4,f5,f6",
			"fields2": "f51,f52,f53,f54,f55,f56,f57",
		}).
		Get(c.klineBaseURL + "/api/qt/stock/kline/get")
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch klines for %s: status %s", symbol, resp.Status())
	}
	var env klineEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode klines for %s: %w", symbol, err)
	}

	batch := &model.RawBatch{Source: "eastmoney", Symbol: symbol, Columns: klineColumns}
	if env.Data == nil || len(env.Data.Klines) == 0 {
		return batch, nil
	}
	rows, err := parseKlines(env.Data.Klines)
	if err != nil {
		return nil, fmt.Errorf("klines for %s: %w", symbol, err)
	}
	batch.Rows = rows
	return batch, nil
}

// parseKlines splits comma-joined kline strings into rows aligned with
// klineColumns. Extra trailing fields are ignored.
func parseKlines(klines []string) ([][]string, error) {
	rows := make([][]string, 0, len(klines))
	for i, k := range klines {
		parts := strings.Split(k, ",")
		if len(parts) < len(klineColumns) {
			return nil, fmt.Errorf("malformed kline %d: %q", i, k)
		}
		rows = append(rows, parts[:len(klineColumns)])
	}
	return rows, nil
}
