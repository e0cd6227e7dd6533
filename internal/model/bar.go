package model

// Bar is one daily OHLCVA row in canonical column order.
// Shared by provider, normalize, saver and the lake views (parquet serialization).
type Bar struct {
	Ts         int64   `json:"ts" parquet:"ts"`                   // UTC milliseconds, trading day midnight Asia/Shanghai
	TradingDay string  `json:"trading_day" parquet:"trading_day"` // YYYY-MM-DD
	Symbol     string  `json:"symbol" parquet:"symbol"`           // canonical, e.g. 000001.SZ
	Interval   string  `json:"interval" parquet:"interval"`       // 1d
	Open       float64 `json:"open" parquet:"open"`
	High       float64 `json:"high" parquet:"high"`
	Low        float64 `json:"low" parquet:"low"`
	Close      float64 `json:"close" parquet:"close"`
	Volume     float64 `json:"volume" parquet:"volume"`
	Amount     float64 `json:"amount" parquet:"amount"`
	Source     string  `json:"source" parquet:"source"`       // provenance tag, e.g. eastmoney
	IngestTs   int64   `json:"ingest_ts" parquet:"ingest_ts"` // UTC milliseconds, stamped per fetch
}

// BarKey is the logical row identity. Duplicates across runs share a key and
// resolve at read time by the latest IngestTs.
type BarKey struct {
	Symbol   string
	Ts       int64
	Interval string
}

func (b *Bar) Key() BarKey {
	return BarKey{Symbol: b.Symbol, Ts: b.Ts, Interval: b.Interval}
}

// PartitionYearMonth derives the (year, month) partition labels from TradingDay.
// ok is false when TradingDay is not YYYY-MM-DD shaped.
func (b *Bar) PartitionYearMonth() (year, month string, ok bool) {
	if len(b.TradingDay) < 7 || b.TradingDay[4] != '-' {
		return "", "", false
	}
	return b.TradingDay[:4], b.TradingDay[5:7], true
}
