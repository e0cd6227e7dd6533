package eastmoney

// klineEnvelope is the kline/get response shell. data is null for unknown or
// delisted securities.
type klineEnvelope struct {
	RC   int        `json:"rc"`
	Data *klineData `json:"data"`
}

type klineData struct {
	Code   string   `json:"code"`
	Market int      `json:"market"`
	Name   string   `json:"name"`
	Klines []string `json:"klines"` // "date,open,close,high,low,volume,amount"
}

// clistEnvelope is the clist/get response shell used by universe queries.
type clistEnvelope struct {
	RC   int        `json:"rc"`
	Data *clistData `json:"data"`
}

type clistData struct {
	Total int        `json:"total"`
	Diff  []clistRow `json:"diff"`
}

type clistRow struct {
	Code string `json:"f12"`
}
