package model

// Kind is the parse/projection target of a canonical column.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindMillis // int64 epoch milliseconds, exposed as TIMESTAMP by the lake views
	KindDay    // calendar day string YYYY-MM-DD, exposed as DATE
)

// Column is one named, typed column of a dataset schema.
type Column struct {
	Name string
	Kind Kind
}

// Schema is an ordered column list. Order is part of the contract: schema
// errors report the first offending column in this order.
type Schema []Column

// Index returns the position of name in the schema, -1 when absent.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// BarSchema returns the canonical bar schema. Must stay aligned with the
// parquet tags on Bar; the lake view projection is generated from it.
func BarSchema() Schema {
	return Schema{
		{Name: "ts", Kind: KindMillis},
		{Name: "trading_day", Kind: KindDay},
		{Name: "symbol", Kind: KindString},
		{Name: "interval", Kind: KindString},
		{Name: "open", Kind: KindFloat},
		{Name: "high", Kind: KindFloat},
		{Name: "low", Kind: KindFloat},
		{Name: "close", Kind: KindFloat},
		{Name: "volume", Kind: KindFloat},
		{Name: "amount", Kind: KindFloat},
		{Name: "source", Kind: KindString},
		{Name: "ingest_ts", Kind: KindMillis},
	}
}

// RawBatch is an ordered, named tabular batch of string cells, the shape the
// quote APIs deliver klines in. Typing happens in normalize, against the
// dataset schema.
type RawBatch struct {
	Source  string // provider tag
	Symbol  string // canonical symbol the batch belongs to
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of name in the batch, -1 when absent.
func (b *RawBatch) ColumnIndex(name string) int {
	for i, c := range b.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
