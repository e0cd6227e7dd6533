package lake

import "strings"

// interval is a reserved word in the engine, so it is always quoted.
var reservedIdents = map[string]bool{"interval": true}

// quoteIdent safely quotes a SQL identifier: reserved words and anything
// carrying separator characters get double quotes, embedded quotes doubled.
func quoteIdent(ident string) string {
	if reservedIdents[strings.ToLower(ident)] || strings.ContainsAny(ident, " -./\\`\"'") {
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	}
	return ident
}

// sqlLiteral escapes a string for embedding between single quotes.
func sqlLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
