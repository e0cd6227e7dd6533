// Package universe resolves the set of canonical symbols an ingest run
// covers: explicit lists, symbol files, eastmoney boards, or the whole
// A-share market.
package universe

import (
	"fmt"
	"strings"
)

// Normalize maps user or API input to the canonical storage symbol.
// Bare codes are zero-padded to six digits and suffixed by exchange:
// prefix 0/3 is SZ, 6 is SH, anything else defaults to SZ. A known
// .SZ/.SH suffix is kept; unknown suffixes are rewritten to SZ.
func Normalize(sym string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(sym))
	if s == "" {
		return "", fmt.Errorf("empty symbol")
	}
	if code, exch, ok := strings.Cut(s, "."); ok {
		code = zfill6(code)
		if exch != "SZ" && exch != "SH" {
			exch = "SZ"
		}
		return code + "." + exch, nil
	}
	code := zfill6(s)
	if code[0] == '6' {
		return code + ".SH", nil
	}
	return code + ".SZ", nil
}

// NormalizeAll normalizes every entry and drops blanks and duplicates,
// keeping first-seen order.
func NormalizeAll(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		sym, err := Normalize(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out, nil
}

func zfill6(code string) string {
	if len(code) >= 6 {
		return code
	}
	return strings.Repeat("0", 6-len(code)) + code
}
