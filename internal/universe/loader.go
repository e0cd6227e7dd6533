package universe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadSymbolsFromFile reads a symbol list from a file.
// Supported formats:
//   - .txt  : one symbol per line, '#' lines are treated as comments
//   - .json : JSON array of strings
//
// Entries are returned raw; callers normalize.
func LoadSymbolsFromFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbols file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var symbols []string
		if err := json.Unmarshal(content, &symbols); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return symbols, nil
	case ".txt":
		return parseSymbolsFromText(string(content)), nil
	default:
		return nil, fmt.Errorf("unsupported symbols file extension %q (use .txt or .json)", filepath.Ext(path))
	}
}

// parseSymbolsFromText parses a plain text list where each non-empty,
// non-comment line is one symbol.
func parseSymbolsFromText(s string) []string {
	var symbols []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			symbols = append(symbols, line)
		}
	}
	return symbols
}
