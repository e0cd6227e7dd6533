package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"cn-data/internal/app"
	"cn-data/internal/slogx"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info"))
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&ingestCmd{}, "")
	subcommands.Register(&exportCmd{}, "")
	subcommands.Register(&queryCmd{}, "")

	flag.Parse()

	ctx, cancel := app.SignalContext(context.Background())
	defer cancel()

	os.Exit(int(subcommands.Execute(ctx)))
}

// loadConfig loads config and re-inits the default logger at the configured
// level. Flag overrides run between the two.
func loadConfig(override func(*app.Config)) (*app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	slog.SetDefault(slogx.NewDefault(cfg.LogLevel))
	return cfg, nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, errors.New("-start and -end are required (YYYY-MM-DD)")
	}
	s, err := parseDay(start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad -start: %w", err)
	}
	e, err := parseDay(end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad -end: %w", err)
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("-end %s before -start %s", end, start)
	}
	return s, e, nil
}
