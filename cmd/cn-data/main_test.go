package main

import (
	"reflect"
	"testing"
	"time"

	"cn-data/internal/app"
)

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"000001.SZ", []string{"000001.SZ"}},
		{"000001.SZ, 600000.SH ,", []string{"000001.SZ", "600000.SH"}},
		{",,a,,b,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := splitCSV(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitCSV(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseWindow(t *testing.T) {
	s, e, err := parseWindow("2024-01-02", "2024-01-31")
	if err != nil {
		t.Fatalf("parseWindow: %v", err)
	}
	if !s.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", s)
	}
	if !e.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", e)
	}

	if _, _, err := parseWindow("", "2024-01-31"); err == nil {
		t.Error("want error for missing start")
	}
	if _, _, err := parseWindow("2024-01-31", "2024-01-02"); err == nil {
		t.Error("want error for end before start")
	}
	if _, _, err := parseWindow("01/02/2024", "2024-01-31"); err == nil {
		t.Error("want error for bad format")
	}
}

func TestFormatCSV(t *testing.T) {
	ts := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{[]byte("raw"), "raw"},
		{ts, "2024-01-02T09:30:00Z"},
		{float64(10.5), "10.5"},
		{int64(3), "3"},
		{"s", "s"},
	}
	for _, tt := range tests {
		if got := formatCSV(tt.in); got != tt.want {
			t.Errorf("formatCSV(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIngestOverrides(t *testing.T) {
	cfg := &app.Config{
		DataRoot:     "data",
		CatalogPath:  "catalog.duckdb",
		Concurrency:  8,
		Retries:      2,
		Adjust:       "qfq",
		MaxFailRatio: 0.2,
	}
	c := &ingestCmd{
		root:        "/srv/lake",
		concurrency: 2,
		retries:     0,
		adjust:      "none",
		maxFail:     -1,
	}
	c.applyOverrides(cfg)

	if cfg.DataRoot != "/srv/lake" {
		t.Errorf("DataRoot = %q", cfg.DataRoot)
	}
	if cfg.CatalogPath != "catalog.duckdb" {
		t.Errorf("CatalogPath = %q, want untouched", cfg.CatalogPath)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d", cfg.Concurrency)
	}
	if cfg.Retries != 0 {
		t.Errorf("Retries = %d, want explicit 0", cfg.Retries)
	}
	if cfg.Adjust != "" {
		t.Errorf("Adjust = %q, want cleared by none", cfg.Adjust)
	}
	if cfg.MaxFailRatio != 0.2 {
		t.Errorf("MaxFailRatio = %v, want untouched", cfg.MaxFailRatio)
	}
}
