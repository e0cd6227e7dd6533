package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration unmarshals YAML scalars like "20s" or "1m" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config holds application configuration. Precedence: built-in defaults,
// then the optional YAML file named by CONFIG_FILE, then environment
// variables.
type Config struct {
	DataRoot     string   `yaml:"data_root" validate:"required"`
	CatalogPath  string   `yaml:"catalog_path" validate:"required"`
	LogLevel     string   `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	Provider     string   `yaml:"provider" validate:"required"`
	Concurrency  int      `yaml:"concurrency" validate:"min=1,max=128"`
	BatchSize    int      `yaml:"batch_size" validate:"min=1"`
	Lookback     int      `yaml:"lookback" validate:"min=1,max=365"`
	RatePerSec   float64  `yaml:"rate_per_sec" validate:"gt=0"`
	Timeout      Duration `yaml:"timeout" validate:"gt=0"`
	Retries      int      `yaml:"retries" validate:"min=0,max=10"`
	Adjust       string   `yaml:"adjust" validate:"omitempty,oneof=qfq hfq"`
	MaxFailRatio float64  `yaml:"max_fail_ratio" validate:"min=0,max=1"`
	KlineBaseURL string   `yaml:"kline_base_url" validate:"omitempty,url"`
	ListBaseURL  string   `yaml:"list_base_url" validate:"omitempty,url"`
}

var validate = validator.New()

// LoadConfig reads config from the optional CONFIG_FILE overlay and the
// environment, then validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DataRoot:     "data",
		CatalogPath:  "catalog.duckdb",
		LogLevel:     "info",
		Provider:     "eastmoney",
		Concurrency:  8,
		BatchSize:    64,
		Lookback:     5,
		RatePerSec:   8,
		Timeout:      Duration(20 * time.Second),
		Retries:      2,
		MaxFailRatio: 0.2,
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints via struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DataRoot = getEnv("DATA_ROOT", c.DataRoot)
	c.CatalogPath = getEnv("CATALOG_PATH", c.CatalogPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Provider = getEnv("DATA_PROVIDER", c.Provider)
	c.Concurrency = getEnvInt("CONCURRENCY", c.Concurrency)
	c.BatchSize = getEnvInt("BATCH_SIZE", c.BatchSize)
	c.Lookback = getEnvInt("LOOKBACK", c.Lookback)
	c.RatePerSec = getEnvFloat("EASTMONEY_RATE", c.RatePerSec)
	c.Timeout = Duration(getEnvDuration("EASTMONEY_TIMEOUT", time.Duration(c.Timeout)))
	c.Retries = getEnvInt("EASTMONEY_RETRIES", c.Retries)
	// Empty means no price adjustment, so presence matters, not value.
	if v, ok := os.LookupEnv("EASTMONEY_ADJUST"); ok {
		c.Adjust = v
	}
	c.MaxFailRatio = getEnvFloat("MAX_FAIL_RATIO", c.MaxFailRatio)
	c.KlineBaseURL = getEnv("EASTMONEY_KLINE_URL", c.KlineBaseURL)
	c.ListBaseURL = getEnv("EASTMONEY_LIST_URL", c.ListBaseURL)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
