package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one upstream price source.
type SourceConfig struct {
	Name    string   `yaml:"name"`
	BaseURL string   `yaml:"base_url"`
	Routes  []string `yaml:"routes"`
}

// Config holds all application configuration.
type Config struct {
	Benchmark string `yaml:"benchmark"`
	Signal    struct {
		ReturnLagWeeks int     `yaml:"return_lag_weeks"`
		ZWindowWeeks   int     `yaml:"z_window_weeks"`
		Clamp          float64 `yaml:"clamp"`
		MinSamples     int     `yaml:"min_samples"`
		MinStd         float64 `yaml:"min_std"`
	} `yaml:"signal"`
	Fetch struct {
		LookbackYears int           `yaml:"lookback_years"`
		MinPoints     int           `yaml:"min_points"`
		MaxAttempts   int           `yaml:"max_attempts"`
		BackoffStep   time.Duration `yaml:"backoff_step"`
		Timeout       time.Duration `yaml:"timeout"`
		Race          bool          `yaml:"race"`
		Concurrency   int           `yaml:"concurrency"`
		UserAgent     string        `yaml:"user_agent"`
		RateLimit     struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
		Breaker struct {
			Enabled             bool          `yaml:"enabled"`
			ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
			OpenTimeout         time.Duration `yaml:"open_timeout"`
		} `yaml:"breaker"`
	} `yaml:"fetch"`
	Sources []SourceConfig `yaml:"sources"`
	Cache   struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Storage struct {
		Driver     string `yaml:"driver"`
		Dir        string `yaml:"dir"`
		SQLitePath string `yaml:"sqlite_path"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"storage"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BENCHMARK"); v != "" {
		c.Benchmark = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Storage.Redis.Password = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		c.Schedule.RefreshCron = v
	}
	if v := os.Getenv("METRICS_LISTEN"); v != "" {
		c.Metrics.Listen = v
	}
	if v := os.Getenv("FETCH_RACE"); v != "" {
		c.Fetch.Race = v == "true" || v == "1"
	}
	if v := os.Getenv("ZSCORE_CLAMP"); v != "" {
		var clamp float64
		if _, err := fmt.Sscanf(v, "%f", &clamp); err != nil {
			return fmt.Errorf("ZSCORE_CLAMP: %w", err)
		}
		c.Signal.Clamp = clamp
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		c.Cache.TTL = ttl
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Benchmark == "" {
		c.Benchmark = "SPY"
	}
	c.Benchmark = strings.ToUpper(strings.TrimSpace(c.Benchmark))
	if c.Signal.ReturnLagWeeks == 0 {
		c.Signal.ReturnLagWeeks = 52
	}
	if c.Signal.ZWindowWeeks == 0 {
		c.Signal.ZWindowWeeks = 156
	}
	if c.Signal.Clamp == 0 {
		c.Signal.Clamp = 4
	}
	if c.Signal.MinSamples == 0 {
		c.Signal.MinSamples = 20
	}
	if c.Signal.MinStd == 0 {
		c.Signal.MinStd = 0.5
	}
	if c.Fetch.LookbackYears == 0 {
		c.Fetch.LookbackYears = 15
	}
	if c.Fetch.MinPoints == 0 {
		c.Fetch.MinPoints = 60
	}
	if c.Fetch.MaxAttempts == 0 {
		c.Fetch.MaxAttempts = 3
	}
	if c.Fetch.BackoffStep == 0 {
		c.Fetch.BackoffStep = 350 * time.Millisecond
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 15 * time.Second
	}
	if c.Fetch.Breaker.ConsecutiveFailures == 0 {
		c.Fetch.Breaker.ConsecutiveFailures = 5
	}
	if c.Fetch.Breaker.OpenTimeout == 0 {
		c.Fetch.Breaker.OpenTimeout = time.Minute
	}
	if len(c.Sources) == 0 {
		c.Sources = []SourceConfig{
			{Name: "yahoo", Routes: []string{"direct"}},
			{Name: "stooq", Routes: []string{"direct"}},
		}
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 6 * time.Hour
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "data/state"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/sector_state.db"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/sector_history.db"
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 0 22 * * 1-5"
	}
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.Signal.ReturnLagWeeks <= 0 {
		return fmt.Errorf("signal.return_lag_weeks must be positive")
	}
	if c.Signal.ZWindowWeeks <= 0 {
		return fmt.Errorf("signal.z_window_weeks must be positive")
	}
	if c.Signal.Clamp <= 0 {
		return fmt.Errorf("signal.clamp must be positive")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be positive")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.Concurrency < 0 {
		return fmt.Errorf("fetch.concurrency must not be negative")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	for i, s := range c.Sources {
		switch s.Name {
		case "yahoo", "stooq":
		default:
			return fmt.Errorf("sources[%d]: unknown source %q", i, s.Name)
		}
	}
	switch c.Storage.Driver {
	case "memory", "file", "sqlite":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of memory, file, sqlite, redis", c.Storage.Driver)
	}
	return nil
}
