package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr    string        `yaml:"addr"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Portfolio struct {
		Name             string  `yaml:"name"`
		HoldingsFile     string  `yaml:"holdings_file"`
		GoalStockPercent float64 `yaml:"goal_stock_percent"`
		TolerancePercent float64 `yaml:"tolerance_percent"`
		Currency         string  `yaml:"currency"`
	} `yaml:"portfolio"`
	Quotes struct {
		URL       string `yaml:"url"`
		PricePath string `yaml:"price_path"`
		// RefreshCron uses the six fields format with seconds.
		RefreshCron string        `yaml:"refresh_cron"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"quotes"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		QuoteTTL time.Duration `yaml:"quote_ttl"`
	} `yaml:"redis"`
	Rabbit struct {
		URL string `yaml:"url"`
	} `yaml:"rabbit"`
}

// Default returns the configuration used for every setting the file and the
// environment leave out.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.Timeout = 60 * time.Second
	cfg.Log.Level = "info"
	cfg.Portfolio.Name = "my portfolio"
	cfg.Portfolio.HoldingsFile = "data/holdings.csv"
	cfg.Portfolio.GoalStockPercent = 58
	cfg.Portfolio.TolerancePercent = 5
	cfg.Portfolio.Currency = "USD"
	cfg.Quotes.RefreshCron = "0 */15 * * * *"
	cfg.Quotes.Timeout = 10 * time.Second
	cfg.Redis.QuoteTTL = 24 * time.Hour
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies
// environment variable overrides. A missing file is not an error. Numbers set
// to 0 are kept; empty strings and zero timeouts fall back to the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HOLDINGS_FILE"); v != "" {
		cfg.Portfolio.HoldingsFile = v
	}
	if v := os.Getenv("GOAL_STOCK_PERCENT"); v != "" {
		goal, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse GOAL_STOCK_PERCENT: %w", err)
		}
		cfg.Portfolio.GoalStockPercent = goal
	}
	if v := os.Getenv("URL_QUOTE_ENGINE"); v != "" {
		cfg.Quotes.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RABBIT_URL_PORTFOLIO_ENGINE"); v != "" {
		cfg.Rabbit.URL = v
	}

	// Empty values that cannot be meant
	def := Default()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = def.Server.Timeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Portfolio.Name == "" {
		cfg.Portfolio.Name = def.Portfolio.Name
	}
	if cfg.Portfolio.HoldingsFile == "" {
		cfg.Portfolio.HoldingsFile = def.Portfolio.HoldingsFile
	}
	if cfg.Portfolio.Currency == "" {
		cfg.Portfolio.Currency = def.Portfolio.Currency
	}
	if cfg.Quotes.RefreshCron == "" {
		cfg.Quotes.RefreshCron = def.Quotes.RefreshCron
	}
	if cfg.Quotes.Timeout == 0 {
		cfg.Quotes.Timeout = def.Quotes.Timeout
	}

	return cfg, nil
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.Portfolio.GoalStockPercent < 0 || c.Portfolio.GoalStockPercent > 100 {
		return fmt.Errorf("portfolio.goal_stock_percent must be in [0,100]")
	}
	if c.Portfolio.TolerancePercent < 0 {
		return fmt.Errorf("portfolio.tolerance_percent must not be negative")
	}
	if c.Server.Timeout < 0 || c.Quotes.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// RequireRabbit checks the settings of the asynchronous mode.
func (c *Config) RequireRabbit() error {
	if c.Rabbit.URL == "" {
		return fmt.Errorf("rabbit url is empty")
	}
	return nil
}
