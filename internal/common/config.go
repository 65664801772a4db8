// Package common provides shared utilities for rebal.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for rebal.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Gateway     GatewayConfig  `toml:"gateway"`
	Currency    CurrencyConfig `toml:"currency"`
	Invest      InvestConfig   `toml:"invest"`
	Storage     StorageConfig  `toml:"storage"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration for the UI-facing API.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// GatewayConfig holds trading-gateway client configuration.
type GatewayConfig struct {
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit"`
}

// GetTimeout parses and returns the per-request timeout duration.
func (c *GatewayConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CurrencyConfig names the account's valuation currency and the second
// cash currency requiring conversion before investment.
type CurrencyConfig struct {
	Quote     string `toml:"quote"`
	Secondary string `toml:"secondary"`
}

// InvestConfig holds the tunables of the planning and execution engine.
type InvestConfig struct {
	DefaultBufferPercent  float64 `toml:"default_buffer_percent"`
	MinCashThreshold      float64 `toml:"min_cash_threshold"`
	MinConversionAmount   float64 `toml:"min_conversion_amount"`
	FillPollInterval      string  `toml:"fill_poll_interval"`
	FillPollTimeout       string  `toml:"fill_poll_timeout"`
	ConversionFillTimeout string  `toml:"conversion_fill_timeout"`
}

// GetFillPollInterval parses the fill polling interval.
func (c *InvestConfig) GetFillPollInterval() time.Duration {
	d, err := time.ParseDuration(c.FillPollInterval)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetFillPollTimeout parses the default fill polling timeout.
func (c *InvestConfig) GetFillPollTimeout() time.Duration {
	d, err := time.ParseDuration(c.FillPollTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetConversionFillTimeout parses the extended fill timeout used for
// currency-conversion orders.
func (c *InvestConfig) GetConversionFillTimeout() time.Duration {
	d, err := time.ParseDuration(c.ConversionFillTimeout)
	if err != nil {
		return 3 * time.Minute
	}
	return d
}

// StorageConfig holds storage paths.
type StorageConfig struct {
	Config AreaConfig `toml:"config"` // Allocations + buffer percent (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8422,
		},
		Gateway: GatewayConfig{
			BaseURL:   "https://localhost:5000/v1/api",
			Timeout:   "30s",
			RateLimit: 10,
		},
		Currency: CurrencyConfig{
			Quote:     "USD",
			Secondary: "ILS",
		},
		Invest: InvestConfig{
			DefaultBufferPercent:  0.05,
			MinCashThreshold:      10.0,
			MinConversionAmount:   100.0,
			FillPollInterval:      "2s",
			FillPollTimeout:       "60s",
			ConversionFillTimeout: "3m",
		},
		Storage: StorageConfig{
			Config: AreaConfig{Path: "data/config"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("REBAL_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("REBAL_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("REBAL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("REBAL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if url := os.Getenv("REBAL_GATEWAY_URL"); url != "" {
		config.Gateway.BaseURL = url
	}

	if path := os.Getenv("REBAL_DATA_PATH"); path != "" {
		config.Storage.Config.Path = filepath.Join(path, "config")
	}

	if c := os.Getenv("REBAL_QUOTE_CURRENCY"); c != "" {
		config.Currency.Quote = strings.ToUpper(c)
	}

	if c := os.Getenv("REBAL_SECONDARY_CURRENCY"); c != "" {
		config.Currency.Secondary = strings.ToUpper(c)
	}
}

// validate rejects configurations the engine must never start with.
func validate(config *Config) error {
	if config.Invest.DefaultBufferPercent < 0 || config.Invest.DefaultBufferPercent > 1 {
		return fmt.Errorf("invest.default_buffer_percent must be within [0,1], got %v",
			config.Invest.DefaultBufferPercent)
	}
	if config.Currency.Quote == config.Currency.Secondary {
		return fmt.Errorf("currency.quote and currency.secondary must differ, both are %q",
			config.Currency.Quote)
	}
	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
