// Package common provides shared utilities for Playground
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Storage backends understood by storage.NewManager.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendBolt      = "bbolt"
	BackendSurrealDB = "surrealdb"
)

// Config holds all configuration for Playground
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Playground  PlaygroundConfig `toml:"playground"`
	Cache       CacheConfig      `toml:"cache"`
	Clients     ClientsConfig    `toml:"clients"`
	Logging     LoggingConfig    `toml:"logging"`
	Auth        AuthConfig       `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the portfolio record backend.
type StorageConfig struct {
	Backend   string `toml:"backend"` // memory, sqlite, bbolt, surrealdb
	Path      string `toml:"path"`    // file path for sqlite and bbolt
	Address   string `toml:"address"` // SurrealDB RPC address, e.g. ws://localhost:8000/rpc
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// PlaygroundConfig holds the paper-trading account rules.
type PlaygroundConfig struct {
	InitialCash       float64 `toml:"initial_cash"`
	MaxCommitAttempts int     `toml:"max_commit_attempts"`
	CommitBackoff     string  `toml:"commit_backoff"`
}

// GetCommitBackoff parses and returns the base backoff between commit retries
func (c *PlaygroundConfig) GetCommitBackoff() time.Duration {
	d, err := time.ParseDuration(c.CommitBackoff)
	if err != nil {
		return 10 * time.Millisecond
	}
	return d
}

// CacheConfig holds TTLs for derived data
type CacheConfig struct {
	PriceTTL        string `toml:"price_ttl"`
	ReportTTL       string `toml:"report_ttl"`
	JanitorSchedule string `toml:"janitor_schedule"` // cron spec, e.g. "@every 1m"
}

// GetPriceTTL parses and returns the live price cache TTL
func (c *CacheConfig) GetPriceTTL() time.Duration {
	d, err := time.ParseDuration(c.PriceTTL)
	if err != nil {
		return FreshnessPrice
	}
	return d
}

// GetReportTTL parses and returns the health report cache TTL
func (c *CacheConfig) GetReportTTL() time.Duration {
	d, err := time.ParseDuration(c.ReportTTL)
	if err != nil {
		return FreshnessHealthReport
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD  EODHDConfig  `toml:"eodhd"`
	Gemini GeminiConfig `toml:"gemini"`
	Yahoo  YahooConfig  `toml:"yahoo"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL         string `toml:"base_url"`
	APIKey          string `toml:"api_key"`
	RateLimit       int    `toml:"rate_limit"`
	Timeout         string `toml:"timeout"`
	DefaultExchange string `toml:"default_exchange"` // appended to bare tickers, e.g. "US"
	NewsLimit       int    `toml:"news_limit"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	Sentiment bool   `toml:"sentiment"` // score news sentiment with Gemini instead of VADER
}

// YahooConfig enables the Yahoo Finance quote fallback
type YahooConfig struct {
	Enabled bool `toml:"enabled"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   BackendSQLite,
			Path:      "data/playground.db",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "playground",
			Database:  "playground",
			Username:  "root",
			Password:  "root",
		},
		Playground: PlaygroundConfig{
			InitialCash:       100000.00,
			MaxCommitAttempts: 5,
			CommitBackoff:     "10ms",
		},
		Cache: CacheConfig{
			PriceTTL:        "5m",
			ReportTTL:       "5m",
			JanitorSchedule: "@every 1m",
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:         "https://eodhd.com/api",
				RateLimit:       10,
				Timeout:         "30s",
				DefaultExchange: "US",
				NewsLimit:       20,
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
			Yahoo: YahooConfig{
				Enabled: true,
			},
		},
		Auth: AuthConfig{
			JWTSecret: defaultJWTSecret,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// A local .env is optional; variables already set in the environment win.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PLAYGROUND_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("PLAYGROUND_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("PLAYGROUND_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("PLAYGROUND_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if backend := os.Getenv("PLAYGROUND_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}
	if path := os.Getenv("PLAYGROUND_STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}
	if addr := os.Getenv("PLAYGROUND_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}

	if v := os.Getenv("PLAYGROUND_INITIAL_CASH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Playground.InitialCash = f
		}
	}

	if v := os.Getenv("PLAYGROUND_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}

	if key, err := ResolveAPIKey("eodhd_api_key", ""); err == nil {
		config.Clients.EODHD.APIKey = key
	}
	if key, err := ResolveAPIKey("gemini_api_key", ""); err == nil {
		config.Clients.Gemini.APIKey = key
	}
}

// defaultJWTSecret is rejected by ValidateRequired in production.
const defaultJWTSecret = "dev-jwt-secret-change-in-production"

// ValidateRequired lists settings that production deployments must supply.
// Missing API keys degrade the health report and quote lookups rather than
// failing requests, so the caller decides whether to warn or refuse to start.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if c.Clients.EODHD.APIKey == "" {
		missing = append(missing, "clients.eodhd.api_key")
	}
	if c.Clients.Gemini.APIKey == "" {
		missing = append(missing, "clients.gemini.api_key")
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret {
		missing = append(missing, "auth.jwt_secret")
	}
	return missing
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite, BackendBolt, BackendSurrealDB:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Playground.InitialCash < 0 {
		return fmt.Errorf("playground.initial_cash must not be negative")
	}
	if c.Playground.MaxCommitAttempts < 1 {
		c.Playground.MaxCommitAttempts = 1
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from environment or fallback
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key":  {"EODHD_API_KEY", "PLAYGROUND_EODHD_API_KEY"},
		"gemini_api_key": {"GEMINI_API_KEY", "PLAYGROUND_GEMINI_API_KEY", "GOOGLE_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
