package configloader

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
}

// IndexerConfig holds the Aptos Indexer GraphQL endpoint configuration.
type IndexerConfig struct {
	GraphQLURL           string `yaml:"graphqlURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	ActivityPageSize     int    `yaml:"activityPageSize"`
}

// CoinGeckoConfig holds CoinGecko API specific configurations.
type CoinGeckoConfig struct {
	BaseURL              string `yaml:"baseURL"`
	APIKey               string `yaml:"apiKey"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	CatalogueTTLMinutes  int    `yaml:"catalogueTTLMinutes"`
}

// BinanceConfig holds the Binance klines fallback configuration. Only the
// chain's native coin is priced through Binance.
type BinanceConfig struct {
	BaseURL              string `yaml:"baseURL"`
	AnchorSymbol         string `yaml:"anchorSymbol"` // e.g., "APTUSDT"
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// PriceServiceConfig holds configuration for the historical price service.
type PriceServiceConfig struct {
	CacheTTLMinutes     int     `yaml:"cacheTTLMinutes"`
	MaxConcurrentAssets int     `yaml:"maxConcurrentAssets"`
	RateLimitPerSecond  float64 `yaml:"rateLimitPerSecond"`
	RateLimitBurst      int     `yaml:"rateLimitBurst"`
	CallTimeoutMillis   int64   `yaml:"callTimeoutMillis"`
}

// HistoryConfig holds configuration for the history reconstruction engine.
type HistoryConfig struct {
	// DisableFlows forces flat-balance mode: balances are treated as constant
	// across the window instead of being reconstructed from on-chain flows.
	DisableFlows              bool  `yaml:"disableFlows"`
	BalanceFetchTimeoutMillis int64 `yaml:"balanceFetchTimeoutMillis"`
	FlowFetchTimeoutMillis    int64 `yaml:"flowFetchTimeoutMillis"`
	MaxAssetTypesPerFlowQuery int   `yaml:"maxAssetTypesPerFlowQuery"`
}

// APIRateLimitConfig holds the caller-side rate limit protecting downstream
// providers. Requests over the limit are rejected before any provider call.
type APIRateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Indexer      IndexerConfig      `yaml:"indexer"`
	CoinGecko    CoinGeckoConfig    `yaml:"coinGecko"`
	Binance      BinanceConfig      `yaml:"binance"`
	PriceSvc     PriceServiceConfig `yaml:"priceService"`
	History      HistoryConfig      `yaml:"history"`
	APIRateLimit APIRateLimitConfig `yaml:"apiRateLimit"`
	Swagger      SwaggerConfig      `yaml:"swagger"`
}

// Load reads the YAML configuration file from the given path and unmarshals it,
// applying defaults for everything left unset.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg)

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		// History computation fans out to several providers; give it headroom.
		cfg.Server.WriteTimeout = 60
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60
	}

	if cfg.Indexer.GraphQLURL == "" {
		cfg.Indexer.GraphQLURL = "https://api.mainnet.aptoslabs.com/v1/graphql"
		logrus.Infof("Indexer.GraphQLURL not set, defaulting to %s", cfg.Indexer.GraphQLURL)
	}
	if cfg.Indexer.RequestTimeoutMillis <= 0 {
		cfg.Indexer.RequestTimeoutMillis = 10000
	}
	if cfg.Indexer.ActivityPageSize <= 0 {
		cfg.Indexer.ActivityPageSize = 100
	}

	if cfg.CoinGecko.BaseURL == "" {
		cfg.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
		logrus.Infof("CoinGecko.BaseURL not set, defaulting to %s", cfg.CoinGecko.BaseURL)
	}
	if cfg.CoinGecko.RequestTimeoutMillis <= 0 {
		cfg.CoinGecko.RequestTimeoutMillis = 10000
	}
	if cfg.CoinGecko.CatalogueTTLMinutes <= 0 {
		cfg.CoinGecko.CatalogueTTLMinutes = 360
	}

	if cfg.Binance.BaseURL == "" {
		cfg.Binance.BaseURL = "https://api.binance.com"
	}
	if cfg.Binance.AnchorSymbol == "" {
		cfg.Binance.AnchorSymbol = "APTUSDT"
	}
	if cfg.Binance.RequestTimeoutMillis <= 0 {
		cfg.Binance.RequestTimeoutMillis = 10000
	}

	if cfg.PriceSvc.CacheTTLMinutes <= 0 {
		cfg.PriceSvc.CacheTTLMinutes = 10
		logrus.Infof("PriceSvc.CacheTTLMinutes not set, defaulting to %d minutes", cfg.PriceSvc.CacheTTLMinutes)
	}
	if cfg.PriceSvc.MaxConcurrentAssets <= 0 {
		cfg.PriceSvc.MaxConcurrentAssets = 5
	}
	if cfg.PriceSvc.RateLimitPerSecond <= 0 {
		cfg.PriceSvc.RateLimitPerSecond = 5
	}
	if cfg.PriceSvc.RateLimitBurst <= 0 {
		cfg.PriceSvc.RateLimitBurst = 10
	}
	if cfg.PriceSvc.CallTimeoutMillis <= 0 {
		cfg.PriceSvc.CallTimeoutMillis = 10000
	}

	if cfg.History.BalanceFetchTimeoutMillis <= 0 {
		cfg.History.BalanceFetchTimeoutMillis = 10000
	}
	if cfg.History.FlowFetchTimeoutMillis <= 0 {
		cfg.History.FlowFetchTimeoutMillis = 15000
	}
	if cfg.History.MaxAssetTypesPerFlowQuery <= 0 {
		cfg.History.MaxAssetTypesPerFlowQuery = 50
	}

	if cfg.APIRateLimit.RequestsPerSecond <= 0 {
		cfg.APIRateLimit.RequestsPerSecond = 2
	}
	if cfg.APIRateLimit.Burst <= 0 {
		cfg.APIRateLimit.Burst = 5
	}

	if cfg.Swagger.Path == "" {
		cfg.Swagger.Path = "/swagger"
	}
}
