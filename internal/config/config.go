package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	CORSAllowOrigins  string `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
	SnapshotRateLimit int    `envconfig:"SNAPSHOT_RATE_LIMIT" default:"120"`

	// Database (empty disables persistence and the feed cache)
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	InstallationID string `envconfig:"INSTALLATION_ID" default:"default"`

	// Alert lifecycle
	SweepInterval         time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	AlertRetention        time.Duration `envconfig:"ALERT_RETENTION" default:"24h"`
	PersistInterval       time.Duration `envconfig:"PERSIST_INTERVAL" default:"5s"`
	PriceHistoryRetention time.Duration `envconfig:"PRICE_HISTORY_RETENTION" default:"48h"`

	// Market feeds
	FeedsEnabled bool          `envconfig:"FEEDS_ENABLED" default:"true"`
	FeedCacheTTL time.Duration `envconfig:"FEED_CACHE_TTL" default:"20s"`

	CoinGeckoURL          string         `envconfig:"COINGECKO_URL" default:"https://api.coingecko.com/api/v3"`
	CoinGeckoAPIKey       string         `envconfig:"COINGECKO_API_KEY"`
	CoinGeckoIDs          []string       `envconfig:"COINGECKO_IDS" default:"bitcoin,ethereum,chainlink,uniswap,aave"`
	PricePollInterval     time.Duration  `envconfig:"PRICE_POLL_INTERVAL" default:"30s"`
	DefiLlamaURL          string         `envconfig:"DEFILLAMA_URL" default:"https://yields.llama.fi"`
	YieldPollInterval     time.Duration  `envconfig:"YIELD_POLL_INTERVAL" default:"5m"`
	EtherscanURL          string         `envconfig:"ETHERSCAN_URL" default:"https://api.etherscan.io/v2/api"`
	EtherscanAPIKey       string         `envconfig:"ETHERSCAN_API_KEY"`
	GasChains             map[string]int `envconfig:"GAS_CHAINS" default:"ethereum:1"`
	GasPollInterval       time.Duration  `envconfig:"GAS_POLL_INTERVAL" default:"1m"`
	CovalentURL           string         `envconfig:"COVALENT_URL" default:"https://api.covalenthq.com/v1"`
	CovalentAPIKey        string         `envconfig:"COVALENT_API_KEY"`
	WalletAddress         string         `envconfig:"WALLET_ADDRESS"`
	PortfolioChains       []string       `envconfig:"PORTFOLIO_CHAINS" default:"eth-mainnet,matic-mainnet,arbitrum-mainnet"`
	PortfolioPollInterval time.Duration  `envconfig:"PORTFOLIO_POLL_INTERVAL" default:"2m"`

	// Notification channels
	WSNotifications bool   `envconfig:"WS_NOTIFICATIONS" default:"true"`
	WebhookURL      string `envconfig:"WEBHOOK_URL"`
	WebhookSecret   string `envconfig:"WEBHOOK_SECRET"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.WebhookURL != "" && cfg.WebhookSecret == "" {
		return nil, errors.New("load config: WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PersistenceEnabled reports whether a database is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.DatabaseURL != ""
}

// PortfolioEnabled reports whether a wallet can be tracked.
func (c *Config) PortfolioEnabled() bool {
	return c.WalletAddress != "" && c.CovalentAPIKey != ""
}
