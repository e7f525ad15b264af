package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gregtusar/squeeth/pkg/secrets"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Subgraph  SubgraphConfig  `mapstructure:"subgraph"`
	PriceFeed PriceFeedConfig `mapstructure:"pricefeed"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Payoff    PayoffConfig    `mapstructure:"payoff"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	GCP       GCPConfig       `mapstructure:"gcp"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type SubgraphConfig struct {
	URL            string        `mapstructure:"url"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type PriceFeedConfig struct {
	// Sources are tried in order: coingecko, twelvedata, coinbase.
	Sources        []string        `mapstructure:"sources"`
	RequestsPerSec float64         `mapstructure:"requests_per_sec"`
	Timeout        time.Duration   `mapstructure:"timeout"`
	Coingecko      CoingeckoConfig `mapstructure:"coingecko"`
	Twelvedata     APIKeyConfig    `mapstructure:"twelvedata"`
	Coinbase       CoinbaseConfig  `mapstructure:"coinbase"`
}

type CoingeckoConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Pro switches to the pro API host, which requires an API key.
	Pro bool `mapstructure:"pro"`
}

type APIKeyConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type CoinbaseConfig struct {
	Sandbox   bool            `mapstructure:"sandbox"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

type WebSocketConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	ReconnectDelay int    `mapstructure:"reconnect_delay"`
	MaxReconnects  int    `mapstructure:"max_reconnects"`
}

type TrackerConfig struct {
	Accounts         []string      `mapstructure:"accounts"`
	PriceInterval    time.Duration `mapstructure:"price_interval"`
	PositionInterval time.Duration `mapstructure:"position_interval"`
	CacheSize        int           `mapstructure:"cache_size"`
}

type PayoffConfig struct {
	Points int     `mapstructure:"points"`
	Step   float64 `mapstructure:"step"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type GCPConfig struct {
	ProjectID       string              `mapstructure:"project_id"`
	UseSecrets      bool                `mapstructure:"use_secrets"`
	CredentialsFile string              `mapstructure:"credentials_file"`
	SecretNames     secrets.SecretNames `mapstructure:"secret_names"`
}

func Load(configPath string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/squeeth")
	}

	v.SetEnvPrefix("SQUEETH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&config)

	if config.GCP.UseSecrets && config.GCP.ProjectID != "" {
		ctx := context.Background()
		logger := logrus.New()
		if err := loadSecretsFromGCP(ctx, &config, logger); err != nil {
			return nil, fmt.Errorf("error loading secrets from GCP: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Subgraph.URL == "" {
		return fmt.Errorf("subgraph.url is required")
	}
	if c.Tracker.PriceInterval <= 0 || c.Tracker.PositionInterval <= 0 {
		return fmt.Errorf("tracker intervals must be positive")
	}
	for _, src := range c.PriceFeed.Sources {
		switch src {
		case "coingecko", "twelvedata", "coinbase":
		default:
			return fmt.Errorf("unknown price feed source %q", src)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwt_secret", "")

	v.SetDefault("subgraph.url", "https://api.thegraph.com/subgraphs/name/opynfinance/squeeth")
	v.SetDefault("subgraph.requests_per_sec", 5.0)
	v.SetDefault("subgraph.timeout", 15*time.Second)

	v.SetDefault("pricefeed.sources", []string{"coingecko", "coinbase"})
	v.SetDefault("pricefeed.requests_per_sec", 2.0)
	v.SetDefault("pricefeed.timeout", 10*time.Second)
	v.SetDefault("pricefeed.coingecko.pro", false)
	v.SetDefault("pricefeed.coinbase.sandbox", false)
	v.SetDefault("pricefeed.coinbase.websocket.enabled", false)
	v.SetDefault("pricefeed.coinbase.websocket.url", "wss://ws-feed.exchange.coinbase.com")
	v.SetDefault("pricefeed.coinbase.websocket.reconnect_delay", 5)
	v.SetDefault("pricefeed.coinbase.websocket.max_reconnects", 10)

	v.SetDefault("tracker.accounts", []string{})
	v.SetDefault("tracker.price_interval", 30*time.Second)
	v.SetDefault("tracker.position_interval", time.Minute)
	v.SetDefault("tracker.cache_size", 256)

	v.SetDefault("payoff.points", 120)
	v.SetDefault("payoff.step", 30.0)

	v.SetDefault("database.path", "./data/squeeth.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	v.SetDefault("gcp.use_secrets", false)
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.credentials_file", "")

	secretNames := secrets.DefaultSecretNames()
	v.SetDefault("gcp.secret_names.coingecko_api_key", secretNames.CoingeckoAPIKey)
	v.SetDefault("gcp.secret_names.twelvedata_api_key", secretNames.TwelvedataAPIKey)
	v.SetDefault("gcp.secret_names.jwt_secret", secretNames.JWTSecret)
}

func overrideFromEnv(config *Config) {
	if apiKey := os.Getenv("COINGECKO_API_KEY"); apiKey != "" {
		config.PriceFeed.Coingecko.APIKey = apiKey
	}
	if apiKey := os.Getenv("TWELVEDATA_API_KEY"); apiKey != "" {
		config.PriceFeed.Twelvedata.APIKey = apiKey
	}
	if secret := os.Getenv("SQUEETH_JWT_SECRET"); secret != "" {
		config.Server.JWTSecret = secret
	}
	if url := os.Getenv("SQUEETH_SUBGRAPH_URL"); url != "" {
		config.Subgraph.URL = url
	}

	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		config.GCP.ProjectID = projectID
	}
	if useSecrets := os.Getenv("GCP_USE_SECRETS"); useSecrets == "true" {
		config.GCP.UseSecrets = true
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" && config.GCP.CredentialsFile == "" {
		config.GCP.CredentialsFile = creds
	}
}

func loadSecretsFromGCP(ctx context.Context, config *Config, logger *logrus.Logger) error {
	secretManager, err := secrets.NewGCPSecretManager(ctx, config.GCP.ProjectID, config.GCP.CredentialsFile, logger)
	if err != nil {
		return fmt.Errorf("failed to create secret manager: %w", err)
	}
	defer secretManager.Close()

	applySecrets(ctx, config, secretManager)

	logger.Info("Successfully loaded secrets from GCP Secret Manager")
	return nil
}

// applySecrets fills only the values that are not already set.
func applySecrets(ctx context.Context, config *Config, source secrets.Source) {
	if config.PriceFeed.Coingecko.APIKey == "" {
		config.PriceFeed.Coingecko.APIKey = source.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.CoingeckoAPIKey, "")
	}
	if config.PriceFeed.Twelvedata.APIKey == "" {
		config.PriceFeed.Twelvedata.APIKey = source.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.TwelvedataAPIKey, "")
	}
	if config.Server.JWTSecret == "" {
		config.Server.JWTSecret = source.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.JWTSecret, "")
	}
}
