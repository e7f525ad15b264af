package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource map[string]string

func (m mapSource) GetSecretWithDefault(_ context.Context, name, def string) string {
	if v, ok := m[name]; ok {
		return v
	}
	return def
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"coingecko", "coinbase"}, cfg.PriceFeed.Sources)
	assert.Equal(t, 30*time.Second, cfg.Tracker.PriceInterval)
	assert.Equal(t, time.Minute, cfg.Tracker.PositionInterval)
	assert.Equal(t, 120, cfg.Payoff.Points)
	assert.Equal(t, "squeeth-coingecko-api-key", cfg.GCP.SecretNames.CoingeckoAPIKey)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
subgraph:
  url: http://localhost:8000/subgraphs/name/squeeth
pricefeed:
  sources: [twelvedata]
tracker:
  accounts: ["0xabc", "0xdef"]
  price_interval: 5s
  position_interval: 20s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8000/subgraphs/name/squeeth", cfg.Subgraph.URL)
	assert.Equal(t, []string{"twelvedata"}, cfg.PriceFeed.Sources)
	assert.Equal(t, []string{"0xabc", "0xdef"}, cfg.Tracker.Accounts)
	assert.Equal(t, 5*time.Second, cfg.Tracker.PriceInterval)
	assert.Equal(t, 20*time.Second, cfg.Tracker.PositionInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COINGECKO_API_KEY", "cg-key")
	t.Setenv("SQUEETH_JWT_SECRET", "s3cret")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "cg-key", cfg.PriceFeed.Coingecko.APIKey)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	_, err := Load(writeConfig(t, "pricefeed:\n  sources: [binance]\n"))
	assert.ErrorContains(t, err, "binance")
}

func TestApplySecretsKeepsExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.GCP.SecretNames.CoingeckoAPIKey = "cg"
	cfg.GCP.SecretNames.TwelvedataAPIKey = "td"
	cfg.GCP.SecretNames.JWTSecret = "jwt"
	cfg.PriceFeed.Twelvedata.APIKey = "already-set"

	applySecrets(context.Background(), cfg, mapSource{"cg": "from-gcp", "td": "ignored", "jwt": "signing"})

	assert.Equal(t, "from-gcp", cfg.PriceFeed.Coingecko.APIKey)
	assert.Equal(t, "already-set", cfg.PriceFeed.Twelvedata.APIKey)
	assert.Equal(t, "signing", cfg.Server.JWTSecret)
}
