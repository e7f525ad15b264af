package main

import (
	"fmt"
	"os"

	"github.com/gregtusar/squeeth/internal/config"
	"github.com/gregtusar/squeeth/pkg/pricefeed"
	"github.com/gregtusar/squeeth/pkg/subgraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "squeeth",
		Short: "Squeeth position PnL and payoff tooling",
		Long:  `Marks Opyn squeeth positions to market, tracks them over time and draws strategy payoff curves`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(newServeCmd(), newPnLCmd(), newPositionsCmd(), newPayoffCmd(), newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	setupLogger(cfg.Logging)
	return cfg
}

func setupLogger(cfg config.LoggingConfig) {
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.WithError(err).Error("Failed to open log file, logging to stderr")
			return
		}
		logger.SetOutput(f)
	}
}

func newSubgraphClient(cfg *config.Config) *subgraph.Client {
	return subgraph.NewClient(cfg.Subgraph.URL, subgraph.Options{
		Timeout:        cfg.Subgraph.Timeout,
		RequestsPerSec: cfg.Subgraph.RequestsPerSec,
	}, logger)
}

// newPriceFeed builds the configured sources, tried in order.
func newPriceFeed(cfg *config.Config) pricefeed.Feed {
	opts := pricefeed.Options{
		Timeout:        cfg.PriceFeed.Timeout,
		RequestsPerSec: cfg.PriceFeed.RequestsPerSec,
		Logger:         logger,
	}

	feeds := make([]pricefeed.Feed, 0, len(cfg.PriceFeed.Sources))
	for _, src := range cfg.PriceFeed.Sources {
		switch src {
		case "coingecko":
			feeds = append(feeds, pricefeed.NewCoingeckoClient(cfg.PriceFeed.Coingecko.APIKey, cfg.PriceFeed.Coingecko.Pro, opts))
		case "twelvedata":
			feeds = append(feeds, pricefeed.NewTwelvedataClient(cfg.PriceFeed.Twelvedata.APIKey, opts))
		case "coinbase":
			feeds = append(feeds, pricefeed.NewCoinbaseClient(cfg.PriceFeed.Coinbase.Sandbox, opts))
		}
	}

	return pricefeed.NewMulti(logger, feeds...)
}
