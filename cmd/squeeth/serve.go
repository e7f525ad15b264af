package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gregtusar/squeeth/api"
	"github.com/gregtusar/squeeth/pkg/pricefeed"
	"github.com/gregtusar/squeeth/pkg/store"
	"github.com/gregtusar/squeeth/pkg/tracker"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Track configured accounts and serve the HTTP API",
		Run:   runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open snapshot store")
	}
	defer snapshots.Close()

	positionTracker := tracker.New(newSubgraphClient(cfg), newPriceFeed(cfg), snapshots, tracker.Options{
		PriceInterval:    cfg.Tracker.PriceInterval,
		PositionInterval: cfg.Tracker.PositionInterval,
		CacheSize:        cfg.Tracker.CacheSize,
	}, logger)

	for _, account := range cfg.Tracker.Accounts {
		if err := positionTracker.AddAccount(account); err != nil {
			logger.WithError(err).Warn("Skipping account")
		}
	}

	if err := positionTracker.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start position tracker")
	}

	if ws := cfg.PriceFeed.Coinbase.WebSocket; ws.Enabled {
		stream := pricefeed.NewTickerStream(pricefeed.StreamOptions{
			URL:            ws.URL,
			ReconnectDelay: time.Duration(ws.ReconnectDelay) * time.Second,
			MaxReconnects:  ws.MaxReconnects,
		}, positionTracker.UpdateQuote, logger)
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("Ticker stream stopped, falling back to polling")
			}
		}()
	}

	apiServer := api.NewServer(positionTracker, snapshots, logger, api.Options{
		Port:         cfg.Server.Port,
		JWTSecret:    cfg.Server.JWTSecret,
		PayoffPoints: cfg.Payoff.Points,
		PayoffStep:   cfg.Payoff.Step,
	})
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start API server")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Squeeth tracker is running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("API server shutdown failed")
	}

	positionTracker.Stop()
	cancel()

	logger.Info("Squeeth tracker stopped")
}
