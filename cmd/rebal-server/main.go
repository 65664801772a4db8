package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobmcallan/rebal/internal/app"
	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("REBAL_CONFIG"), "path to TOML config file")
	flag.Parse()

	config, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := common.NewLogger(config.Logging.Level)
	common.PrintBanner(config)

	a, err := app.NewApp(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	srv := server.NewServer(a)
	shutdownChan := make(chan struct{}, 1)
	srv.SetShutdownChannel(shutdownChan)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Str("gateway", config.Gateway.BaseURL).
		Msg("Server ready")

	// Wait for interrupt signal or HTTP-requested shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("Shutdown signal received")
	case <-shutdownChan:
		logger.Info().Msg("Shutdown requested via API")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	if err := a.Close(); err != nil {
		logger.Error().Err(err).Msg("App close failed")
	}
	logger.Info().Msg("Server stopped")
}
