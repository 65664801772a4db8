// Package app wires configuration, clients, storage and services into a
// single application container.
package app

import (
	"fmt"

	"github.com/bobmcallan/rebal/internal/clients/gateway"
	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/services/analyzer"
	"github.com/bobmcallan/rebal/internal/services/executor"
	"github.com/bobmcallan/rebal/internal/services/orders"
	"github.com/bobmcallan/rebal/internal/services/planner"
	"github.com/bobmcallan/rebal/internal/storage/configdb"
)

// App holds all application-level dependencies.
type App struct {
	Config *common.Config
	Logger *common.Logger

	Gateway     interfaces.GatewayClient
	Resolver    interfaces.InstrumentResolver
	ConfigStore interfaces.ConfigStore

	Analyzer interfaces.AnalyzerService
	Planner  interfaces.PlannerService
	Orders   interfaces.OrderService
	Executor interfaces.ExecutorService
}

// NewApp constructs the dependency graph from configuration.
func NewApp(config *common.Config, logger *common.Logger) (*App, error) {
	gatewayClient := gateway.NewClient(
		gateway.WithBaseURL(config.Gateway.BaseURL),
		gateway.WithLogger(logger),
		gateway.WithTimeout(config.Gateway.GetTimeout()),
		gateway.WithRateLimit(config.Gateway.RateLimit),
	)

	resolver := gateway.NewResolver(gatewayClient, logger)

	configStore, err := configdb.NewStore(logger, config.Storage.Config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config store: %w", err)
	}
	configStore.WithDefaultBuffer(config.Invest.DefaultBufferPercent)

	analyzerSvc := analyzer.NewService(gatewayClient, configStore,
		config.Currency.Quote, config.Currency.Secondary, logger)
	plannerSvc := planner.NewService(analyzerSvc, resolver, configStore,
		config.Invest.MinCashThreshold, logger)
	orderSvc := orders.NewService(gatewayClient,
		config.Currency.Quote, config.Currency.Secondary,
		config.Invest.GetFillPollInterval(), logger)
	executorSvc := executor.NewService(plannerSvc, orderSvc, configStore, config, logger)

	return &App{
		Config:      config,
		Logger:      logger,
		Gateway:     gatewayClient,
		Resolver:    resolver,
		ConfigStore: configStore,
		Analyzer:    analyzerSvc,
		Planner:     plannerSvc,
		Orders:      orderSvc,
		Executor:    executorSvc,
	}, nil
}

// Close releases application resources.
func (a *App) Close() error {
	if a.ConfigStore != nil {
		return a.ConfigStore.Close()
	}
	return nil
}
