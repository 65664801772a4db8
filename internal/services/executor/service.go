// Package executor turns an auto-invest plan into placed orders.
package executor

import (
	"context"
	"fmt"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

// Compile-time interface check
var _ interfaces.ExecutorService = (*Service)(nil)

// Service implements ExecutorService.
type Service struct {
	planner     interfaces.PlannerService
	orders      interfaces.OrderService
	configStore interfaces.ConfigStore
	config      *common.Config
	logger      *common.Logger
}

// NewService creates a new executor service.
func NewService(planner interfaces.PlannerService, orders interfaces.OrderService, configStore interfaces.ConfigStore, config *common.Config, logger *common.Logger) *Service {
	return &Service{
		planner:     planner,
		orders:      orders,
		configStore: configStore,
		config:      config,
		logger:      logger,
	}
}

// Execute builds a fresh plan for the account and places its orders in
// priority order. Currency conversion runs first, best effort: a failed or
// pending conversion is recorded but never stops the equity orders, which
// spend whatever quote cash is already settled.
func (s *Service) Execute(ctx context.Context, accountID string) (*models.AutoInvestResult, error) {
	plan, err := s.planner.BuildPlan(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to build plan for %s: %w", accountID, err)
	}

	result := &models.AutoInvestResult{
		AccountID: accountID,
		Results:   []models.OrderResult{},
		Errors:    []string{},
	}

	if plan.SecondaryToConvert > s.config.Invest.MinConversionAmount {
		outcome := s.orders.ConvertCurrency(ctx, accountID, plan.SecondaryToConvert, s.config.Invest.GetConversionFillTimeout())
		result.Conversion = &outcome
		if outcome.Status == models.ConversionFailed || outcome.Status == models.ConversionPending {
			result.Errors = append(result.Errors, fmt.Sprintf("currency conversion: %s", outcome.Message))
		}
	} else if plan.SecondaryToConvert > 0 {
		result.Conversion = &models.ConversionOutcome{
			Status:  models.ConversionSkipped,
			Amount:  plan.SecondaryToConvert,
			Message: fmt.Sprintf("%.2f below minimum conversion amount %.2f", plan.SecondaryToConvert, s.config.Invest.MinConversionAmount),
		}
	}

	bufferPercent, err := s.configStore.GetBufferPercent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load buffer percent: %w", err)
	}

	for i := range plan.Orders {
		order := &plan.Orders[i]
		orderResult := s.orders.SubmitBuyOrder(ctx, accountID, order, bufferPercent)
		result.Results = append(result.Results, orderResult)

		switch orderResult.Status {
		case models.OrderStatusSuccess:
			result.OrdersPlaced++
			result.TotalInvested += order.EstimatedCost
		case models.OrderStatusFailed:
			result.OrdersFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", order.Symbol, orderResult.Message))
		case models.OrderStatusSkipped:
			s.logger.Info().Str("symbol", order.Symbol).Str("reason", orderResult.Message).Msg("Order skipped")
		}
	}

	result.Success = result.OrdersFailed == 0 && result.OrdersPlaced > 0

	s.logger.Info().
		Str("account", accountID).
		Int("placed", result.OrdersPlaced).
		Int("failed", result.OrdersFailed).
		Float64("invested", result.TotalInvested).
		Bool("success", result.Success).
		Msg("Auto-invest execution finished")
	return result, nil
}
