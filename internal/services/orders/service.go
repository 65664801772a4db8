// Package orders drives the gateway's multi-step order submission protocol:
// what-if preview, affordability, placement, confirmation rounds, and fill
// polling for conversion orders.
package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

// maxConfirmRounds caps the confirmation loop. Two rounds have been
// observed for conversion orders (risk then suitability warning); the cap
// only guards against a gateway that never produces a terminal response.
const maxConfirmRounds = 5

// Compile-time interface check
var _ interfaces.OrderService = (*Service)(nil)

// Service implements OrderService.
type Service struct {
	gateway      interfaces.GatewayClient
	quote        string
	secondary    string
	pollInterval time.Duration
	logger       *common.Logger
}

// NewService creates a new order submission service.
func NewService(gateway interfaces.GatewayClient, quote, secondary string, pollInterval time.Duration, logger *common.Logger) *Service {
	return &Service{
		gateway:      gateway,
		quote:        quote,
		secondary:    secondary,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// IsAffordable decides whether a previewed order set fits within the buffer
// policy: the projected equity after the order must not dip below
// bufferPercent of current equity. Pure function of its inputs.
func IsAffordable(preview *models.WhatIfResult, bufferPercent float64) (bool, string) {
	if preview.Error != "" {
		return false, preview.Error
	}

	bufferAmount := preview.EquityCurrent * bufferPercent
	if preview.EquityAfter < bufferAmount {
		return false, fmt.Sprintf("projected equity %.2f would fall below the %.2f buffer", preview.EquityAfter, bufferAmount)
	}
	return true, ""
}

// SubmitBuyOrder runs one equity buy through preview, affordability, and
// place-confirm. Failures and skips are encoded in the OrderResult so a bad
// order never aborts its siblings.
func (s *Service) SubmitBuyOrder(ctx context.Context, accountID string, order *models.PlannedOrder, bufferPercent float64) models.OrderResult {
	result := models.OrderResult{
		Symbol: order.Symbol,
		Shares: order.Shares,
	}

	ticket := models.OrderTicket{
		AccountID:    accountID,
		InstrumentID: order.InstrumentID,
		ClientID:     uuid.New().String(),
		OrderType:    "MKT",
		Side:         "BUY",
		Quantity:     float64(order.Shares),
		TimeInForce:  "DAY",
	}

	preview, err := s.gateway.PreviewOrders(ctx, accountID, []models.OrderTicket{ticket})
	if err != nil {
		result.Status = models.OrderStatusFailed
		result.Message = fmt.Sprintf("preview failed: %v", err)
		return result
	}

	affordable, reason := IsAffordable(preview, bufferPercent)
	if !affordable {
		result.Status = models.OrderStatusSkipped
		result.Message = reason
		s.logger.Info().Str("symbol", order.Symbol).Str("reason", reason).Msg("Order skipped as unaffordable")
		return result
	}

	orderID, status, err := s.placeAndConfirm(ctx, accountID, ticket)
	if err != nil {
		result.Status = models.OrderStatusFailed
		result.Message = err.Error()
		return result
	}

	result.Status = models.OrderStatusSuccess
	result.OrderID = orderID
	result.Message = fmt.Sprintf("order placed (%s)", status)
	s.logger.Info().
		Str("symbol", order.Symbol).
		Int64("shares", order.Shares).
		Str("order_id", orderID).
		Msg("Buy order placed")
	return result
}

// ConvertCurrency places a secondary→quote cash conversion and waits up to
// fillTimeout for it to fill. Conversion is asynchronous on the gateway
// side; the caller treats a pending outcome as non-fatal.
func (s *Service) ConvertCurrency(ctx context.Context, accountID string, amount float64, fillTimeout time.Duration) models.ConversionOutcome {
	outcome := models.ConversionOutcome{Amount: amount}

	pair := s.quote + "." + s.secondary
	results, err := s.gateway.SearchInstrument(ctx, pair)
	if err != nil || len(results) == 0 {
		outcome.Status = models.ConversionFailed
		outcome.Message = fmt.Sprintf("currency pair %s not resolvable: %v", pair, err)
		return outcome
	}

	ticket := models.OrderTicket{
		AccountID:    accountID,
		InstrumentID: results[0].InstrumentID,
		ClientID:     uuid.New().String(),
		OrderType:    "MKT",
		Side:         "BUY",
		CashQuantity: amount,
		TimeInForce:  "DAY",
		CurrencyConv: true,
	}

	orderID, _, err := s.placeAndConfirm(ctx, accountID, ticket)
	if err != nil {
		outcome.Status = models.ConversionFailed
		outcome.Message = err.Error()
		return outcome
	}
	outcome.OrderID = orderID

	fill := s.waitForFill(ctx, orderID, fillTimeout)
	switch {
	case fill.filled:
		outcome.Status = models.ConversionConverted
		outcome.Message = fmt.Sprintf("converted %.2f %s", amount, s.secondary)
	case fill.terminal:
		outcome.Status = models.ConversionFailed
		outcome.Message = fmt.Sprintf("conversion order %s: %s", orderID, fill.status)
	default:
		outcome.Status = models.ConversionPending
		outcome.Message = fmt.Sprintf("conversion order %s not filled within %s, last status %q", orderID, fillTimeout, fill.status)
	}

	s.logger.Info().
		Str("order_id", orderID).
		Str("status", outcome.Status).
		Float64("amount", amount).
		Msg("Currency conversion attempted")
	return outcome
}

// placeAndConfirm submits a ticket and replies "confirmed" through however
// many confirmation rounds the gateway requires, returning the terminal
// order id.
func (s *Service) placeAndConfirm(ctx context.Context, accountID string, ticket models.OrderTicket) (string, string, error) {
	resp, err := s.gateway.PlaceOrders(ctx, accountID, []models.OrderTicket{ticket})
	if err != nil {
		return "", "", fmt.Errorf("placement failed: %w", err)
	}

	for round := 0; resp.RequiresConfirmation(); round++ {
		if round >= maxConfirmRounds {
			return "", "", fmt.Errorf("no terminal response after %d confirmation rounds", maxConfirmRounds)
		}
		s.logger.Debug().
			Str("reply_id", resp.ReplyID).
			Strs("warnings", resp.Warnings).
			Msg("Confirming order warning")
		resp, err = s.gateway.ReplyToOrder(ctx, resp.ReplyID, true)
		if err != nil {
			return "", "", fmt.Errorf("confirmation reply failed: %w", err)
		}
	}

	return resp.OrderID, resp.Status, nil
}

type fillResult struct {
	filled   bool
	terminal bool
	status   string
}

// terminalNonFillStatuses end polling without a fill.
var terminalNonFillStatuses = map[string]bool{
	"cancelled": true,
	"rejected":  true,
	"inactive":  true,
}

// waitForFill polls the live-orders list. The provider removes filled and
// terminal orders from the list, so absence counts as filled. Poll errors
// are recorded but never end the wait early.
func (s *Service) waitForFill(ctx context.Context, orderID string, timeout time.Duration) fillResult {
	result := fillResult{status: "unknown"}

	outcome := common.Poll(ctx, s.pollInterval, timeout, func(ctx context.Context) (bool, error) {
		live, err := s.gateway.LiveOrders(ctx)
		if err != nil {
			return false, err
		}

		for _, o := range live {
			if o.OrderID != orderID {
				continue
			}
			status := strings.ToLower(o.Status)
			result.status = status
			if status == "filled" {
				result.filled = true
				return true, nil
			}
			if terminalNonFillStatuses[status] {
				result.terminal = true
				return true, nil
			}
			return false, nil
		}

		// Not in the live list: already filled and pruned.
		result.filled = true
		result.status = "filled"
		return true, nil
	})

	if outcome.LastErr != nil && !outcome.Met {
		s.logger.Warn().Err(outcome.LastErr).Str("order_id", orderID).Msg("Fill polling saw errors")
	}
	return result
}
