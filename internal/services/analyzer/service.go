// Package analyzer computes the current-versus-target portfolio snapshot.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

// Compile-time interface check
var _ interfaces.AnalyzerService = (*Service)(nil)

// Service implements AnalyzerService.
type Service struct {
	gateway   interfaces.GatewayClient
	config    interfaces.ConfigStore
	quote     string
	secondary string
	logger    *common.Logger
}

// NewService creates a new analyzer service. quote and secondary name the
// account's valuation currency and the second cash currency.
func NewService(gateway interfaces.GatewayClient, config interfaces.ConfigStore, quote, secondary string, logger *common.Logger) *Service {
	return &Service{
		gateway:   gateway,
		config:    config,
		quote:     quote,
		secondary: secondary,
		logger:    logger,
	}
}

// Analyze produces a fresh PortfolioAnalysis for the account. Nothing is
// cached: every call re-reads ledger, positions, and the exchange rate, so
// repeated calls against stable remote state yield identical results.
//
// An unavailable or non-positive exchange rate fails the whole analysis.
// Substituting a default rate would silently misprice the secondary cash
// and every derived buy quantity.
func (s *Service) Analyze(ctx context.Context, accountID string) (*models.PortfolioAnalysis, error) {
	allocations, err := s.config.GetAllocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocations: %w", err)
	}

	ledger, err := s.gateway.GetLedger(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger: %w", err)
	}

	positions, err := s.gateway.GetAllPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch positions: %w", err)
	}

	rate, err := s.gateway.GetExchangeRate(ctx, s.secondary, s.quote)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s/%s exchange rate: %w", s.secondary, s.quote, err)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("%s/%s exchange rate unavailable (got %v)", s.secondary, s.quote, rate)
	}

	var quoteCash, secondaryCash float64
	if entry, ok := ledger[s.quote]; ok {
		quoteCash = entry.CashBalance
	}
	if entry, ok := ledger[s.secondary]; ok {
		secondaryCash = entry.CashBalance
	}

	totalValue := quoteCash + secondaryCash*rate
	for _, p := range positions {
		totalValue += p.MarketValue
	}

	analysis := &models.PortfolioAnalysis{
		AccountID:     accountID,
		TotalValue:    totalValue,
		QuoteCash:     quoteCash,
		SecondaryCash: secondaryCash,
		ExchangeRate:  rate,
		Positions:     make([]models.PositionAnalysis, 0, len(allocations)),
	}

	for _, alloc := range allocations {
		pa := analyzeAllocation(alloc, positions, totalValue)
		analysis.Positions = append(analysis.Positions, pa)
	}

	s.logger.Debug().
		Str("account", accountID).
		Float64("total_value", totalValue).
		Int("allocations", len(allocations)).
		Msg("Portfolio analyzed")

	return analysis, nil
}

// analyzeAllocation derives one PositionAnalysis. A missing position means
// zero current shares and value; sharesToBuy floors to whole shares and
// clamps at zero, so an overweight position never yields a negative buy.
func analyzeAllocation(alloc *models.Allocation, positions []*models.Position, totalValue float64) models.PositionAnalysis {
	pa := models.PositionAnalysis{
		Symbol:        strings.ToUpper(alloc.Symbol),
		InstrumentID:  alloc.InstrumentID,
		TargetPercent: alloc.TargetPercent,
	}

	if pos := findPosition(positions, alloc.Symbol); pos != nil {
		pa.InstrumentID = pos.InstrumentID
		pa.CurrentShares = pos.Quantity
		pa.CurrentValue = pos.MarketValue
		pa.PricePerShare = pos.MarketPrice
	}

	if totalValue > 0 {
		pa.CurrentPercent = pa.CurrentValue / totalValue * 100
	}
	pa.DeviationPercent = pa.TargetPercent - pa.CurrentPercent

	if pa.PricePerShare > 0 {
		targetValue := pa.TargetPercent / 100 * totalValue
		shares := math.Floor((targetValue - pa.CurrentValue) / pa.PricePerShare)
		if shares > 0 {
			pa.SharesToBuy = int64(shares)
			pa.EstimatedCost = float64(pa.SharesToBuy) * pa.PricePerShare
		}
	}

	return pa
}

func findPosition(positions []*models.Position, symbol string) *models.Position {
	for _, p := range positions {
		if strings.EqualFold(p.Symbol, symbol) {
			return p
		}
	}
	return nil
}
