// Package planner builds budget-constrained auto-invest plans.
package planner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

// Compile-time interface check
var _ interfaces.PlannerService = (*Service)(nil)

// Service implements PlannerService.
type Service struct {
	analyzer interfaces.AnalyzerService
	resolver interfaces.InstrumentResolver
	config   interfaces.ConfigStore
	// minCashThreshold stops the greedy walk once remaining cash is too
	// small to matter. Tunable, not a hard law.
	minCashThreshold float64
	logger           *common.Logger
}

// NewService creates a new planner service.
func NewService(analyzer interfaces.AnalyzerService, resolver interfaces.InstrumentResolver, config interfaces.ConfigStore, minCashThreshold float64, logger *common.Logger) *Service {
	return &Service{
		analyzer:         analyzer,
		resolver:         resolver,
		config:           config,
		minCashThreshold: minCashThreshold,
		logger:           logger,
	}
}

// BuildPlan analyzes the portfolio and greedily allocates the buffered
// available cash across underweight positions, most underweight first.
// Running out of cash is a valid terminal state, not an error.
func (s *Service) BuildPlan(ctx context.Context, accountID string) (*models.AutoInvestPlan, error) {
	analysis, err := s.analyzer.Analyze(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	buffer, err := s.config.GetBufferPercent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load buffer percent: %w", err)
	}

	totalCash := analysis.QuoteCash + analysis.SecondaryCash*analysis.ExchangeRate
	available := totalCash * (1 - buffer)

	plan := &models.AutoInvestPlan{
		AccountID:      accountID,
		TotalAvailable: available,
		ExchangeRate:   analysis.ExchangeRate,
	}
	if analysis.SecondaryCash > 0 {
		plan.SecondaryToConvert = analysis.SecondaryCash
	}

	if available <= 0 {
		plan.Summary = fmt.Sprintf("No cash available to invest after applying the %.1f%% buffer.", buffer*100)
		return plan, nil
	}

	candidates := underweightCandidates(analysis.Positions)
	if len(candidates) == 0 {
		plan.Summary = "All positions are at or above target; no orders needed."
		return plan, nil
	}

	remaining := available
	for rank, cand := range candidates {
		if remaining < s.minCashThreshold {
			break
		}
		if remaining < cand.PricePerShare {
			// A later, cheaper candidate may still fit.
			continue
		}

		shares := cand.SharesToBuy
		reason := "reaching target"
		maxAffordable := int64(math.Floor(remaining / cand.PricePerShare))
		if maxAffordable < shares {
			shares = maxAffordable
			reason = fmt.Sprintf("partial fill %.0f%%", float64(shares)/float64(cand.SharesToBuy)*100)
		}
		if shares < 1 {
			continue
		}

		instrumentID := cand.InstrumentID
		if instrumentID == 0 {
			id, err := s.resolver.Resolve(ctx, cand.Symbol)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", cand.Symbol).Msg("Skipping candidate, instrument resolution failed")
				continue
			}
			instrumentID = id
		}

		cost := float64(shares) * cand.PricePerShare
		plan.Orders = append(plan.Orders, models.PlannedOrder{
			Symbol:        cand.Symbol,
			InstrumentID:  instrumentID,
			Shares:        shares,
			EstimatedCost: cost,
			PricePerShare: cand.PricePerShare,
			Priority:      rank + 1,
			Reason:        reason,
		})
		remaining -= cost
	}

	plan.Summary = summarize(plan, available, remaining)
	s.logger.Info().
		Str("account", accountID).
		Int("orders", len(plan.Orders)).
		Float64("available", available).
		Msg("Auto-invest plan built")

	return plan, nil
}

// underweightCandidates filters to buyable underweight positions and sorts
// them by deviation descending. The sort is stable so ties keep their
// pre-filter order and plans stay deterministic.
func underweightCandidates(positions []models.PositionAnalysis) []models.PositionAnalysis {
	var candidates []models.PositionAnalysis
	for _, p := range positions {
		if p.DeviationPercent > 0 && p.SharesToBuy > 0 && p.PricePerShare > 0 {
			candidates = append(candidates, p)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DeviationPercent > candidates[j].DeviationPercent
	})
	return candidates
}

func summarize(plan *models.AutoInvestPlan, available, remaining float64) string {
	if len(plan.Orders) == 0 {
		return "No affordable orders for the current allocation targets."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Investing %.2f of %.2f available across %d order(s): ",
		available-remaining, available, len(plan.Orders))
	for i, o := range plan.Orders {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d %s (%s)", o.Shares, o.Symbol, o.Reason)
	}
	if plan.SecondaryToConvert > 0 {
		fmt.Fprintf(&b, "; %.2f secondary-currency cash pending conversion", plan.SecondaryToConvert)
	}
	return b.String()
}
