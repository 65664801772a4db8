package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/rebal/internal/models"
)

// AnalyzerService computes the current-versus-target portfolio snapshot.
type AnalyzerService interface {
	// Analyze fetches ledger, positions, and exchange rate, and derives a
	// PositionAnalysis per configured allocation. Pure function of current
	// remote state: two calls with stable market data yield identical output.
	Analyze(ctx context.Context, accountID string) (*models.PortfolioAnalysis, error)
}

// PlannerService turns an analysis into a budget-constrained order list.
type PlannerService interface {
	// BuildPlan ranks underweight positions by deviation and greedily
	// allocates the buffered available cash. An empty plan is a valid
	// terminal state, not an error.
	BuildPlan(ctx context.Context, accountID string) (*models.AutoInvestPlan, error)
}

// ExecutorService drives a plan through the order submission protocol.
type ExecutorService interface {
	// Execute builds a plan, performs best-effort currency conversion, and
	// places each planned order independently in priority order.
	Execute(ctx context.Context, accountID string) (*models.AutoInvestResult, error)
}

// OrderService implements the multi-step submission protocol against the
// gateway: preview, affordability, place, confirmation rounds, fill wait.
type OrderService interface {
	// SubmitBuyOrder runs one equity order end-to-end. Failures and
	// affordability skips are encoded in the OrderResult, never returned
	// as errors, so sibling orders are unaffected.
	SubmitBuyOrder(ctx context.Context, accountID string, order *models.PlannedOrder, bufferPercent float64) models.OrderResult

	// ConvertCurrency places a secondary→quote conversion order and waits
	// up to fillTimeout for it to fill.
	ConvertCurrency(ctx context.Context, accountID string, amount float64, fillTimeout time.Duration) models.ConversionOutcome
}
