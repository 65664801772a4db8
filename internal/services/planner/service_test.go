package planner

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/models"
)

func approxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

type mockAnalyzer struct {
	analysis *models.PortfolioAnalysis
	err      error
}

func (m *mockAnalyzer) Analyze(_ context.Context, _ string) (*models.PortfolioAnalysis, error) {
	return m.analysis, m.err
}

type mockResolver struct {
	ids   map[string]int64
	calls int
}

func (m *mockResolver) Resolve(_ context.Context, symbol string) (int64, error) {
	m.calls++
	if id, ok := m.ids[symbol]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("instrument not found: %s", symbol)
}

type mockConfigStore struct {
	buffer float64
}

func (m *mockConfigStore) GetAllocations(_ context.Context) ([]*models.Allocation, error) {
	return nil, nil
}
func (m *mockConfigStore) SaveAllocations(_ context.Context, _ []*models.Allocation) error {
	return nil
}
func (m *mockConfigStore) GetBufferPercent(_ context.Context) (float64, error) { return m.buffer, nil }
func (m *mockConfigStore) SetBufferPercent(_ context.Context, _ float64) error { return nil }
func (m *mockConfigStore) Close() error                                        { return nil }

// threeFundAnalysis mirrors the canonical $10,000 scenario: every position
// is 10 points underweight, $3,000 cash to deploy.
func threeFundAnalysis() *models.PortfolioAnalysis {
	return &models.PortfolioAnalysis{
		AccountID:    "U123",
		TotalValue:   10000,
		QuoteCash:    3000,
		ExchangeRate: 0.27,
		Positions: []models.PositionAnalysis{
			{Symbol: "VOO", InstrumentID: 136155102, TargetPercent: 50, CurrentPercent: 40,
				DeviationPercent: 10, SharesToBuy: 2, EstimatedCost: 800, PricePerShare: 400},
			{Symbol: "QQQ", InstrumentID: 320227571, TargetPercent: 30, CurrentPercent: 20,
				DeviationPercent: 10, SharesToBuy: 5, EstimatedCost: 1000, PricePerShare: 200},
			{Symbol: "VTI", InstrumentID: 8313290, TargetPercent: 20, CurrentPercent: 10,
				DeviationPercent: 10, SharesToBuy: 10, EstimatedCost: 1000, PricePerShare: 100},
		},
	}
}

func newTestService(analysis *models.PortfolioAnalysis, buffer float64) *Service {
	return NewService(&mockAnalyzer{analysis: analysis}, &mockResolver{},
		&mockConfigStore{buffer: buffer}, 10, common.NewSilentLogger())
}

func TestBuildPlan_ThreeFundGreedyFill(t *testing.T) {
	svc := newTestService(threeFundAnalysis(), 0.05)

	plan, err := svc.BuildPlan(context.Background(), "U123")
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}

	if !approxEqual(plan.TotalAvailable, 2850, 0.01) {
		t.Errorf("available = %v, want 2850 (3000 less 5%% buffer)", plan.TotalAvailable)
	}
	if len(plan.Orders) != 3 {
		t.Fatalf("got %d orders, want 3", len(plan.Orders))
	}

	// Equal deviations keep their input order (stable sort)
	for i, want := range []string{"VOO", "QQQ", "VTI"} {
		if plan.Orders[i].Symbol != want {
			t.Errorf("order[%d] = %s, want %s", i, plan.Orders[i].Symbol, want)
		}
		if plan.Orders[i].Priority != i+1 {
			t.Errorf("order[%d] priority = %d, want %d", i, plan.Orders[i].Priority, i+1)
		}
	}

	var total float64
	for _, o := range plan.Orders {
		total += o.EstimatedCost
	}
	if total > 2850 {
		t.Errorf("plan cost %v exceeds available 2850", total)
	}
	if !approxEqual(total, 2800, 0.01) {
		t.Errorf("plan cost = %v, want 2800 (800+1000+1000)", total)
	}
}

func TestBuildPlan_PartialFillWhenCashRunsShort(t *testing.T) {
	analysis := threeFundAnalysis()
	analysis.QuoteCash = 1000 // only ~950 after buffer
	svc := newTestService(analysis, 0.05)

	plan, err := svc.BuildPlan(context.Background(), "U123")
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}

	if len(plan.Orders) == 0 {
		t.Fatal("expected at least one order")
	}
	first := plan.Orders[0]
	// 950 available buys 2 of the 2 wanted VOO shares; with 150 left only a
	// cheaper candidate can follow.
	if first.Symbol != "VOO" || first.Shares != 2 {
		t.Errorf("first order = %+v, want 2 VOO", first)
	}

	var total float64
	for _, o := range plan.Orders {
		total += o.EstimatedCost
	}
	if total > 950 {
		t.Errorf("plan cost %v exceeds available 950", total)
	}
}

func TestBuildPlan_SkipsExpensiveKeepsCheaper(t *testing.T) {
	analysis := threeFundAnalysis()
	analysis.QuoteCash = 300 // 285 after buffer: below one VOO share, enough for VTI
	svc := newTestService(analysis, 0.05)

	plan, err := svc.BuildPlan(context.Background(), "U123")
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}

	for _, o := range plan.Orders {
		if o.Symbol == "VOO" {
			t.Error("VOO should be skipped, one share costs more than the budget")
		}
	}

	found := false
	for _, o := range plan.Orders {
		if o.Symbol == "QQQ" {
			found = true
			if o.Shares != 1 {
				t.Errorf("QQQ shares = %d, want 1 partial fill", o.Shares)
			}
			// Rank in the candidate list survives the VOO skip
			if o.Priority != 2 {
				t.Errorf("QQQ priority = %d, want 2", o.Priority)
			}
		}
	}
	if !found {
		t.Error("expected a QQQ order from the remaining budget")
	}
}

func TestBuildPlan_NoCashIsValidEmptyPlan(t *testing.T) {
	analysis := threeFundAnalysis()
	analysis.QuoteCash = 0
	svc := newTestService(analysis, 0.05)

	plan, err := svc.BuildPlan(context.Background(), "U123")
	if err != nil {
		t.Fatalf("an empty plan is a valid terminal state, got error: %v", err)
	}
	if len(plan.Orders) != 0 {
		t.Errorf("got %d orders, want 0", len(plan.Orders))
	}
	if plan.Summary == "" {
		t.Error("empty plan should still carry an explanatory summary")
	}
}

func TestBuildPlan_NothingUnderweight(t *testing.T) {
	analysis := &models.PortfolioAnalysis{
		AccountID:    "U123",
		QuoteCash:    5000,
		ExchangeRate: 0.27,
		Positions: []models.PositionAnalysis{
			{Symbol: "VOO", DeviationPercent: -2, PricePerShare: 400},
		},
	}
	svc := newTestService(analysis, 0.05)

	plan, err := svc.BuildPlan(context.Background(), "U123")
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}
	if len(plan.Orders) != 0 {
		t.Errorf("overweight-only portfolio produced %d orders", len(plan.Orders))
	}
}

func TestBuildPlan_SecondaryCashCountedAndFlagged(t *testing.T) {
	analysis := threeFundAnalysis()
	analysis.QuoteCash = 0
	analysis.SecondaryCash = 10000
	analysis.ExchangeRate = 0.27
	svc := newTestService(analysis, 0.05)

	plan, err := svc.BuildPlan(context.Background(), "U123")
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}

	// 10000 × 0.27 × 0.95 = 2565
	if !approxEqual(plan.TotalAvailable, 2565, 0.01) {
		t.Errorf("available = %v, want 2565", plan.TotalAvailable)
	}
	if plan.SecondaryToConvert != 10000 {
		t.Errorf("secondary to convert = %v, want 10000", plan.SecondaryToConvert)
	}
	if len(plan.Orders) == 0 {
		t.Error("converted secondary cash should fund orders")
	}
}

func TestBuildPlan_ResolverMissSkipsCandidate(t *testing.T) {
	analysis := threeFundAnalysis()
	// Strip the cached ids so every candidate resolves through the resolver,
	// which knows none of them.
	for i := range analysis.Positions {
		analysis.Positions[i].InstrumentID = 0
	}
	svc := newTestService(analysis, 0.05)

	plan, err := svc.BuildPlan(context.Background(), "U123")
	if err != nil {
		t.Fatalf("resolution misses must not fail the plan, got: %v", err)
	}
	if len(plan.Orders) != 0 {
		t.Errorf("unresolvable candidates produced %d orders", len(plan.Orders))
	}
}

func TestBuildPlan_ResolverFillsMissingID(t *testing.T) {
	analysis := threeFundAnalysis()
	analysis.Positions = analysis.Positions[:1]
	analysis.Positions[0].InstrumentID = 0

	resolver := &mockResolver{ids: map[string]int64{"VOO": 136155102}}
	svc := NewService(&mockAnalyzer{analysis: analysis}, resolver,
		&mockConfigStore{buffer: 0.05}, 10, common.NewSilentLogger())

	plan, err := svc.BuildPlan(context.Background(), "U123")
	if err != nil {
		t.Fatalf("BuildPlan returned error: %v", err)
	}
	if len(plan.Orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(plan.Orders))
	}
	if plan.Orders[0].InstrumentID != 136155102 {
		t.Errorf("instrument id = %d, want resolved 136155102", plan.Orders[0].InstrumentID)
	}
	if resolver.calls != 1 {
		t.Errorf("resolver called %d times, want 1", resolver.calls)
	}
}

func TestBuildPlan_AnalysisErrorPropagates(t *testing.T) {
	svc := NewService(&mockAnalyzer{err: fmt.Errorf("gateway down")}, &mockResolver{},
		&mockConfigStore{buffer: 0.05}, 10, common.NewSilentLogger())

	if _, err := svc.BuildPlan(context.Background(), "U123"); err == nil {
		t.Fatal("expected analysis failure to propagate")
	}
}
