package analyzer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
	"github.com/bobmcallan/rebal/internal/models"
)

func approxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// mockGateway overrides the read paths the analyzer touches; other calls
// panic through the nil embedded interface.
type mockGateway struct {
	interfaces.GatewayClient
	ledger    map[string]*models.LedgerEntry
	positions []*models.Position
	rate      float64
	rateErr   error
}

func (m *mockGateway) GetLedger(_ context.Context, _ string) (map[string]*models.LedgerEntry, error) {
	return m.ledger, nil
}

func (m *mockGateway) GetAllPositions(_ context.Context, _ string) ([]*models.Position, error) {
	return m.positions, nil
}

func (m *mockGateway) GetExchangeRate(_ context.Context, _, _ string) (float64, error) {
	return m.rate, m.rateErr
}

type mockConfigStore struct {
	allocations []*models.Allocation
	buffer      float64
}

func (m *mockConfigStore) GetAllocations(_ context.Context) ([]*models.Allocation, error) {
	return m.allocations, nil
}
func (m *mockConfigStore) SaveAllocations(_ context.Context, a []*models.Allocation) error {
	m.allocations = a
	return nil
}
func (m *mockConfigStore) GetBufferPercent(_ context.Context) (float64, error) { return m.buffer, nil }
func (m *mockConfigStore) SetBufferPercent(_ context.Context, b float64) error {
	m.buffer = b
	return nil
}
func (m *mockConfigStore) Close() error { return nil }

// threeFundGateway is the canonical scenario: $10,000 portfolio, VOO at
// 40%, QQQ at 20%, VTI at 10%, $3,000 USD cash.
func threeFundGateway() *mockGateway {
	return &mockGateway{
		ledger: map[string]*models.LedgerEntry{
			"USD": {Currency: "USD", CashBalance: 3000},
		},
		positions: []*models.Position{
			{InstrumentID: 136155102, Symbol: "VOO", Quantity: 10, MarketValue: 4000, MarketPrice: 400},
			{InstrumentID: 320227571, Symbol: "QQQ", Quantity: 10, MarketValue: 2000, MarketPrice: 200},
			{InstrumentID: 8313290, Symbol: "VTI", Quantity: 10, MarketValue: 1000, MarketPrice: 100},
		},
		rate: 0.27,
	}
}

func threeFundAllocations() []*models.Allocation {
	return []*models.Allocation{
		{Symbol: "VOO", TargetPercent: 50},
		{Symbol: "QQQ", TargetPercent: 30},
		{Symbol: "VTI", TargetPercent: 20},
	}
}

func TestAnalyze_ThreeFundPortfolio(t *testing.T) {
	svc := NewService(threeFundGateway(), &mockConfigStore{allocations: threeFundAllocations()},
		"USD", "ILS", common.NewSilentLogger())

	analysis, err := svc.Analyze(context.Background(), "U123")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if !approxEqual(analysis.TotalValue, 10000, 0.01) {
		t.Errorf("total value = %v, want 10000", analysis.TotalValue)
	}
	if analysis.QuoteCash != 3000 {
		t.Errorf("quote cash = %v, want 3000", analysis.QuoteCash)
	}
	if len(analysis.Positions) != 3 {
		t.Fatalf("got %d position analyses, want 3", len(analysis.Positions))
	}

	voo := analysis.Positions[0]
	if !approxEqual(voo.CurrentPercent, 40, 0.01) {
		t.Errorf("VOO current percent = %v, want 40", voo.CurrentPercent)
	}
	if !approxEqual(voo.DeviationPercent, 10, 0.01) {
		t.Errorf("VOO deviation = %v, want +10", voo.DeviationPercent)
	}
	// Target $5,000 − current $4,000 = $1,000 gap at $400/share
	if voo.SharesToBuy != 2 {
		t.Errorf("VOO shares to buy = %d, want 2 (floored)", voo.SharesToBuy)
	}
	if !approxEqual(voo.EstimatedCost, 800, 0.01) {
		t.Errorf("VOO estimated cost = %v, want 800", voo.EstimatedCost)
	}

	qqq := analysis.Positions[1]
	if qqq.SharesToBuy != 5 {
		t.Errorf("QQQ shares to buy = %d, want 5", qqq.SharesToBuy)
	}
	vti := analysis.Positions[2]
	if vti.SharesToBuy != 10 {
		t.Errorf("VTI shares to buy = %d, want 10", vti.SharesToBuy)
	}
}

func TestAnalyze_SecondaryCashConvertedAtRate(t *testing.T) {
	gw := threeFundGateway()
	gw.ledger["ILS"] = &models.LedgerEntry{Currency: "ILS", CashBalance: 1000}
	gw.rate = 0.3

	svc := NewService(gw, &mockConfigStore{allocations: threeFundAllocations()},
		"USD", "ILS", common.NewSilentLogger())

	analysis, err := svc.Analyze(context.Background(), "U123")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	// 3000 USD + 1000 ILS × 0.3 + 7000 positions
	if !approxEqual(analysis.TotalValue, 10300, 0.01) {
		t.Errorf("total value = %v, want 10300", analysis.TotalValue)
	}
	if analysis.SecondaryCash != 1000 {
		t.Errorf("secondary cash = %v, want 1000 (kept in native units)", analysis.SecondaryCash)
	}
}

func TestAnalyze_FailsWithoutExchangeRate(t *testing.T) {
	gw := threeFundGateway()
	gw.rateErr = errors.New("rate unavailable")

	svc := NewService(gw, &mockConfigStore{allocations: threeFundAllocations()},
		"USD", "ILS", common.NewSilentLogger())

	if _, err := svc.Analyze(context.Background(), "U123"); err == nil {
		t.Fatal("expected error when the exchange rate cannot be fetched")
	}
}

func TestAnalyze_FailsOnNonPositiveRate(t *testing.T) {
	gw := threeFundGateway()
	gw.rate = 0

	svc := NewService(gw, &mockConfigStore{allocations: threeFundAllocations()},
		"USD", "ILS", common.NewSilentLogger())

	if _, err := svc.Analyze(context.Background(), "U123"); err == nil {
		t.Fatal("a zero rate must fail the analysis, not silently misprice cash")
	}
}

func TestAnalyze_AllocationWithoutPosition(t *testing.T) {
	gw := threeFundGateway()
	allocations := append(threeFundAllocations()[:2:2],
		&models.Allocation{Symbol: "SCHD", TargetPercent: 10, InstrumentID: 97986607})

	svc := NewService(gw, &mockConfigStore{allocations: allocations},
		"USD", "ILS", common.NewSilentLogger())

	analysis, err := svc.Analyze(context.Background(), "U123")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	schd := analysis.Positions[2]
	if schd.CurrentShares != 0 || schd.CurrentValue != 0 {
		t.Errorf("unheld allocation should have zero current state, got %+v", schd)
	}
	if schd.DeviationPercent != 10 {
		t.Errorf("deviation = %v, want the full target", schd.DeviationPercent)
	}
	// No price known for an unheld symbol, so no buy quantity either
	if schd.SharesToBuy != 0 {
		t.Errorf("shares to buy = %d, want 0 without a price", schd.SharesToBuy)
	}
	if schd.InstrumentID != 97986607 {
		t.Errorf("cached instrument id should carry through, got %d", schd.InstrumentID)
	}
}

func TestAnalyze_OverweightPositionNeverSells(t *testing.T) {
	gw := threeFundGateway()
	allocations := []*models.Allocation{{Symbol: "VOO", TargetPercent: 10}}

	svc := NewService(gw, &mockConfigStore{allocations: allocations},
		"USD", "ILS", common.NewSilentLogger())

	analysis, err := svc.Analyze(context.Background(), "U123")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	voo := analysis.Positions[0]
	if voo.DeviationPercent >= 0 {
		t.Errorf("deviation = %v, want negative for overweight", voo.DeviationPercent)
	}
	if voo.SharesToBuy != 0 || voo.EstimatedCost != 0 {
		t.Errorf("overweight position must not produce a buy: %+v", voo)
	}
}

func TestAnalyze_CaseInsensitivePositionMatch(t *testing.T) {
	gw := threeFundGateway()
	allocations := []*models.Allocation{{Symbol: "voo", TargetPercent: 50}}

	svc := NewService(gw, &mockConfigStore{allocations: allocations},
		"USD", "ILS", common.NewSilentLogger())

	analysis, err := svc.Analyze(context.Background(), "U123")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	voo := analysis.Positions[0]
	if voo.Symbol != "VOO" {
		t.Errorf("symbol = %s, want normalized VOO", voo.Symbol)
	}
	if voo.CurrentValue != 4000 {
		t.Errorf("lower-case allocation failed to match the held position: %+v", voo)
	}
}
