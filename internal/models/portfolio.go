package models

// AuthStatus reports the gateway's session state. The session itself is
// established out-of-band via the browser login flow.
type AuthStatus struct {
	Authenticated bool   `json:"authenticated"`
	Connected     bool   `json:"connected"`
	Message       string `json:"message,omitempty"`
}

// LedgerEntry is a per-currency cash snapshot from the account ledger.
// Fetched fresh on every analysis; never cached across analyses.
type LedgerEntry struct {
	Currency       string  `json:"currency"`
	CashBalance    float64 `json:"cash_balance"`
	SettledCash    float64 `json:"settled_cash"`
	NetLiquidation float64 `json:"net_liquidation"`
}

// Position is one held instrument as reported by the gateway.
type Position struct {
	InstrumentID  int64   `json:"instrument_id"`
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	MarketValue   float64 `json:"market_value"`
	MarketPrice   float64 `json:"market_price"`
	Currency      string  `json:"currency"`
	AvgCost       float64 `json:"avg_cost"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
}

// Instrument is a search result from the gateway's security lookup.
type Instrument struct {
	InstrumentID int64  `json:"instrument_id"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name,omitempty"`
}

// PositionAnalysis is the derived per-allocation view: where the holding
// stands against its target. Recomputed on every analysis call.
type PositionAnalysis struct {
	Symbol           string  `json:"symbol"`
	InstrumentID     int64   `json:"instrument_id,omitempty"`
	CurrentShares    float64 `json:"current_shares"`
	CurrentValue     float64 `json:"current_value"`
	CurrentPercent   float64 `json:"current_percent"`
	TargetPercent    float64 `json:"target_percent"`
	DeviationPercent float64 `json:"deviation_percent"`
	SharesToBuy      int64   `json:"shares_to_buy"`
	EstimatedCost    float64 `json:"estimated_cost"`
	PricePerShare    float64 `json:"price_per_share"`
}

// PortfolioAnalysis is the aggregate snapshot for one analysis call.
// All monetary fields are in the quote currency unless named otherwise.
type PortfolioAnalysis struct {
	AccountID     string             `json:"account_id"`
	TotalValue    float64            `json:"total_value"`
	QuoteCash     float64            `json:"quote_cash"`
	SecondaryCash float64            `json:"secondary_cash"`
	ExchangeRate  float64            `json:"exchange_rate"`
	Positions     []PositionAnalysis `json:"positions"`
}
