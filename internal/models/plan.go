package models

// PlannedOrder is one budgeted buy the planner decided on. Priority is the
// 1-based rank in the deviation-sorted candidate list, preserved even when
// earlier candidates were skipped for affordability.
type PlannedOrder struct {
	Symbol        string  `json:"symbol"`
	InstrumentID  int64   `json:"instrument_id"`
	Shares        int64   `json:"shares"`
	EstimatedCost float64 `json:"estimated_cost"`
	PricePerShare float64 `json:"price_per_share"`
	Priority      int     `json:"priority"`
	Reason        string  `json:"reason"`
}

// AutoInvestPlan is the planner's full output for one account. Consumed
// exactly once by the executor; never persisted.
type AutoInvestPlan struct {
	AccountID          string         `json:"account_id"`
	TotalAvailable     float64        `json:"total_available"`
	SecondaryToConvert float64        `json:"secondary_to_convert"`
	ExchangeRate       float64        `json:"exchange_rate"`
	Orders             []PlannedOrder `json:"orders"`
	Summary            string         `json:"summary"`
}
