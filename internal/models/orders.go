package models

// OrderTicket is an outbound order as submitted to the gateway's what-if
// and placement endpoints.
type OrderTicket struct {
	AccountID    string  `json:"acctId"`
	InstrumentID int64   `json:"conid"`
	ClientID     string  `json:"cOID,omitempty"`
	OrderType    string  `json:"orderType"`
	Side         string  `json:"side"`
	Quantity     float64 `json:"quantity,omitempty"`
	CashQuantity float64 `json:"cashQty,omitempty"`
	TimeInForce  string  `json:"tif"`
	CurrencyConv bool    `json:"isCcyConv,omitempty"`
}

// WhatIfResult is the parsed affordability preview. Monetary display
// strings from the wire are parsed into floats at the client boundary.
type WhatIfResult struct {
	EquityCurrent float64 `json:"equity_current"`
	EquityChange  float64 `json:"equity_change"`
	EquityAfter   float64 `json:"equity_after"`
	Commission    float64 `json:"commission"`
	Error         string  `json:"error,omitempty"`
}

// OrderResponse is the tagged union the placement and reply endpoints
// produce: either a terminal confirmation or a request for another
// confirmation round. Exactly one of OrderID / ReplyID is set.
type OrderResponse struct {
	OrderID  string   `json:"order_id,omitempty"`
	Status   string   `json:"status,omitempty"`
	ReplyID  string   `json:"reply_id,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// RequiresConfirmation reports whether the gateway is waiting for a reply
// before the order reaches the book.
func (r *OrderResponse) RequiresConfirmation() bool {
	return r.ReplyID != ""
}

// LiveOrder is one entry from the gateway's live-orders list. Filled and
// otherwise terminal orders are removed from the list by the provider.
type LiveOrder struct {
	OrderID string `json:"order_id"`
	Symbol  string `json:"symbol"`
	Status  string `json:"status"`
}

// Order result statuses.
const (
	OrderStatusSuccess = "success"
	OrderStatusFailed  = "failed"
	OrderStatusSkipped = "skipped"
)

// OrderResult is the outcome of one attempted equity order.
type OrderResult struct {
	Symbol  string `json:"symbol"`
	Shares  int64  `json:"shares"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}

// Conversion outcome states.
const (
	ConversionConverted = "converted"
	ConversionPending   = "pending"
	ConversionFailed    = "failed"
	ConversionSkipped   = "skipped"
)

// ConversionOutcome records the best-effort currency-conversion step.
type ConversionOutcome struct {
	Status  string  `json:"status"`
	Amount  float64 `json:"amount"`
	OrderID string  `json:"order_id,omitempty"`
	Message string  `json:"message,omitempty"`
}

// AutoInvestResult aggregates one execution run. Success means at least one
// order placed and none failed; skips do not count as failures.
type AutoInvestResult struct {
	AccountID     string             `json:"account_id"`
	Success       bool               `json:"success"`
	OrdersPlaced  int                `json:"orders_placed"`
	OrdersFailed  int                `json:"orders_failed"`
	TotalInvested float64            `json:"total_invested"`
	Results       []OrderResult      `json:"results"`
	Errors        []string           `json:"errors,omitempty"`
	Conversion    *ConversionOutcome `json:"conversion,omitempty"`
}
