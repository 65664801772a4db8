// Package interfaces defines service contracts for rebal.
package interfaces

import (
	"context"

	"github.com/bobmcallan/rebal/internal/models"
)

// GatewayClient provides typed access to the local trading gateway.
// The gateway holds a pre-authenticated session established out-of-band.
type GatewayClient interface {
	// AuthStatus reports the gateway session state. A 401 or a redirect to
	// the login page yields Authenticated=false rather than an error.
	AuthStatus(ctx context.Context) (*models.AuthStatus, error)

	// Accounts lists the account ids available to the session.
	Accounts(ctx context.Context) ([]string, error)

	// GetLedger retrieves the per-currency cash ledger for an account.
	GetLedger(ctx context.Context, accountID string) (map[string]*models.LedgerEntry, error)

	// GetAllPositions pages through the account's positions until the
	// gateway returns a short or empty page.
	GetAllPositions(ctx context.Context, accountID string) ([]*models.Position, error)

	// GetExchangeRate returns the source→target rate. Callers must treat a
	// non-positive rate as unusable.
	GetExchangeRate(ctx context.Context, source, target string) (float64, error)

	// SearchInstrument performs a live security search by symbol.
	SearchInstrument(ctx context.Context, symbol string) ([]*models.Instrument, error)

	// PreviewOrders runs the what-if affordability check for an order set.
	PreviewOrders(ctx context.Context, accountID string, orders []models.OrderTicket) (*models.WhatIfResult, error)

	// PlaceOrders submits an order set for placement.
	PlaceOrders(ctx context.Context, accountID string, orders []models.OrderTicket) (*models.OrderResponse, error)

	// ReplyToOrder answers a pending confirmation round.
	ReplyToOrder(ctx context.Context, replyID string, confirmed bool) (*models.OrderResponse, error)

	// LiveOrders lists the gateway's live (non-terminal) orders.
	LiveOrders(ctx context.Context) ([]*models.LiveOrder, error)

	// CancelOrder cancels a live order.
	CancelOrder(ctx context.Context, accountID, orderID string) error
}

// InstrumentResolver maps a symbol to a contract id. Implementations check
// an in-memory cache first and fall back to a live search; the cache is an
// optimization, never a correctness dependency.
type InstrumentResolver interface {
	Resolve(ctx context.Context, symbol string) (int64, error)
}
