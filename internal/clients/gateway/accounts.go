package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bobmcallan/rebal/internal/models"
)

// positionsPageSize is the gateway's fixed page size for position listings.
// A page shorter than this marks the end of the listing.
const positionsPageSize = 30

// AuthStatus checks the gateway session. A 401, or a redirect the gateway
// uses to bounce unauthenticated callers to the login page, is translated
// to an unauthenticated status rather than an error.
func (c *Client) AuthStatus(ctx context.Context) (*models.AuthStatus, error) {
	var resp struct {
		Authenticated bool   `json:"authenticated"`
		Connected     bool   `json:"connected"`
		Message       string `json:"message"`
	}

	err := c.requestJSON(ctx, http.MethodPost, "/iserver/auth/status", nil, &resp)
	if err != nil {
		if gwErr, ok := err.(*Error); ok {
			switch gwErr.StatusCode {
			case http.StatusUnauthorized, http.StatusFound:
				return &models.AuthStatus{Authenticated: false, Message: "session not authenticated"}, nil
			}
		}
		return nil, err
	}

	return &models.AuthStatus{
		Authenticated: resp.Authenticated,
		Connected:     resp.Connected,
		Message:       resp.Message,
	}, nil
}

// Accounts lists the account ids available to the session.
func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	var resp struct {
		Accounts []string `json:"accounts"`
	}
	if err := c.requestJSON(ctx, http.MethodGet, "/iserver/accounts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

type ledgerEntryResponse struct {
	Currency       string  `json:"currency"`
	CashBalance    float64 `json:"cashbalance"`
	SettledCash    float64 `json:"settledcash"`
	NetLiquidation float64 `json:"netliquidationvalue"`
}

// GetLedger retrieves the per-currency cash ledger for an account. The
// gateway includes a synthetic BASE summary entry, which is dropped.
func (c *Client) GetLedger(ctx context.Context, accountID string) (map[string]*models.LedgerEntry, error) {
	var resp map[string]ledgerEntryResponse
	endpoint := fmt.Sprintf("/portfolio/%s/ledger", url.PathEscape(accountID))
	if err := c.requestJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	ledger := make(map[string]*models.LedgerEntry, len(resp))
	for key, entry := range resp {
		currency := strings.ToUpper(key)
		if currency == "BASE" {
			continue
		}
		ledger[currency] = &models.LedgerEntry{
			Currency:       currency,
			CashBalance:    entry.CashBalance,
			SettledCash:    entry.SettledCash,
			NetLiquidation: entry.NetLiquidation,
		}
	}

	return ledger, nil
}

type positionResponse struct {
	InstrumentID  int64   `json:"conid"`
	ContractDesc  string  `json:"contractDesc"`
	Position      float64 `json:"position"`
	MarketValue   float64 `json:"mktValue"`
	MarketPrice   float64 `json:"mktPrice"`
	Currency      string  `json:"currency"`
	AvgCost       float64 `json:"avgCost"`
	UnrealizedPnl float64 `json:"unrealizedPnl"`
}

// GetAllPositions pages through positions/{page} starting at page 0,
// stopping at the first short or empty page. The loop is bounded by that
// natural termination condition only.
func (c *Client) GetAllPositions(ctx context.Context, accountID string) ([]*models.Position, error) {
	var positions []*models.Position

	for page := 0; ; page++ {
		var resp []positionResponse
		endpoint := fmt.Sprintf("/portfolio/%s/positions/%d", url.PathEscape(accountID), page)
		if err := c.requestJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}

		for _, p := range resp {
			positions = append(positions, &models.Position{
				InstrumentID:  p.InstrumentID,
				Symbol:        strings.ToUpper(firstField(p.ContractDesc)),
				Quantity:      p.Position,
				MarketValue:   p.MarketValue,
				MarketPrice:   p.MarketPrice,
				Currency:      p.Currency,
				AvgCost:       p.AvgCost,
				UnrealizedPnl: p.UnrealizedPnl,
			})
		}

		if len(resp) < positionsPageSize {
			break
		}
	}

	c.logger.Debug().Str("account", accountID).Int("count", len(positions)).Msg("Positions fetched")
	return positions, nil
}

// firstField returns the leading token of a contract description, which is
// the symbol ("VOO" from "VOO ARCA").
func firstField(desc string) string {
	fields := strings.Fields(desc)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// GetExchangeRate returns the source→target exchange rate. Callers must
// treat a non-positive rate as unusable.
func (c *Client) GetExchangeRate(ctx context.Context, source, target string) (float64, error) {
	var resp struct {
		Rate float64 `json:"rate"`
	}
	endpoint := fmt.Sprintf("/iserver/exchangerate?source=%s&target=%s",
		url.QueryEscape(source), url.QueryEscape(target))
	if err := c.requestJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Rate, nil
}

type searchResultResponse struct {
	InstrumentID int64  `json:"conid"`
	Symbol       string `json:"symbol"`
	CompanyName  string `json:"companyName"`
}

// SearchInstrument performs a live security search by symbol.
func (c *Client) SearchInstrument(ctx context.Context, symbol string) ([]*models.Instrument, error) {
	var resp []searchResultResponse
	endpoint := fmt.Sprintf("/iserver/secdef/search?symbol=%s", url.QueryEscape(symbol))
	if err := c.requestJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	instruments := make([]*models.Instrument, len(resp))
	for i, r := range resp {
		instruments[i] = &models.Instrument{
			InstrumentID: r.InstrumentID,
			Symbol:       strings.ToUpper(r.Symbol),
			Name:         r.CompanyName,
		}
	}
	return instruments, nil
}
