package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/bobmcallan/rebal/internal/models"
)

type whatIfWireResponse struct {
	Amount struct {
		Amount     string `json:"amount"`
		Commission string `json:"commission"`
		Total      string `json:"total"`
	} `json:"amount"`
	Equity struct {
		Current string `json:"current"`
		Change  string `json:"change"`
		After   string `json:"after"`
	} `json:"equity"`
	Warn  string `json:"warn"`
	Error string `json:"error"`
}

// PreviewOrders runs the what-if affordability check. A response carrying
// an error field is returned as a WhatIfResult with Error set, not as a Go
// error: the caller decides whether that makes the order set unaffordable.
func (c *Client) PreviewOrders(ctx context.Context, accountID string, orders []models.OrderTicket) (*models.WhatIfResult, error) {
	body := map[string]interface{}{"orders": orders}
	endpoint := fmt.Sprintf("/iserver/account/%s/orders/whatif", url.PathEscape(accountID))

	var resp whatIfWireResponse
	if err := c.requestJSON(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, err
	}

	if resp.Error != "" {
		return &models.WhatIfResult{Error: resp.Error}, nil
	}

	return &models.WhatIfResult{
		EquityCurrent: parseMoney(resp.Equity.Current),
		EquityChange:  parseMoney(resp.Equity.Change),
		EquityAfter:   parseMoney(resp.Equity.After),
		Commission:    parseMoney(resp.Amount.Commission),
	}, nil
}

// PlaceOrders submits an order set for placement. The response is either a
// terminal order confirmation or a request for a confirmation round.
func (c *Client) PlaceOrders(ctx context.Context, accountID string, orders []models.OrderTicket) (*models.OrderResponse, error) {
	body := map[string]interface{}{"orders": orders}
	endpoint := fmt.Sprintf("/iserver/account/%s/orders", url.PathEscape(accountID))

	data, err := c.request(ctx, http.MethodPost, endpoint, body, 0)
	if err != nil {
		return nil, err
	}
	return decodeOrderResponse(data, endpoint)
}

// ReplyToOrder answers a pending confirmation round. Conversion orders have
// been observed to require two rounds (risk warning, then suitability).
func (c *Client) ReplyToOrder(ctx context.Context, replyID string, confirmed bool) (*models.OrderResponse, error) {
	body := map[string]interface{}{"confirmed": confirmed}
	endpoint := fmt.Sprintf("/iserver/reply/%s", url.PathEscape(replyID))

	data, err := c.request(ctx, http.MethodPost, endpoint, body, 0)
	if err != nil {
		return nil, err
	}
	return decodeOrderResponse(data, endpoint)
}

// wireID accepts the id fields the gateway emits either as JSON numbers or
// as strings, depending on the endpoint.
type wireID string

func (w *wireID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*w = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*w = wireID(n.String())
	return nil
}

// orderWireResponse is the duck-typed shape the placement and reply
// endpoints share: order_id marks a terminal response, id plus message
// marks a confirmation request.
type orderWireResponse struct {
	OrderID     wireID   `json:"order_id"`
	OrderStatus string   `json:"order_status"`
	ID          string   `json:"id"`
	Message     []string `json:"message"`
}

// decodeOrderResponse translates the wire shape into the tagged union once,
// at the protocol boundary. The endpoints wrap the payload in a one-element
// array; a bare object is accepted too.
func decodeOrderResponse(data []byte, endpoint string) (*models.OrderResponse, error) {
	var entries []orderWireResponse
	if err := json.Unmarshal(data, &entries); err != nil {
		var single orderWireResponse
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}
		entries = []orderWireResponse{single}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("empty order response from %s", endpoint)
	}

	entry := entries[0]
	switch {
	case entry.OrderID != "":
		return &models.OrderResponse{
			OrderID: string(entry.OrderID),
			Status:  entry.OrderStatus,
		}, nil
	case entry.ID != "":
		return &models.OrderResponse{
			ReplyID:  entry.ID,
			Warnings: entry.Message,
		}, nil
	default:
		return nil, fmt.Errorf("unrecognized order response shape from %s", endpoint)
	}
}

type liveOrderWireResponse struct {
	OrderID wireID `json:"orderId"`
	Ticker  string `json:"ticker"`
	Status  string `json:"status"`
}

// LiveOrders lists the gateway's live orders. The provider removes filled
// and otherwise terminal orders from this list.
func (c *Client) LiveOrders(ctx context.Context) ([]*models.LiveOrder, error) {
	var resp struct {
		Orders []liveOrderWireResponse `json:"orders"`
	}
	if err := c.requestJSON(ctx, http.MethodGet, "/iserver/account/orders", nil, &resp); err != nil {
		return nil, err
	}

	orders := make([]*models.LiveOrder, len(resp.Orders))
	for i, o := range resp.Orders {
		orders[i] = &models.LiveOrder{
			OrderID: string(o.OrderID),
			Symbol:  strings.ToUpper(o.Ticker),
			Status:  strings.ToLower(o.Status),
		}
	}
	return orders, nil
}

// CancelOrder cancels a live order.
func (c *Client) CancelOrder(ctx context.Context, accountID, orderID string) error {
	endpoint := fmt.Sprintf("/iserver/account/%s/order/%s",
		url.PathEscape(accountID), url.PathEscape(orderID))
	_, err := c.request(ctx, http.MethodDelete, endpoint, nil, 0)
	return err
}

// parseMoney parses the gateway's display-formatted money strings
// ("12,345.67", "-1,001 USD") into floats. Unparseable input yields zero;
// the affordability check treats that conservatively.
func parseMoney(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == '-':
			b.WriteRune(r)
		case r == ',':
			// thousands separator
		case r == ' ':
			// currency suffix follows; stop at the first space after digits
			if b.Len() > 0 {
				goto done
			}
		}
	}
done:
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}
