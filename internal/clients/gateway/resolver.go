package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/rebal/internal/common"
	"github.com/bobmcallan/rebal/internal/interfaces"
)

// staticInstrumentIDs maps common ETF and stock symbols to their contract
// ids, saving a search round-trip for the usual suspects. The table is an
// optimization only: anything not listed resolves through a live search.
var staticInstrumentIDs = map[string]int64{
	"VOO":  136155102,
	"VTI":  8313290,
	"VT":   61229438,
	"VXUS": 80268298,
	"QQQ":  320227571,
	"SPY":  756733,
	"SCHD": 97986607,
	"VYM":  43645828,
	"BND":  43645865,
	"VGT":  27684036,
	"IVV":  8991557,
	"AAPL": 265598,
	"MSFT": 272093,
	"GOOG": 208813720,
}

// Resolver resolves symbols to instrument ids: static table first, live
// search fallback. Live results are remembered for the resolver's lifetime.
type Resolver struct {
	client interfaces.GatewayClient
	logger *common.Logger
	cache  map[string]int64
}

// NewResolver creates a resolver backed by the given gateway client.
func NewResolver(client interfaces.GatewayClient, logger *common.Logger) *Resolver {
	cache := make(map[string]int64, len(staticInstrumentIDs))
	for symbol, id := range staticInstrumentIDs {
		cache[symbol] = id
	}
	return &Resolver{
		client: client,
		logger: logger,
		cache:  cache,
	}
}

// Resolve returns the instrument id for a symbol, or a not-found error when
// the live search yields nothing.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (int64, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if key == "" {
		return 0, fmt.Errorf("symbol cannot be empty")
	}

	if id, ok := r.cache[key]; ok {
		return id, nil
	}

	results, err := r.client.SearchInstrument(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("instrument search for %s failed: %w", key, err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("instrument not found: %s", key)
	}

	id := results[0].InstrumentID
	r.cache[key] = id
	r.logger.Debug().Str("symbol", key).Int64("instrument_id", id).Msg("Instrument resolved via search")
	return id, nil
}

// Ensure Resolver implements InstrumentResolver.
var _ interfaces.InstrumentResolver = (*Resolver)(nil)
