package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"quote-engine/inventory"
	"quote-engine/market"
	"quote-engine/strategy"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

var t0 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func book(symbol, bid, ask string, seq uint64) market.OrderBook {
	return market.NewOrderBook(symbol,
		[]market.Level{{Price: d(bid), Quantity: d("50")}, {Price: d(bid).Sub(d("0.1")), Quantity: d("80")}},
		[]market.Level{{Price: d(ask), Quantity: d("50")}, {Price: d(ask).Add(d("0.1")), Quantity: d("80")}},
		t0).WithSequence(seq)
}

func tick(symbol string, seq uint64) Tick {
	return Tick{
		Book:             book(symbol, "100", "100.2", seq),
		Inventory:        inventory.Position{Quantity: decimal.Zero},
		Params:           strategy.DefaultQuoteParameters(),
		TargetInventory:  decimal.Zero,
		HedgeCostPerUnit: d("0.01"),
		Horizon:          time.Second,
	}
}

func informedTrades() []market.Trade {
	out := make([]market.Trade, 20)
	for i := range out {
		px := d("100")
		if i == len(out)-1 {
			px = d("103")
		}
		out[i] = market.Trade{Price: px, Size: d("1"), Side: market.SideBuy, Ts: t0.Add(time.Duration(i) * 100 * time.Millisecond)}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Model.OrderArrivalIntensity = 100
	return cfg
}

func testPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	p.now = func() time.Time { return t0 }
	return p
}
