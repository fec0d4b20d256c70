package sim

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-engine/config"
	"quote-engine/internal/engine"
	"quote-engine/market"
	"quote-engine/strategy"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return "f" + strconv.Itoa(n)
	}
}

func testConfig() config.AppConfig {
	cfg := config.Default()
	cfg.Model.OrderArrivalIntensity = 100
	cfg.Model.BaseOrderSize = d("1")
	cfg.Symbols = map[string]config.SymbolConfig{
		"BTCUSDT": {MaxPosition: d("100"), HedgeCostPerUnit: d("0.01"), StartPrice: d("30000")},
		"ETHUSDT": {MaxPosition: d("100"), HedgeCostPerUnit: d("0.01")},
	}
	return cfg
}

func TestMatchFills(t *testing.T) {
	s := strategy.MarketMakingStrategy{
		Quoted:   true,
		BidPrice: d("99.9"), AskPrice: d("100.1"),
		BidSize: d("2"), AskSize: d("1"),
	}
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []market.Trade{
		{Side: market.SideSell, Price: d("99.8"), Size: d("1.5"), Ts: ts},
		{Side: market.SideSell, Price: d("99.95"), Size: d("5"), Ts: ts},
		{Side: market.SideSell, Price: d("99.9"), Size: d("5"), Ts: ts},
		{Side: market.SideBuy, Price: d("100.2"), Size: d("3"), Ts: ts},
		{Side: market.SideBuy, Price: d("100.3"), Size: d("3"), Ts: ts},
	}

	fills := MatchFills(s, d("100"), trades, seqIDs())
	require.Len(t, fills, 3)

	assert.Equal(t, market.SideBuy, fills[0].Side)
	assert.True(t, fills[0].Qty.Equal(d("1.5")))
	assert.True(t, fills[0].Price.Equal(d("99.9")))
	// 剩余 0.5
	assert.True(t, fills[1].Qty.Equal(d("0.5")))
	assert.Equal(t, market.SideSell, fills[2].Side)
	assert.True(t, fills[2].Qty.Equal(d("1")))
	assert.True(t, fills[2].MidAtFill.Equal(d("100")))
	assert.Equal(t, "f3", fills[2].ID)
}

func TestMatchFillsNoQuote(t *testing.T) {
	trades := []market.Trade{{Side: market.SideSell, Price: d("1"), Size: d("1")}}
	assert.Empty(t, MatchFills(strategy.NoQuote(strategy.ReasonCrossed), d("100"), trades, seqIDs()))
}

func TestRunnerOnTick(t *testing.T) {
	r, err := NewRunnerFromConfig(testConfig(), "BTCUSDT", 7, nil)
	require.NoError(t, err)

	var last uint64
	quoted := 0
	for i := 0; i < 30; i++ {
		step, err := r.OnTick()
		require.NoError(t, err)
		assert.Equal(t, "BTCUSDT", step.Decision.Symbol)
		assert.Greater(t, step.Decision.Sequence, last)
		last = step.Decision.Sequence
		if step.Decision.Strategy.Quoted {
			quoted++
			assert.True(t, step.Decision.Strategy.BidPrice.LessThan(step.Decision.Strategy.AskPrice))
		}
	}
	assert.Positive(t, quoted)
}

func TestRunnerSettlesFills(t *testing.T) {
	r, err := NewRunnerFromConfig(testConfig(), "ETHUSDT", 3, nil)
	require.NoError(t, err)
	r.newID = seqIDs()

	_, _, err = r.NextTick()
	require.NoError(t, err)

	// 买价足够高，下一步所有主动卖单都会成交
	require.NoError(t, r.Publish(context.Background(), engine.Decision{
		Symbol: "ETHUSDT",
		Strategy: strategy.MarketMakingStrategy{
			Quoted:   true,
			BidPrice: d("1000"), AskPrice: d("1000000"),
			BidSize: d("1000"), AskSize: d("1000"),
		},
	}))

	var fills int
	qty := decimal.Zero
	for i := 0; i < 5 && fills == 0; i++ {
		_, fs, err := r.NextTick()
		require.NoError(t, err)
		fills += len(fs)
		for _, f := range fs {
			assert.Equal(t, market.SideBuy, f.Side)
			qty = qty.Add(f.Qty)
		}
	}
	require.Positive(t, fills)
	assert.True(t, r.Inv.NetExposure().Equal(qty))
	assert.Equal(t, fills, r.Analyzer.Stats().TotalFills)

	// 下一步对上一步成交做 markout
	_, _, err = r.NextTick()
	require.NoError(t, err)
	assert.Equal(t, fills, r.Analyzer.Stats().MarkedFills)
}

func TestRunnerCarriesCapital(t *testing.T) {
	cfg := testConfig()
	sc := cfg.Symbols["BTCUSDT"]
	sc.Capital = d("250000")
	cfg.Symbols["BTCUSDT"] = sc

	r, err := NewRunnerFromConfig(cfg, "BTCUSDT", 11, nil)
	require.NoError(t, err)
	tk, _, err := r.NextTick()
	require.NoError(t, err)
	assert.True(t, tk.Capital.Equal(d("250000")))

	step, err := r.OnTick()
	require.NoError(t, err)
	require.NotNil(t, step.Decision.Optimal)
	assert.True(t, step.Decision.Target.Equal(step.Decision.Optimal.OptimalQuantity))
}

func TestRouter(t *testing.T) {
	router, err := NewRouterFromConfig(testConfig(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, router.Symbols())

	tk, _, err := router["BTCUSDT"].NextTick()
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", tk.Symbol())
	assert.InDelta(t, 30000, tk.Book.MidPrice.InexactFloat64(), 300)

	assert.NoError(t, router.Publish(context.Background(), engine.Decision{Symbol: "ETHUSDT"}))
	assert.Error(t, router.Publish(context.Background(), engine.Decision{Symbol: "XRPUSDT"}))

	_, err = NewRunnerFromConfig(testConfig(), "XRPUSDT", 1, nil)
	assert.Error(t, err)
}
