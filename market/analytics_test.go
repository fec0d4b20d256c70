package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateImbalance(t *testing.T) {
	tests := []struct {
		name     string
		bid, ask float64
		expected float64
	}{
		{name: "Equal liquidity", bid: 100, ask: 100, expected: 0},
		{name: "More bid liquidity", bid: 150, ask: 100, expected: 0.2},
		{name: "More ask liquidity", bid: 100, ask: 150, expected: -0.2},
		{name: "Zero liquidity", bid: 0, ask: 0, expected: 0},
		{name: "One side empty", bid: 100, ask: 0, expected: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateImbalance(tt.bid, tt.ask)
			if result != tt.expected {
				t.Errorf("CalculateImbalance(%f, %f) = %f, want %f", tt.bid, tt.ask, result, tt.expected)
			}
		})
	}
}

func TestCalculateImbalanceFromOrderBook(t *testing.T) {
	book := NewOrderBook("X",
		[]Level{lv("100", "2"), lv("99", "3")},
		[]Level{lv("101", "1"), lv("102", "2")}, t0)

	top := CalculateImbalanceFromOrderBook(book, 1)
	assert.InDelta(t, CalculateImbalance(200, 101), top, 1e-12)

	full := CalculateImbalanceFromOrderBook(book, 0)
	assert.InDelta(t, CalculateImbalance(200+297, 101+204), full, 1e-12)
}

func TestAnalyzeOrderBookTopOfBookExample(t *testing.T) {
	book := NewOrderBook("X", []Level{lv("100", "50")}, []Level{lv("101", "50")}, t0)
	m := AnalyzeOrderBook(book, DefaultAnalyticsConfig())

	assert.InDelta(t, 10050.0, m.Liquidity, 1e-9)
	// notional imbalance: (5000-5050)/10050
	assert.InDelta(t, -50.0/10050.0, m.OrderBookImbalance, 1e-12)
	assert.InDelta(t, 1/100.5*10000/100, m.Volatility, 1e-9)
	assert.InDelta(t, 1/100.5, m.MicrostructureNoise, 1e-12)
	assert.InDelta(t, 1/100.5, m.EffectiveSpread, 1e-12)
}

func TestAnalyzeOrderBookBalancedLiquidity(t *testing.T) {
	book := NewOrderBook("X", []Level{lv("100", "101")}, []Level{lv("101", "100")}, t0)
	m := AnalyzeOrderBook(book, AnalyticsConfig{})
	assert.Equal(t, 0.0, m.OrderBookImbalance)
}

func TestImbalanceBounded(t *testing.T) {
	books := []OrderBook{
		NewOrderBook("X", []Level{lv("100", "1000000")}, []Level{lv("101", "0.0001")}, t0),
		NewOrderBook("X", []Level{lv("100", "0.0001")}, []Level{lv("101", "1000000")}, t0),
		NewOrderBook("X", []Level{lv("100", "3")}, nil, t0),
		NewOrderBook("X", nil, []Level{lv("100", "3")}, t0),
	}
	for _, b := range books {
		imb := AnalyzeOrderBook(b, AnalyticsConfig{}).OrderBookImbalance
		assert.GreaterOrEqual(t, imb, -1.0)
		assert.LessOrEqual(t, imb, 1.0)
	}
}

func TestEffectiveSpreadWeighted(t *testing.T) {
	book := NewOrderBook("X",
		[]Level{lv("100", "10"), lv("99", "30")},
		[]Level{lv("101", "20"), lv("102", "10")}, t0)
	// pair0 w=10 s=1/100.5, pair1 w=10 s=3/100.5
	want := (10*(1/100.5) + 10*(3/100.5)) / 20
	m := AnalyzeOrderBook(book, DefaultAnalyticsConfig())
	assert.InDelta(t, want, m.EffectiveSpread, 1e-12)
}

func TestPriceImpactWalksAsks(t *testing.T) {
	book := NewOrderBook("X",
		[]Level{lv("100", "50")},
		[]Level{lv("101", "50"), lv("102", "100")}, t0)

	qty := 50 + 4950.0/102
	vwap := 10000 / qty
	want := (vwap - 100.5) / 100.5
	assert.InDelta(t, want, PriceImpact(book, d("10000")), 1e-9)
}

func TestPriceImpactShallowBook(t *testing.T) {
	book := NewOrderBook("X", []Level{lv("100", "50")}, []Level{lv("101", "10")}, t0)
	// only 1010 of notional available: priced at 101, the rest adds nothing
	assert.InDelta(t, 0.5/100.5, PriceImpact(book, d("10000")), 1e-12)
}

func TestAnalyzeDegenerateBooks(t *testing.T) {
	empty := AnalyzeOrderBook(OrderBook{}, AnalyticsConfig{})
	assert.Equal(t, MarketMetrics{}, empty)

	askOnly := NewOrderBook("X", nil, []Level{lv("101", "10")}, t0)
	m := AnalyzeOrderBook(askOnly, AnalyticsConfig{})
	assert.Equal(t, -1.0, m.OrderBookImbalance)
	assert.Zero(t, m.MicrostructureNoise)
	assert.Zero(t, m.EffectiveSpread)
	assert.Zero(t, m.PriceImpact, "ask at the mid has no impact")
}
