package market

import (
	"math"

	"github.com/shopspring/decimal"
)

// AnalyticsConfig 盘口分析参数。
type AnalyticsConfig struct {
	// ImpactNotional is the notional walked through the asks to measure price impact.
	ImpactNotional decimal.Decimal `yaml:"impactNotional"`
	// EffectiveSpreadLevels is the number of level pairs used for the effective spread.
	EffectiveSpreadLevels int `yaml:"effectiveSpreadLevels"`
}

// DefaultAnalyticsConfig returns a default config.
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		ImpactNotional:        decimal.NewFromInt(10000),
		EffectiveSpreadLevels: 5,
	}
}

func (c AnalyticsConfig) withDefaults() AnalyticsConfig {
	def := DefaultAnalyticsConfig()
	if !c.ImpactNotional.IsPositive() {
		c.ImpactNotional = def.ImpactNotional
	}
	if c.EffectiveSpreadLevels <= 0 {
		c.EffectiveSpreadLevels = def.EffectiveSpreadLevels
	}
	return c
}

// MarketMetrics is derived from one snapshot and recomputed every tick.
type MarketMetrics struct {
	Volatility          float64
	Liquidity           float64
	BidLiquidity        float64
	AskLiquidity        float64
	OrderBookImbalance  float64
	MicrostructureNoise float64
	EffectiveSpread     float64
	PriceImpact         float64
}

// AnalyzeOrderBook derives liquidity, imbalance, volatility and microstructure
// metrics. It never fails: missing sides yield zero-valued fields.
func AnalyzeOrderBook(book OrderBook, cfg AnalyticsConfig) MarketMetrics {
	cfg = cfg.withDefaults()

	bidLiq := SideLiquidity(book.Bids, 0)
	askLiq := SideLiquidity(book.Asks, 0)
	bidF := bidLiq.InexactFloat64()
	askF := askLiq.InexactFloat64()

	m := MarketMetrics{
		Liquidity:          bidLiq.Add(askLiq).InexactFloat64(),
		BidLiquidity:       bidF,
		AskLiquidity:       askF,
		OrderBookImbalance: CalculateImbalance(bidF, askF),
		// spreadBps/100 stands in for a realized-variance estimate.
		Volatility: book.SpreadBps.InexactFloat64() / 100,
	}

	if book.TwoSided() && book.MidPrice.IsPositive() {
		m.MicrostructureNoise = book.Asks[0].Price.Sub(book.Bids[0].Price).
			Div(book.MidPrice).InexactFloat64()
	}
	m.EffectiveSpread = effectiveSpread(book, cfg.EffectiveSpreadLevels)
	m.PriceImpact = PriceImpact(book, cfg.ImpactNotional)
	return m
}

// effectiveSpread is the spread of the top level pairs weighted by
// min(bidQty, askQty).
func effectiveSpread(book OrderBook, levels int) float64 {
	if !book.MidPrice.IsPositive() {
		return 0
	}
	n := min(len(book.Bids), len(book.Asks), levels)
	weighted := decimal.Zero
	weights := decimal.Zero
	for i := 0; i < n; i++ {
		bid, ask := book.Bids[i], book.Asks[i]
		w := decimal.Min(bid.Quantity, ask.Quantity)
		spread := ask.Price.Sub(bid.Price).Div(book.MidPrice)
		weighted = weighted.Add(w.Mul(spread))
		weights = weights.Add(w)
	}
	if !weights.IsPositive() {
		return 0
	}
	return weighted.Div(weights).InexactFloat64()
}

// PriceImpact walks the asks from the best price until notional is consumed
// and returns (vwap - mid) / mid. When the book is shallower than notional
// only the filled part is priced; the unfilled remainder adds no cost.
func PriceImpact(book OrderBook, notional decimal.Decimal) float64 {
	if len(book.Asks) == 0 || !book.MidPrice.IsPositive() || !notional.IsPositive() {
		return 0
	}
	remaining := notional
	cost := decimal.Zero
	filled := decimal.Zero
	for _, lv := range book.Asks {
		if !remaining.IsPositive() {
			break
		}
		if !lv.Price.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, lv.Notional())
		cost = cost.Add(take)
		filled = filled.Add(take.Div(lv.Price))
		remaining = remaining.Sub(take)
	}
	if !filled.IsPositive() {
		return 0
	}
	vwap := cost.Div(filled)
	impact := vwap.Sub(book.MidPrice).Div(book.MidPrice).InexactFloat64()
	if math.IsNaN(impact) || math.IsInf(impact, 0) {
		return 0
	}
	return impact
}
