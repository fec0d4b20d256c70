package strategy

import (
	"math"

	"quote-engine/market"
)

// RiskScore rates a quote from 0 to 100. Contributions are additive:
// tight spreads, inventory risk, volatility, thin books and imbalance.
// A non-finite input scores 100.
func RiskScore(spreadRatio, inventoryRisk float64, m market.MarketMetrics, lowLiquidity float64) float64 {
	score := 0.0
	switch {
	case spreadRatio < 0.001:
		score += 30
	case spreadRatio < 0.002:
		score += 15
	}
	score += inventoryRisk * 0.4
	switch {
	case m.Volatility > 0.05:
		score += 20
	case m.Volatility > 0.03:
		score += 10
	}
	if m.Liquidity < lowLiquidity {
		score += 15
	}
	score += math.Abs(m.OrderBookImbalance) * 15
	if math.IsNaN(score) || math.IsNaN(spreadRatio) || math.IsNaN(m.Volatility) || math.IsNaN(m.Liquidity) {
		return 100
	}
	return math.Max(0, math.Min(score, 100))
}
