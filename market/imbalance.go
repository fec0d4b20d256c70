package market

import "github.com/shopspring/decimal"

// CalculateImbalance calculates the imbalance between bid and ask liquidity.
// Imbalance = (Bid - Ask) / (Bid + Ask), 0 when both sides are empty.
func CalculateImbalance(bidLiquidity, askLiquidity float64) float64 {
	total := bidLiquidity + askLiquidity
	if total <= 0 {
		return 0
	}
	imb := (bidLiquidity - askLiquidity) / total
	switch {
	case imb > 1:
		return 1
	case imb < -1:
		return -1
	}
	return imb
}

// SideLiquidity sums price*qty over the first n levels (all levels when n <= 0).
func SideLiquidity(levels []Level, n int) decimal.Decimal {
	total := decimal.Zero
	for i, lv := range levels {
		if n > 0 && i >= n {
			break
		}
		total = total.Add(lv.Notional())
	}
	return total
}

// CalculateImbalanceFromOrderBook computes notional imbalance over the top
// levels of the book; levels <= 0 means the full book.
func CalculateImbalanceFromOrderBook(book OrderBook, levels int) float64 {
	bid := SideLiquidity(book.Bids, levels).InexactFloat64()
	ask := SideLiquidity(book.Asks, levels).InexactFloat64()
	return CalculateImbalance(bid, ask)
}
