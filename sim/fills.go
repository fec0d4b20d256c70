package sim

import (
	"github.com/shopspring/decimal"

	"quote-engine/market"
	"quote-engine/posttrade"
	"quote-engine/strategy"
)

// MatchFills fills resting quotes against aggressive trades: a sell at or
// below our bid hits the bid, a buy at or above our ask lifts the ask. Each
// side fills at most its quoted size.
func MatchFills(s strategy.MarketMakingStrategy, mid decimal.Decimal, trades []market.Trade, newID func() string) []posttrade.Fill {
	if !s.Quoted {
		return nil
	}
	bidLeft, askLeft := s.BidSize, s.AskSize
	var fills []posttrade.Fill
	for _, tr := range trades {
		switch {
		case tr.Side == market.SideSell && tr.Price.LessThanOrEqual(s.BidPrice) && bidLeft.IsPositive():
			qty := decimal.Min(tr.Size, bidLeft)
			bidLeft = bidLeft.Sub(qty)
			fills = append(fills, posttrade.Fill{
				ID: newID(), Side: market.SideBuy, Price: s.BidPrice, Qty: qty, MidAtFill: mid, Time: tr.Ts,
			})
		case tr.Side == market.SideBuy && tr.Price.GreaterThanOrEqual(s.AskPrice) && askLeft.IsPositive():
			qty := decimal.Min(tr.Size, askLeft)
			askLeft = askLeft.Sub(qty)
			fills = append(fills, posttrade.Fill{
				ID: newID(), Side: market.SideSell, Price: s.AskPrice, Qty: qty, MidAtFill: mid, Time: tr.Ts,
			})
		}
	}
	return fills
}
