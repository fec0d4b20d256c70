package market

import "github.com/shopspring/decimal"

// Microprice is a top-of-book volume weighted fair price estimate.
type Microprice struct {
	Price decimal.Decimal
	// Confidence = min(bidQty, askQty) / max(bidQty, askQty) * 100.
	Confidence float64
	// Deviation = |microprice - mid| / mid.
	Deviation float64
}

// EstimateMicroprice weights each best price by the opposite side's size.
// A book missing either side returns the mid with zero confidence.
func EstimateMicroprice(book OrderBook) Microprice {
	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if !okBid || !okAsk {
		return Microprice{Price: book.MidPrice}
	}
	totalQty := bid.Quantity.Add(ask.Quantity)
	if !totalQty.IsPositive() {
		return Microprice{Price: book.MidPrice}
	}

	price := bid.Price.Mul(ask.Quantity).Add(ask.Price.Mul(bid.Quantity)).Div(totalQty)
	small := decimal.Min(bid.Quantity, ask.Quantity)
	large := decimal.Max(bid.Quantity, ask.Quantity)

	mp := Microprice{
		Price:      price,
		Confidence: small.Div(large).Mul(decimal.NewFromInt(100)).InexactFloat64(),
	}
	if book.MidPrice.IsPositive() {
		mp.Deviation = price.Sub(book.MidPrice).Abs().Div(book.MidPrice).InexactFloat64()
	}
	return mp
}
