package strategy

import (
	"github.com/shopspring/decimal"
)

// Side represents quote side.
type Side string

const (
	Bid Side = "bid"
	Ask Side = "ask"
)

// No-quote reasons. They are fixed strings so they can label metrics.
const (
	ReasonOneSided        = "order book is one-sided or empty"
	ReasonCrossed         = "order book is crossed"
	ReasonNoMid           = "mid price is not positive"
	ReasonNonFinite       = "non-finite quote values"
	ReasonBidNotPositive  = "bid price is not positive"
	ReasonRoundedCrossed  = "rounded bid is not below rounded ask"
	ReasonSizeNotPositive = "rounded size is not positive"
	ReasonRejectedBook    = "order book rejected"
	ReasonInvalidPosition = "inventory snapshot invalid"
)

// Quote represents a single resting order recommendation.
type Quote struct {
	Price decimal.Decimal
	Size  decimal.Decimal
	Side  Side
}

// MarketMakingStrategy is the two-sided quote recommendation for one tick.
// When Quoted is false no price or size may be used and NoQuoteReason says why.
type MarketMakingStrategy struct {
	Quoted           bool
	BidPrice         decimal.Decimal
	AskPrice         decimal.Decimal
	BidSize          decimal.Decimal
	AskSize          decimal.Decimal
	ReservationPrice decimal.Decimal
	ExpectedProfit   decimal.Decimal
	// SpreadBps is (ask-bid)/mid in basis points.
	SpreadBps float64
	// KellyFraction is the unconstrained Kelly fraction, SafeKelly the applied one.
	KellyFraction float64
	SafeKelly     float64
	RiskScore     float64
	Reasoning     []string
	NoQuoteReason string
}

// Quotes returns the bid and ask legs, or nil for a no-quote result.
func (s MarketMakingStrategy) Quotes() []Quote {
	if !s.Quoted {
		return nil
	}
	return []Quote{
		{Price: s.BidPrice, Size: s.BidSize, Side: Bid},
		{Price: s.AskPrice, Size: s.AskSize, Side: Ask},
	}
}

// NoQuote builds a result that refuses to quote for reason.
func NoQuote(reason string) MarketMakingStrategy { return noQuote(reason, nil) }

func noQuote(reason string, reasoning []string) MarketMakingStrategy {
	return MarketMakingStrategy{
		NoQuoteReason: reason,
		Reasoning:     append(reasoning, "No quote: "+reason),
	}
}
