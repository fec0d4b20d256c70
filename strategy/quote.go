package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"quote-engine/inventory"
	"quote-engine/market"
)

const (
	// DefaultHorizon is T when the caller passes zero.
	DefaultHorizon = 300 * time.Second

	epsilon            = 1e-8
	skewPerUnit        = 0.001
	imbalanceNotable   = 0.3
	highVolatilityNote = 0.03
)

// Calculator derives Avellaneda–Stoikov style quotes. It holds only its
// immutable model config and is safe for concurrent use.
type Calculator struct {
	cfg ModelConfig
}

// NewCalculator validates cfg and returns a calculator.
func NewCalculator(cfg ModelConfig) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{cfg: cfg}, nil
}

// Config returns the model config.
func (c *Calculator) Config() ModelConfig { return c.cfg }

// CalculateOptimalQuotes turns a book, an inventory snapshot and the tick's
// metrics into bid/ask prices and sizes.
//
// Invalid params or horizon are returned as errors wrapping
// ErrInvalidParameters. Degenerate market data (one-sided or crossed book,
// non-finite intermediate values, non-positive prices) yields a result with
// Quoted=false and a nil error.
func (c *Calculator) CalculateOptimalQuotes(
	book market.OrderBook,
	inv inventory.Position,
	metrics market.MarketMetrics,
	params QuoteParameters,
	horizon time.Duration,
) (MarketMakingStrategy, error) {
	if err := params.Validate(); err != nil {
		return MarketMakingStrategy{}, err
	}
	if horizon < 0 {
		return MarketMakingStrategy{}, invalid("time horizon must be >= 0")
	}
	if horizon == 0 {
		horizon = DefaultHorizon
	}

	var reasoning []string
	switch {
	case !book.TwoSided():
		return noQuote(ReasonOneSided, reasoning), nil
	case book.Crossed():
		return noQuote(ReasonCrossed, reasoning), nil
	case !book.MidPrice.IsPositive():
		return noQuote(ReasonNoMid, reasoning), nil
	case inv.Validate() != nil:
		return noQuote(ReasonInvalidPosition, reasoning), nil
	}

	mid := book.MidPrice.InexactFloat64()
	sigma := math.Max(metrics.Volatility, epsilon)
	gamma := c.cfg.RiskAversion
	k := math.Max(c.cfg.OrderArrivalIntensity, epsilon)
	T := horizon.Seconds()
	q := inv.Quantity.InexactFloat64()
	variance := sigma * sigma

	reservation := mid - q*gamma*variance*T

	spread := gamma*variance*T + (2/gamma)*math.Log(1+gamma/k)
	if floor := mid * params.BaseSpreadBps / 10000; spread < floor {
		spread = floor
		reasoning = append(reasoning, fmt.Sprintf("Spread floored at base spread of %.2f bps", params.BaseSpreadBps))
	}
	spread *= 1 + params.VolatilityAdjustment*sigma
	if params.VolatilityAdjustment > 0 && metrics.Volatility > highVolatilityNote {
		reasoning = append(reasoning, fmt.Sprintf("High volatility (%.4f): widening spread by %.2f%%",
			metrics.Volatility, params.VolatilityAdjustment*sigma*100))
	}
	spread *= 1 - params.CompetitionAdjustment
	if params.CompetitionAdjustment > 0 {
		reasoning = append(reasoning, fmt.Sprintf("Competitive market: tightening spread by %.2f%%",
			params.CompetitionAdjustment*100))
	}

	skew := params.InventorySkew * math.Abs(q) * skewPerUnit
	half := spread / 2
	var bid, ask float64
	switch {
	case q > 0:
		bid = reservation - half - skew
		ask = reservation + half - skew/2
		reasoning = append(reasoning, fmt.Sprintf("Long inventory (%s): skewing quotes down by %.6f to encourage selling",
			inv.Quantity.String(), skew))
	case q < 0:
		bid = reservation - half + skew/2
		ask = reservation + half + skew
		reasoning = append(reasoning, fmt.Sprintf("Short inventory (%s): skewing quotes up by %.6f to encourage buying",
			inv.Quantity.String(), skew))
	default:
		bid = reservation - half
		ask = reservation + half
	}

	if minWidth := mid * params.MinProfitBps / 10000; ask-bid < minWidth {
		widen := (minWidth - (ask - bid)) / 2
		bid -= widen
		ask += widen
		reasoning = append(reasoning, fmt.Sprintf("Widened to minimum profit of %.2f bps", params.MinProfitBps))
	}

	imb := metrics.OrderBookImbalance
	if math.Abs(imb) > imbalanceNotable {
		dir := "bid-heavy"
		if imb < 0 {
			dir = "ask-heavy"
		}
		reasoning = append(reasoning, fmt.Sprintf("Order book imbalance %.2f (%s): risk score raised", imb, dir))
	}
	if metrics.Liquidity < c.cfg.LowLiquidity {
		reasoning = append(reasoning, fmt.Sprintf("Low liquidity (%.0f): quote with caution", metrics.Liquidity))
	}

	edge := spread / mid
	kelly := edge / variance
	safeKelly := kelly * c.cfg.KellyFraction
	if c.cfg.MaxKellyFraction > 0 && safeKelly > c.cfg.MaxKellyFraction {
		safeKelly = c.cfg.MaxKellyFraction
		reasoning = append(reasoning, fmt.Sprintf("Kelly fraction capped at %.4f", c.cfg.MaxKellyFraction))
	}
	sizeMult := 1 + safeKelly

	if !finite(reservation, spread, bid, ask, kelly, safeKelly, sizeMult) {
		return noQuote(ReasonNonFinite, reasoning), nil
	}
	if bid <= 0 {
		reasoning = append(reasoning, fmt.Sprintf("Bid %.8f below zero", bid))
		return noQuote(ReasonBidNotPositive, reasoning), nil
	}

	bidPx := decimal.NewFromFloat(bid).RoundFloor(c.cfg.PriceDecimals)
	askPx := decimal.NewFromFloat(ask).RoundCeil(c.cfg.PriceDecimals)
	size := c.cfg.BaseOrderSize.Mul(decimal.NewFromFloat(sizeMult)).RoundFloor(c.cfg.SizeDecimals)
	if !bidPx.IsPositive() || !bidPx.LessThan(askPx) {
		return noQuote(ReasonRoundedCrossed, reasoning), nil
	}
	if !size.IsPositive() {
		return noQuote(ReasonSizeNotPositive, reasoning), nil
	}

	out := MarketMakingStrategy{
		Quoted:           true,
		BidPrice:         bidPx,
		AskPrice:         askPx,
		BidSize:          size,
		AskSize:          size,
		ReservationPrice: decimal.NewFromFloat(reservation).Round(c.cfg.PriceDecimals),
		KellyFraction:    kelly,
		SafeKelly:        safeKelly,
		Reasoning:        reasoning,
	}
	width := askPx.Sub(bidPx)
	out.ExpectedProfit = width.Mul(decimal.Min(out.BidSize, out.AskSize))
	spreadRatio := width.Div(book.MidPrice).InexactFloat64()
	out.SpreadBps = spreadRatio * 10000
	out.RiskScore = RiskScore(spreadRatio, inv.InventoryRisk, metrics, c.cfg.LowLiquidity)
	return out, nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
