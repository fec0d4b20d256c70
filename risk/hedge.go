package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"quote-engine/inventory"
)

// Recommendation is the action suggested by CalculateInventoryHedge.
type Recommendation string

const (
	RecommendHedge           Recommendation = "HEDGE"
	RecommendReduceQuoteSize Recommendation = "REDUCE_QUOTE_SIZE"
)

// HedgeBand is the tolerated deviation as a fraction of |target|.
var HedgeBand = decimal.RequireFromString("0.2")

var hundred = decimal.NewFromInt(100)

// HedgeDecision 对冲评估结果。
type HedgeDecision struct {
	ShouldHedge bool
	// HedgeAmount is the signed quantity to trade to restore the target
	// (negative = sell); zero when ShouldHedge is false.
	HedgeAmount    decimal.Decimal
	Deviation      decimal.Decimal
	VolatilityRisk decimal.Decimal
	HedgeCost      decimal.Decimal
	NetBenefit     decimal.Decimal
	Action         Recommendation
	Recommendation string
}

// CalculateInventoryHedge decides whether the deviation from target inventory
// is worth hedging.
//
// The band check is |deviation| > 0.2*|target|. A zero target therefore
// hedges any nonzero inventory.
func CalculateInventoryHedge(
	inv inventory.Position,
	targetInventory decimal.Decimal,
	marketPrice decimal.Decimal,
	hedgeCostPerUnit decimal.Decimal,
) (HedgeDecision, error) {
	if hedgeCostPerUnit.IsNegative() {
		return HedgeDecision{}, fmt.Errorf("%w: hedge cost per unit must be >= 0", ErrInvalidInput)
	}
	if marketPrice.IsNegative() {
		return HedgeDecision{}, fmt.Errorf("%w: market price must be >= 0", ErrInvalidInput)
	}
	if err := inv.Validate(); err != nil {
		return HedgeDecision{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	deviation := inv.Quantity.Sub(targetInventory)
	absDev := deviation.Abs()
	riskFraction := decimal.NewFromFloat(inv.InventoryRisk).Div(hundred)

	out := HedgeDecision{
		Deviation:      deviation,
		ShouldHedge:    absDev.GreaterThan(targetInventory.Abs().Mul(HedgeBand)),
		VolatilityRisk: absDev.Mul(marketPrice).Mul(riskFraction),
		HedgeAmount:    decimal.Zero,
		HedgeCost:      decimal.Zero,
	}
	if out.ShouldHedge {
		out.HedgeAmount = deviation.Neg()
		out.HedgeCost = absDev.Mul(hedgeCostPerUnit)
	}
	out.NetBenefit = out.VolatilityRisk.Sub(out.HedgeCost)

	switch {
	case out.ShouldHedge && out.NetBenefit.IsPositive():
		out.Action = RecommendHedge
		side := "sell"
		if out.HedgeAmount.IsPositive() {
			side = "buy"
		}
		out.Recommendation = fmt.Sprintf("Hedge: %s %s units, net benefit %s",
			side, out.HedgeAmount.Abs().String(), out.NetBenefit.StringFixed(2))
	case out.ShouldHedge:
		out.Action = RecommendReduceQuoteSize
		out.Recommendation = fmt.Sprintf("Hedge cost %s exceeds volatility risk %s: reduce quoted size instead",
			out.HedgeCost.StringFixed(2), out.VolatilityRisk.StringFixed(2))
	default:
		out.Action = RecommendReduceQuoteSize
		out.Recommendation = "Inventory within tolerance band: reduce quoted size on the heavy side instead of hedging"
	}
	return out, nil
}
