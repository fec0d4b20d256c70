package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultMaxInventoryRatio caps optimal inventory at 30% of capital.
const DefaultMaxInventoryRatio = 0.3

const minVolatility = 1e-8

// OptimalInventory is the mean-variance target position.
type OptimalInventory struct {
	OptimalQuantity   decimal.Decimal
	OptimalValue      decimal.Decimal
	AllocationPercent float64
	ExpectedUtility   float64
	Capped            bool
}

// InventoryOptimizer computes mean-variance optimal inventory.
type InventoryOptimizer struct {
	// MaxInventoryRatio bounds |qty*price| by ratio*capital; <= 0 uses the default.
	MaxInventoryRatio float64
	SizeDecimals      int32
}

// CalculateOptimalInventory solves q* = μ / (γ σ² P), clamped to
// ±ratio·capital/price, and reports U = μq − γσ²q²/2.
func (o InventoryOptimizer) CalculateOptimalInventory(
	expectedReturn, volatility, riskAversion float64,
	capital, price decimal.Decimal,
) (OptimalInventory, error) {
	if riskAversion <= 0 {
		return OptimalInventory{}, fmt.Errorf("%w: risk aversion must be > 0", ErrInvalidInput)
	}
	if !price.IsPositive() {
		return OptimalInventory{}, fmt.Errorf("%w: price must be > 0", ErrInvalidInput)
	}
	if capital.IsNegative() {
		return OptimalInventory{}, fmt.Errorf("%w: capital must be >= 0", ErrInvalidInput)
	}
	if math.IsNaN(expectedReturn) || math.IsInf(expectedReturn, 0) || math.IsNaN(volatility) || math.IsInf(volatility, 0) {
		return OptimalInventory{}, fmt.Errorf("%w: expected return and volatility must be finite", ErrInvalidInput)
	}
	ratio := o.MaxInventoryRatio
	if ratio <= 0 {
		ratio = DefaultMaxInventoryRatio
	}
	decimals := o.SizeDecimals
	if decimals <= 0 {
		decimals = 8
	}

	sigma := math.Max(math.Abs(volatility), minVolatility)
	variance := sigma * sigma
	px := price.InexactFloat64()

	qty := expectedReturn / (riskAversion * variance * px)
	limit := ratio * capital.InexactFloat64() / px
	capped := false
	if math.Abs(qty) > limit || math.IsInf(qty, 0) {
		qty = math.Copysign(limit, qty)
		capped = true
	}
	quantity := decimal.NewFromFloat(qty).Truncate(decimals)
	q := quantity.InexactFloat64()

	out := OptimalInventory{
		OptimalQuantity: quantity,
		OptimalValue:    quantity.Mul(price),
		ExpectedUtility: expectedReturn*q - riskAversion*variance*q*q/2,
		Capped:          capped,
	}
	if capital.IsPositive() {
		out.AllocationPercent = out.OptimalValue.Div(capital).Mul(hundred).InexactFloat64()
	}
	return out, nil
}
