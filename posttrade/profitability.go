package posttrade

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput marks negative volume or costs.
var ErrInvalidInput = errors.New("invalid profitability input")

var hundred = decimal.NewFromInt(100)

// Profitability 做市盈利汇总。
type Profitability struct {
	GrossProfit decimal.Decimal
	TotalCosts  decimal.Decimal
	NetProfit   decimal.Decimal
	// ProfitMargin and ReturnOnCapital are percentages; zero when the
	// denominator is zero.
	ProfitMargin    decimal.Decimal
	ReturnOnCapital decimal.Decimal
}

// CalculateProfitability aggregates volume, average captured spread and costs.
// NetProfit is exactly GrossProfit - TotalCosts.
func CalculateProfitability(totalVolume, avgSpread, inventoryCost, adverseSelectionCost decimal.Decimal) (Profitability, error) {
	if totalVolume.IsNegative() {
		return Profitability{}, fmt.Errorf("%w: total volume must be >= 0", ErrInvalidInput)
	}
	if inventoryCost.IsNegative() || adverseSelectionCost.IsNegative() {
		return Profitability{}, fmt.Errorf("%w: costs must be >= 0", ErrInvalidInput)
	}

	p := Profitability{
		GrossProfit:     totalVolume.Mul(avgSpread),
		TotalCosts:      inventoryCost.Add(adverseSelectionCost),
		ProfitMargin:    decimal.Zero,
		ReturnOnCapital: decimal.Zero,
	}
	p.NetProfit = p.GrossProfit.Sub(p.TotalCosts)
	if !p.GrossProfit.IsZero() {
		p.ProfitMargin = p.NetProfit.Div(p.GrossProfit).Mul(hundred)
	}
	if !totalVolume.IsZero() {
		p.ReturnOnCapital = p.NetProfit.Div(totalVolume).Mul(hundred)
	}
	return p, nil
}
