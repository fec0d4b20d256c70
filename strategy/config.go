package strategy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidParameters marks rejected configuration, as opposed to degenerate
// market data which never produces an error.
var ErrInvalidParameters = errors.New("invalid quote parameters")

// QuoteParameters is the per-call tuning supplied by the strategy layer.
type QuoteParameters struct {
	BaseSpreadBps         float64 `yaml:"baseSpreadBps"`
	InventorySkew         float64 `yaml:"inventorySkew"`
	VolatilityAdjustment  float64 `yaml:"volatilityAdjustment"`
	CompetitionAdjustment float64 `yaml:"competitionAdjustment"`
	MinProfitBps          float64 `yaml:"minProfitBps"`
}

// DefaultQuoteParameters returns default parameters.
func DefaultQuoteParameters() QuoteParameters {
	return QuoteParameters{
		BaseSpreadBps:         10,
		InventorySkew:         0.5,
		VolatilityAdjustment:  1,
		CompetitionAdjustment: 0.1,
		MinProfitBps:          2,
	}
}

// Validate checks if the QuoteParameters are usable.
func (p QuoteParameters) Validate() error {
	if p.BaseSpreadBps < 0 {
		return invalid("baseSpreadBps must be >= 0")
	}
	if p.InventorySkew < 0 {
		return invalid("inventorySkew must be >= 0")
	}
	if p.VolatilityAdjustment < 0 {
		return invalid("volatilityAdjustment must be >= 0")
	}
	if p.CompetitionAdjustment < 0 || p.CompetitionAdjustment >= 1 {
		return invalid("competitionAdjustment must be in [0,1)")
	}
	if p.MinProfitBps < 0 {
		return invalid("minProfitBps must be >= 0")
	}
	return nil
}

// ModelConfig holds the constants of the Avellaneda–Stoikov model and the
// output precision.
type ModelConfig struct {
	// RiskAversion is γ.
	RiskAversion float64 `yaml:"riskAversion"`
	// OrderArrivalIntensity is k.
	OrderArrivalIntensity float64         `yaml:"orderArrivalIntensity"`
	BaseOrderSize         decimal.Decimal `yaml:"baseOrderSize"`
	KellyFraction         float64         `yaml:"kellyFraction"`
	// MaxKellyFraction caps the applied Kelly fraction; 0 leaves it uncapped.
	MaxKellyFraction float64 `yaml:"maxKellyFraction"`
	PriceDecimals    int32   `yaml:"priceDecimals"`
	SizeDecimals     int32   `yaml:"sizeDecimals"`
	// Liquidity below this adds to the risk score.
	LowLiquidity float64 `yaml:"lowLiquidity"`
}

// DefaultModelConfig returns a default config.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		RiskAversion:          0.1,
		OrderArrivalIntensity: 0.1,
		BaseOrderSize:         decimal.NewFromInt(100),
		KellyFraction:         0.25,
		PriceDecimals:         8,
		SizeDecimals:          8,
		LowLiquidity:          50000,
	}
}

// Validate checks if the ModelConfig is usable.
func (c ModelConfig) Validate() error {
	if c.RiskAversion <= 0 {
		return invalid("riskAversion must be > 0")
	}
	if c.OrderArrivalIntensity < 0 {
		return invalid("orderArrivalIntensity must be >= 0")
	}
	if !c.BaseOrderSize.IsPositive() {
		return invalid("baseOrderSize must be > 0")
	}
	if c.KellyFraction <= 0 || c.KellyFraction > 1 {
		return invalid("kellyFraction must be in (0,1]")
	}
	if c.MaxKellyFraction < 0 {
		return invalid("maxKellyFraction must be >= 0")
	}
	if c.PriceDecimals < 0 || c.SizeDecimals < 0 {
		return invalid("decimals must be >= 0")
	}
	if c.LowLiquidity < 0 {
		return invalid("lowLiquidity must be >= 0")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameters, msg)
}
