package risk

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-engine/inventory"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func position(qty string, risk float64) inventory.Position {
	return inventory.Position{Quantity: d(qty), InventoryRisk: risk}
}

func TestHedgeZeroTarget(t *testing.T) {
	h, err := CalculateInventoryHedge(position("1000", 100), d("0"), d("100"), d("0.01"))
	require.NoError(t, err)
	assert.True(t, h.ShouldHedge)
	assert.True(t, h.HedgeAmount.Equal(d("-1000")))
	assert.True(t, h.Deviation.Equal(d("1000")))
	assert.True(t, h.VolatilityRisk.Equal(d("100000")))
	assert.True(t, h.HedgeCost.Equal(d("10")))
	assert.True(t, h.NetBenefit.Equal(d("99990")))
	assert.Equal(t, RecommendHedge, h.Action)
	assert.Contains(t, h.Recommendation, "sell 1000")
}

func TestHedgeBand(t *testing.T) {
	cases := []struct {
		qty   string
		hedge bool
	}{
		{"100", false},
		{"115", false},
		{"120", false},
		{"80", false},
		{"120.01", true},
		{"79.9", true},
		{"-100", true},
	}
	for _, tc := range cases {
		h, err := CalculateInventoryHedge(position(tc.qty, 50), d("100"), d("10"), d("0.001"))
		require.NoError(t, err)
		assert.Equal(t, tc.hedge, h.ShouldHedge, tc.qty)
		if !tc.hedge {
			assert.True(t, h.HedgeAmount.IsZero(), tc.qty)
			assert.True(t, h.HedgeCost.IsZero(), tc.qty)
			assert.Equal(t, RecommendReduceQuoteSize, h.Action, tc.qty)
		} else {
			assert.True(t, h.HedgeAmount.Equal(h.Deviation.Neg()), tc.qty)
		}
	}
}

func TestHedgeShortBuysBack(t *testing.T) {
	h, err := CalculateInventoryHedge(position("-50", 80), d("0"), d("20"), d("0.01"))
	require.NoError(t, err)
	assert.True(t, h.HedgeAmount.Equal(d("50")))
	assert.Equal(t, RecommendHedge, h.Action)
	assert.Contains(t, h.Recommendation, "buy 50")
}

func TestHedgeNotWorthIt(t *testing.T) {
	h, err := CalculateInventoryHedge(position("1000", 0), d("0"), d("100"), d("0.5"))
	require.NoError(t, err)
	assert.True(t, h.ShouldHedge)
	assert.False(t, h.NetBenefit.IsPositive())
	assert.Equal(t, RecommendReduceQuoteSize, h.Action)
}

func TestHedgeRejectsNegativeInputs(t *testing.T) {
	_, err := CalculateInventoryHedge(position("1", 1), d("0"), d("100"), d("-0.01"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = CalculateInventoryHedge(position("1", 1), d("0"), d("-100"), d("0.01"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHedgeRejectsInvalidInventoryRisk(t *testing.T) {
	for _, r := range []float64{math.NaN(), math.Inf(1), -1, 150} {
		var err error
		require.NotPanics(t, func() {
			_, err = CalculateInventoryHedge(position("10", r), d("0"), d("100"), d("0.01"))
		}, "risk %v", r)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, err, inventory.ErrInvalidPosition)
	}
}
