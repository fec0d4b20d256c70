package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateOptimalInventory(t *testing.T) {
	var o InventoryOptimizer
	res, err := o.CalculateOptimalInventory(0.01, 0.1, 2, d("100000"), d("100"))
	require.NoError(t, err)
	assert.InDelta(t, 0.005, res.OptimalQuantity.InexactFloat64(), 1e-12)
	assert.InDelta(t, 0.5, res.OptimalValue.InexactFloat64(), 1e-10)
	assert.InDelta(t, 0.0005, res.AllocationPercent, 1e-10)
	assert.InDelta(t, 0.01*0.005-2*0.01*0.005*0.005/2, res.ExpectedUtility, 1e-15)
	assert.False(t, res.Capped)
}

func TestOptimalInventoryCapped(t *testing.T) {
	var o InventoryOptimizer
	res, err := o.CalculateOptimalInventory(1, 0.01, 0.1, d("100000"), d("100"))
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.InDelta(t, 300, res.OptimalQuantity.InexactFloat64(), 1e-9)
	assert.InDelta(t, 30000, res.OptimalValue.InexactFloat64(), 1e-6)
	assert.InDelta(t, 30, res.AllocationPercent, 1e-9)

	res, err = o.CalculateOptimalInventory(-1, 0.01, 0.1, d("100000"), d("100"))
	require.NoError(t, err)
	assert.InDelta(t, -300, res.OptimalQuantity.InexactFloat64(), 1e-9)
}

func TestOptimalInventoryCustomRatio(t *testing.T) {
	o := InventoryOptimizer{MaxInventoryRatio: 0.1, SizeDecimals: 2}
	res, err := o.CalculateOptimalInventory(1, 0.01, 0.1, d("100000"), d("100"))
	require.NoError(t, err)
	assert.InDelta(t, 100, res.OptimalQuantity.InexactFloat64(), 1e-9)
	assert.InDelta(t, 10, res.AllocationPercent, 1e-9)
}

func TestOptimalInventoryZeroVolatility(t *testing.T) {
	var o InventoryOptimizer
	res, err := o.CalculateOptimalInventory(0.01, 0, 2, d("1000"), d("10"))
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.False(t, math.IsNaN(res.ExpectedUtility))
	assert.InDelta(t, 30, res.OptimalQuantity.InexactFloat64(), 1e-9)
}

func TestOptimalInventoryInvalid(t *testing.T) {
	var o InventoryOptimizer
	for name, call := range map[string]func() error{
		"gamma":   func() error { _, err := o.CalculateOptimalInventory(0.01, 0.1, 0, d("1"), d("1")); return err },
		"price":   func() error { _, err := o.CalculateOptimalInventory(0.01, 0.1, 1, d("1"), d("0")); return err },
		"capital": func() error { _, err := o.CalculateOptimalInventory(0.01, 0.1, 1, d("-1"), d("1")); return err },
		"nan":     func() error { _, err := o.CalculateOptimalInventory(math.NaN(), 0.1, 1, d("1"), d("1")); return err },
	} {
		assert.ErrorIs(t, call(), ErrInvalidInput, name)
	}
}
