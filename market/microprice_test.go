package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMicropriceBalanced(t *testing.T) {
	book := NewOrderBook("X", []Level{lv("100", "50")}, []Level{lv("101", "50")}, t0)
	mp := EstimateMicroprice(book)
	assert.True(t, mp.Price.Equal(d("100.5")), "got %s", mp.Price)
	assert.Equal(t, 100.0, mp.Confidence)
	assert.Zero(t, mp.Deviation)
}

func TestMicropriceLeansTowardThinSide(t *testing.T) {
	// heavy bid, thin ask: fair value sits near the ask
	book := NewOrderBook("X", []Level{lv("100", "90")}, []Level{lv("101", "10")}, t0)
	mp := EstimateMicroprice(book)
	assert.True(t, mp.Price.Equal(d("100.9")), "got %s", mp.Price)
	assert.InDelta(t, 100.0*10/90, mp.Confidence, 1e-9)
	assert.InDelta(t, 0.4/100.5, mp.Deviation, 1e-12)
}

func TestMicropriceDegenerate(t *testing.T) {
	book := NewOrderBook("X", []Level{lv("100", "5")}, nil, t0)
	mp := EstimateMicroprice(book)
	assert.True(t, mp.Price.Equal(book.MidPrice))
	assert.Zero(t, mp.Confidence)
}
