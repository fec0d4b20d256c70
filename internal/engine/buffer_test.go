package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickBufferCoalesces(t *testing.T) {
	b := NewTickBuffer()
	assert.False(t, b.Put(tick("BTC", 1)))
	assert.False(t, b.Put(tick("ETH", 1)))
	assert.True(t, b.Put(tick("BTC", 3)))
	// older than pending: dropped
	assert.True(t, b.Put(tick("BTC", 2)))
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, uint64(2), b.Coalesced())

	select {
	case <-b.Ready():
	default:
		t.Fatal("expected ready signal")
	}

	ticks := b.Drain()
	require.Len(t, ticks, 2)
	assert.Equal(t, "BTC", ticks[0].Symbol())
	assert.Equal(t, uint64(3), ticks[0].Book.Version())
	assert.Equal(t, "ETH", ticks[1].Symbol())
	assert.Nil(t, b.Drain())
	assert.Zero(t, b.Len())
}

func TestTickBufferConcurrentPut(t *testing.T) {
	b := NewTickBuffer()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 1; i <= 100; i++ {
				b.Put(tick(fmt.Sprintf("S%d", w%4), uint64(i)))
			}
		}(w)
	}
	wg.Wait()

	ticks := b.Drain()
	require.Len(t, ticks, 4)
	for _, tk := range ticks {
		assert.Equal(t, uint64(100), tk.Book.Version(), tk.Symbol())
	}
}
