package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequencerLastSnapshotWins(t *testing.T) {
	s := NewSequencer(0)
	assert.NoError(t, s.Commit("BTC", 5, t0))
	assert.ErrorIs(t, s.Commit("BTC", 3, t0), ErrStaleSnapshot)
	assert.ErrorIs(t, s.Commit("BTC", 5, t0), ErrStaleSnapshot)
	assert.NoError(t, s.Commit("BTC", 6, t0))
	// 不同 symbol 互不影响
	assert.NoError(t, s.Commit("ETH", 1, t0))

	last, ok := s.Last("BTC")
	assert.True(t, ok)
	assert.Equal(t, uint64(6), last)

	s.Reset("BTC")
	_, ok = s.Last("BTC")
	assert.False(t, ok)
	assert.NoError(t, s.Commit("BTC", 1, t0))
}

func TestSequencerExpiry(t *testing.T) {
	s := NewSequencer(time.Second)
	now := t0
	s.now = func() time.Time { return now }

	assert.NoError(t, s.Commit("BTC", 1, t0))
	now = t0.Add(3 * time.Second)
	assert.ErrorIs(t, s.Commit("BTC", 2, t0.Add(time.Second)), ErrSnapshotExpired)

	last, _ := s.Last("BTC")
	assert.Equal(t, uint64(1), last, "expired snapshot does not advance")
	assert.NoError(t, s.Commit("BTC", 3, now))
	// zero timestamp skips the age check
	assert.NoError(t, s.Commit("BTC", 4, time.Time{}))
}
