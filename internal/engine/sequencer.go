package engine

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrStaleSnapshot 同一 symbol 已提交过更新的快照
	ErrStaleSnapshot = errors.New("stale snapshot")
	// ErrSnapshotExpired 快照在提交时已超过 MaxSnapshotAge
	ErrSnapshotExpired = errors.New("snapshot expired")
)

// Sequencer enforces last-snapshot-wins per symbol: a decision computed from
// an older snapshot than one already committed is discarded.
type Sequencer struct {
	mu   sync.Mutex
	last map[string]uint64
	// MaxSnapshotAge > 0 rejects decisions whose snapshot is older than this at commit.
	MaxSnapshotAge time.Duration
	now            func() time.Time
}

// NewSequencer creates a sequencer.
func NewSequencer(maxAge time.Duration) *Sequencer {
	return &Sequencer{last: make(map[string]uint64), MaxSnapshotAge: maxAge, now: time.Now}
}

// Commit admits version for symbol. Versions must strictly increase; an
// expired snapshot does not advance the symbol's version.
func (s *Sequencer) Commit(symbol string, version uint64, snapshotAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.last[symbol]; ok && version <= last {
		return ErrStaleSnapshot
	}
	if s.MaxSnapshotAge > 0 && !snapshotAt.IsZero() && s.now().Sub(snapshotAt) > s.MaxSnapshotAge {
		return ErrSnapshotExpired
	}
	s.last[symbol] = version
	return nil
}

// Last returns the last committed version for symbol.
func (s *Sequencer) Last(symbol string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.last[symbol]
	return v, ok
}

// Reset forgets symbol, e.g. after a feed resync restarts its sequence.
func (s *Sequencer) Reset(symbol string) {
	s.mu.Lock()
	delete(s.last, symbol)
	s.mu.Unlock()
}
