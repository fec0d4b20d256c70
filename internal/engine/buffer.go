package engine

import "sync"

// TickBuffer is a coalescing per-symbol mailbox: while a symbol's tick waits
// to be processed, a newer tick for it replaces the older one.
type TickBuffer struct {
	mu        sync.Mutex
	pending   map[string]Tick
	order     []string
	ready     chan struct{}
	coalesced uint64
}

// NewTickBuffer creates an empty buffer.
func NewTickBuffer() *TickBuffer {
	return &TickBuffer{pending: make(map[string]Tick), ready: make(chan struct{}, 1)}
}

// Put stores t. It reports whether an unprocessed tick for the same symbol
// was replaced. A tick older than the pending one is dropped.
func (b *TickBuffer) Put(t Tick) bool {
	sym := t.Symbol()
	b.mu.Lock()
	old, exists := b.pending[sym]
	switch {
	case !exists:
		b.pending[sym] = t
		b.order = append(b.order, sym)
	case t.Book.Version() >= old.Book.Version():
		b.pending[sym] = t
		b.coalesced++
	default:
		b.coalesced++
	}
	b.mu.Unlock()
	b.signal()
	return exists
}

// Drain removes and returns all pending ticks in first-arrival order.
func (b *TickBuffer) Drain() []Tick {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.order) == 0 {
		return nil
	}
	out := make([]Tick, 0, len(b.order))
	for _, sym := range b.order {
		out = append(out, b.pending[sym])
		delete(b.pending, sym)
	}
	b.order = b.order[:0]
	return out
}

// Ready is signalled after Put; receivers should Drain.
func (b *TickBuffer) Ready() <-chan struct{} { return b.ready }

// Len returns the number of symbols with a pending tick.
func (b *TickBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

// Coalesced returns how many ticks were superseded before processing.
func (b *TickBuffer) Coalesced() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.coalesced
}

func (b *TickBuffer) signal() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}
