package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by BreakerSink while a symbol's breaker is open.
var ErrBreakerOpen = errors.New("publish circuit breaker is open")

// BreakerState 熔断器状态
type BreakerState int

const (
	// BreakerClosed 正常发布
	BreakerClosed BreakerState = iota
	// BreakerOpen 熔断，拒绝发布
	BreakerOpen
	// BreakerHalfOpen 尝试恢复
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	Threshold int           `yaml:"threshold"` // 连续失败次数阈值
	Timeout   time.Duration `yaml:"timeout"`   // 熔断后等待时间
	// HalfOpenSuccesses 半开状态下恢复所需的连续成功次数
	HalfOpenSuccesses int `yaml:"halfOpenSuccesses"`
}

type breaker struct {
	state       BreakerState
	consecutive int
	successes   int
	openedAt    time.Time
}

// BreakerSink wraps a Sink with a per-symbol circuit breaker: after Threshold
// consecutive publish failures the symbol stops publishing for Timeout, then
// lets decisions through again and closes after HalfOpenSuccesses successes.
// Any failure while half-open reopens it.
type BreakerSink struct {
	next Sink
	cfg  BreakerConfig
	now  func() time.Time

	mu       sync.Mutex
	breakers map[string]*breaker
}

// NewBreakerSink wraps next. Zero config fields take defaults (5, 30s, 3).
func NewBreakerSink(next Sink, cfg BreakerConfig) *BreakerSink {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenSuccesses <= 0 {
		cfg.HalfOpenSuccesses = 3
	}
	return &BreakerSink{next: next, cfg: cfg, now: time.Now, breakers: make(map[string]*breaker)}
}

// Publish forwards d unless the symbol's breaker is open.
func (b *BreakerSink) Publish(ctx context.Context, d Decision) error {
	if err := b.allow(d.Symbol); err != nil {
		return err
	}
	err := b.next.Publish(ctx, d)
	b.record(d.Symbol, err)
	return err
}

// State returns the breaker state of symbol.
func (b *BreakerSink) State(symbol string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if br, ok := b.breakers[symbol]; ok {
		return br.state
	}
	return BreakerClosed
}

// Reset closes every breaker.
func (b *BreakerSink) Reset() {
	b.mu.Lock()
	b.breakers = make(map[string]*breaker)
	b.mu.Unlock()
}

func (b *BreakerSink) get(symbol string) *breaker {
	br, ok := b.breakers[symbol]
	if !ok {
		br = &breaker{}
		b.breakers[symbol] = br
	}
	return br
}

func (b *BreakerSink) allow(symbol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	br := b.get(symbol)
	if br.state != BreakerOpen {
		return nil
	}
	if wait := b.cfg.Timeout - b.now().Sub(br.openedAt); wait > 0 {
		return fmt.Errorf("%w: %s, retry in %v", ErrBreakerOpen, symbol, wait)
	}
	br.state = BreakerHalfOpen
	br.successes = 0
	return nil
}

func (b *BreakerSink) record(symbol string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	br := b.get(symbol)
	if err == nil {
		br.consecutive = 0
		if br.state == BreakerHalfOpen {
			br.successes++
			if br.successes >= b.cfg.HalfOpenSuccesses {
				br.state = BreakerClosed
			}
		}
		return
	}
	br.consecutive++
	if br.state == BreakerHalfOpen || br.consecutive >= b.cfg.Threshold {
		br.state = BreakerOpen
		br.openedAt = b.now()
		br.successes = 0
	}
}
