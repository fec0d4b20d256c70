package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"quote-engine/infrastructure/logger"
	"quote-engine/metrics"
	"quote-engine/monitor/logschema"
	"quote-engine/risk"
)

// EngineState 引擎状态
type EngineState int

const (
	// StateIdle 空闲状态
	StateIdle EngineState = iota
	// StateRunning 运行状态
	StateRunning
	// StatePaused 暂停状态，tick 继续在缓冲区合并
	StatePaused
	// StateStopped 停止状态
	StateStopped
)

// String 返回状态名称
func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Sink receives committed decisions, e.g. an order router.
type Sink interface {
	Publish(ctx context.Context, d Decision) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, d Decision) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, d Decision) error { return f(ctx, d) }

// RunnerConfig 运行参数
type RunnerConfig struct {
	// TickInterval 兜底轮询间隔；<= 0 时只依赖 Ready 信号
	TickInterval   time.Duration
	MaxSnapshotAge time.Duration
}

// Components 运行依赖
type Components struct {
	Pipeline *Pipeline
	Sink     Sink
	Logger   *logger.Logger
	// Metrics 可选
	Metrics *metrics.Collector
}

// Statistics 引擎统计信息
type Statistics struct {
	StartTime        time.Time
	TotalTicks       int64
	TotalDecisions   int64
	TotalQuotes      int64
	TotalSuppressed  int64
	TotalStale       int64
	TotalErrors      int64
	LastTickTime     time.Time
	LastDecisionTime time.Time
}

// Runner drains submitted ticks, computes decisions and publishes the ones
// that survive sequencing.
type Runner struct {
	config   RunnerConfig
	pipeline atomic.Pointer[Pipeline]
	buffer   *TickBuffer
	seq      *Sequencer
	sink     Sink
	logger   *logger.Logger
	metrics  *metrics.Collector

	state EngineState
	mu    sync.RWMutex

	stopChan chan struct{}
	doneChan chan struct{}

	statsMu sync.RWMutex
	stats   Statistics
}

// NewRunner 创建 Runner
func NewRunner(cfg RunnerConfig, c Components) (*Runner, error) {
	if c.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if c.Sink == nil {
		return nil, errors.New("sink is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.TickInterval < 0 || cfg.MaxSnapshotAge < 0 {
		return nil, errors.New("intervals must be >= 0")
	}
	r := &Runner{
		config:   cfg,
		buffer:   NewTickBuffer(),
		seq:      NewSequencer(cfg.MaxSnapshotAge),
		sink:     c.Sink,
		logger:   c.Logger,
		metrics:  c.Metrics,
		state:    StateIdle,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	r.pipeline.Store(c.Pipeline)
	return r, nil
}

// SetPipeline swaps the pipeline, e.g. after a config reload. Ticks already
// being processed finish on the old one.
func (r *Runner) SetPipeline(p *Pipeline) {
	if p != nil {
		r.pipeline.Store(p)
	}
}

// Submit queues t, replacing any unprocessed tick for the same symbol.
func (r *Runner) Submit(t Tick) {
	r.buffer.Put(t)
}

// Start 启动引擎
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle && r.state != StateStopped {
		r.mu.Unlock()
		return fmt.Errorf("runner already started (state: %s)", r.state)
	}
	// 如果从 StateStopped 复启，需要重建通道
	if r.state == StateStopped {
		r.stopChan = make(chan struct{})
		r.doneChan = make(chan struct{})
	}
	r.state = StateRunning
	r.mu.Unlock()

	r.statsMu.Lock()
	r.stats.StartTime = time.Now()
	r.statsMu.Unlock()

	r.logger.Info("Quote runner starting",
		zap.Duration("tick_interval", r.config.TickInterval),
		zap.Duration("max_snapshot_age", r.config.MaxSnapshotAge))

	go r.run(ctx, r.stopChan, r.doneChan)
	return nil
}

// Stop 停止引擎并等待主循环退出
func (r *Runner) Stop() error {
	r.mu.Lock()
	if r.state != StateRunning && r.state != StatePaused {
		r.mu.Unlock()
		return fmt.Errorf("runner not running (state: %s)", r.state)
	}
	stop, done := r.stopChan, r.doneChan
	r.mu.Unlock()

	select {
	case <-stop:
	default:
		close(stop)
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		r.logger.Warn("Timeout waiting for runner to stop")
	}

	r.mu.Lock()
	r.state = StateStopped
	r.mu.Unlock()
	r.logger.Info("Quote runner stopped")
	return nil
}

// Pause 暂停处理；新 tick 仍会合并进缓冲区
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return fmt.Errorf("runner not running (state: %s)", r.state)
	}
	r.state = StatePaused
	r.logger.Info("Quote runner paused")
	return nil
}

// Resume 恢复处理
func (r *Runner) Resume() error {
	r.mu.Lock()
	if r.state != StatePaused {
		r.mu.Unlock()
		return fmt.Errorf("runner not paused (state: %s)", r.state)
	}
	r.state = StateRunning
	r.mu.Unlock()
	r.logger.Info("Quote runner resumed")
	r.buffer.signal()
	return nil
}

// run 主事件循环
func (r *Runner) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	var tick <-chan time.Time
	if r.config.TickInterval > 0 {
		ticker := time.NewTicker(r.config.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Context done, stopping runner")
			return
		case <-stop:
			return
		case <-r.buffer.Ready():
			r.drain(ctx)
		case <-tick:
			r.drain(ctx)
		}
	}
}

func (r *Runner) drain(ctx context.Context) {
	if r.GetState() == StatePaused {
		return
	}
	for _, t := range r.buffer.Drain() {
		r.handle(ctx, t)
	}
}

// handle 处理单个 tick：计算、排序校验、发布
func (r *Runner) handle(ctx context.Context, t Tick) {
	sym := t.Symbol()
	started := time.Now()
	r.statsMu.Lock()
	r.stats.TotalTicks++
	r.stats.LastTickTime = started
	r.statsMu.Unlock()

	d, err := r.pipeline.Load().Process(t)
	if r.metrics != nil {
		r.metrics.ObserveTickLatency(time.Since(started))
	}
	if err != nil {
		r.fail(sym, err)
		return
	}

	if err := r.seq.Commit(sym, d.Sequence, t.Book.Timestamp); err != nil {
		reason := "stale"
		if errors.Is(err, ErrSnapshotExpired) {
			reason = "expired"
		}
		r.statsMu.Lock()
		r.stats.TotalStale++
		r.statsMu.Unlock()
		if r.metrics != nil {
			r.metrics.RecordStale(sym, reason)
		}
		r.logger.Event(zapcore.InfoLevel, logschema.EventSnapshotDiscarded, map[string]interface{}{
			"symbol": sym, "sequence": d.Sequence, "reason": reason,
		})
		return
	}

	r.record(t, d)
	if err := r.sink.Publish(ctx, d); err != nil {
		r.fail(sym, fmt.Errorf("publish: %w", err))
	}
}

func (r *Runner) record(t Tick, d Decision) {
	s := d.Strategy
	r.statsMu.Lock()
	r.stats.TotalDecisions++
	r.stats.LastDecisionTime = d.ComputedAt
	if s.Quoted {
		r.stats.TotalQuotes++
	} else {
		r.stats.TotalSuppressed++
	}
	r.statsMu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordMarket(d.Symbol, d.Microprice.Price.InexactFloat64(), d.Metrics.OrderBookImbalance,
			d.Adverse.Score, d.Adverse.VPIN, t.Inventory.InventoryRisk)
		if s.Quoted {
			r.metrics.RecordQuote(d.Symbol, s.ReservationPrice.InexactFloat64(), s.SpreadBps, s.RiskScore, s.SafeKelly)
		} else {
			r.metrics.RecordSuppressed(d.Symbol, s.NoQuoteReason)
		}
		if d.Hedge.ShouldHedge {
			r.metrics.RecordHedge(d.Symbol, string(d.Hedge.Action))
		}
	}

	fields := map[string]interface{}{
		"symbol":     d.Symbol,
		"sequence":   d.Sequence,
		"decision":   d.ID,
		"quoted":     s.Quoted,
		"mid":        t.Book.MidPrice.String(),
		"microprice": d.Microprice.Price.String(),
		"riskScore":  s.RiskScore,
		"adverse":    d.Adverse.Score,
	}
	if s.Quoted {
		fields["bid"] = s.BidPrice.String()
		fields["ask"] = s.AskPrice.String()
		fields["size"] = s.BidSize.String()
		fields["spreadBps"] = s.SpreadBps
	}
	r.logger.LogQuote(fields)

	if !s.Quoted {
		r.logger.LogRisk(map[string]interface{}{"symbol": d.Symbol, "reason": s.NoQuoteReason})
	} else if d.Adverse.IsInformed {
		r.logger.LogRisk(map[string]interface{}{"symbol": d.Symbol, "reason": "informed flow", "signals": d.Adverse.Signals})
	}
	if d.Hedge.ShouldHedge && d.Hedge.Action == risk.RecommendHedge {
		r.logger.LogHedge(map[string]interface{}{
			"symbol":      d.Symbol,
			"action":      string(d.Hedge.Action),
			"hedgeAmount": d.Hedge.HedgeAmount.String(),
			"netBenefit":  d.Hedge.NetBenefit.StringFixed(2),
		})
	}
}

func (r *Runner) fail(sym string, err error) {
	r.statsMu.Lock()
	r.stats.TotalErrors++
	r.statsMu.Unlock()
	if r.metrics != nil {
		r.metrics.RecordError(sym)
	}
	r.logger.LogError(err, map[string]interface{}{"symbol": sym})
}

// GetState 获取引擎状态
func (r *Runner) GetState() EngineState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// GetStatistics 获取统计信息
func (r *Runner) GetStatistics() Statistics {
	r.statsMu.RLock()
	defer r.statsMu.RUnlock()
	return r.stats
}

// Coalesced returns how many submitted ticks were superseded before processing.
func (r *Runner) Coalesced() uint64 { return r.buffer.Coalesced() }
