package sim

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quote-engine/internal/engine"
	"quote-engine/inventory"
	"quote-engine/market"
	"quote-engine/posttrade"
	"quote-engine/strategy"
)

// Step 单步模拟结果
type Step struct {
	Decision engine.Decision
	Fills    []posttrade.Fill
}

// Runner 把模拟行情 -> 决策 -> 模拟成交 -> 仓位/盈亏串起来（不连接交易所）。
// NextTick and Publish may be called from different goroutines.
type Runner struct {
	Symbol    string
	Feed      *Feed
	Pipeline  *engine.Pipeline
	Inv       *inventory.Tracker
	Analyzer  *posttrade.Analyzer
	Params    strategy.QuoteParameters
	Target    decimal.Decimal
	HedgeCost decimal.Decimal
	Capital   decimal.Decimal

	mu      sync.Mutex
	resting strategy.MarketMakingStrategy
	restMid decimal.Decimal
	lastMid decimal.Decimal
	unmark  []string
	newID   func() string
}

// NextTick advances the feed, settles the new trades against the resting
// quotes and returns the tick for the next decision.
func (r *Runner) NextTick() (engine.Tick, []posttrade.Fill, error) {
	if r.Feed == nil || r.Inv == nil || r.Analyzer == nil {
		return engine.Tick{}, nil, errors.New("runner not initialized")
	}
	snap := r.Feed.Next()
	mid := snap.Book.MidPrice

	r.mu.Lock()
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	for _, id := range r.unmark {
		r.Analyzer.MarkOut(id, mid)
	}
	r.unmark = r.unmark[:0]
	r.lastMid = mid
	fills := MatchFills(r.resting, r.restMid, snap.New, r.newID)
	for _, f := range fills {
		delta := f.Qty
		if f.Side == market.SideSell {
			delta = delta.Neg()
		}
		r.Inv.Update(delta, f.Price)
		r.Analyzer.OnFill(f)
		r.unmark = append(r.unmark, f.ID)
	}
	r.mu.Unlock()

	return engine.Tick{
		Book:             snap.Book,
		Trades:           snap.Trades,
		Inventory:        r.Inv.Snapshot(mid),
		Params:           r.Params,
		TargetInventory:  r.Target,
		HedgeCostPerUnit: r.HedgeCost,
		Capital:          r.Capital,
	}, fills, nil
}

// Publish rests d's quotes until the next step. It satisfies engine.Sink.
func (r *Runner) Publish(_ context.Context, d engine.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resting = d.Strategy
	r.restMid = r.lastMid
	return nil
}

// OnTick runs one synchronous step.
func (r *Runner) OnTick() (Step, error) {
	if r.Pipeline == nil {
		return Step{}, errors.New("runner not initialized")
	}
	tk, fills, err := r.NextTick()
	if err != nil {
		return Step{}, err
	}
	d, err := r.Pipeline.Process(tk)
	if err != nil {
		return Step{Fills: fills}, err
	}
	_ = r.Publish(context.Background(), d)
	return Step{Decision: d, Fills: fills}, nil
}

// Router dispatches published decisions to the sim runner of their symbol.
type Router map[string]*Runner

// Publish satisfies engine.Sink.
func (m Router) Publish(ctx context.Context, d engine.Decision) error {
	r, ok := m[d.Symbol]
	if !ok {
		return errors.New("no simulated venue for " + d.Symbol)
	}
	return r.Publish(ctx, d)
}
