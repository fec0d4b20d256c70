package posttrade

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"quote-engine/market"
)

// Fill is one execution of our resting quote. Side is our side of the trade:
// SideBuy means our bid was hit.
type Fill struct {
	ID        string
	Side      market.Side
	Price     decimal.Decimal
	Qty       decimal.Decimal
	MidAtFill decimal.Decimal
	Time      time.Time
}

// FillRecord represents a record of a filled order
type FillRecord struct {
	Fill
	MidAfter decimal.Decimal
	MarkedAt time.Time
}

// Stats contains statistics computed by the analyzer
type Stats struct {
	TotalFills           int
	MarkedFills          int
	AdverseFills         int
	AdverseSelectionRate float64
	TotalVolume          decimal.Decimal
}

// Analyzer collects realized fills off the quoting path and reports
// aggregate profitability.
type Analyzer struct {
	mu            sync.RWMutex
	fills         map[string]*FillRecord
	inventoryCost decimal.Decimal
	now           func() time.Time
}

// NewAnalyzer creates a new post-trade analyzer
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		fills: make(map[string]*FillRecord),
		now:   time.Now,
	}
}

// OnFill records a filled order
func (a *Analyzer) OnFill(f Fill) {
	if f.Time.IsZero() {
		f.Time = a.now()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fills[f.ID] = &FillRecord{Fill: f}
}

// MarkOut records the mid observed some time after the fill. It returns
// false for an unknown fill.
func (a *Analyzer) MarkOut(id string, mid decimal.Decimal) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.fills[id]
	if !ok {
		return false
	}
	rec.MidAfter = mid
	rec.MarkedAt = a.now()
	return true
}

// AddInventoryCost accrues carrying or hedging cost; negative amounts are ignored.
func (a *Analyzer) AddInventoryCost(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	a.mu.Lock()
	a.inventoryCost = a.inventoryCost.Add(amount)
	a.mu.Unlock()
}

// Run consumes fills until ctx is done or the channel is closed.
func (a *Analyzer) Run(ctx context.Context, fills <-chan Fill) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-fills:
			if !ok {
				return nil
			}
			a.OnFill(f)
		}
	}
}

// adverseCost is the mid move against us between fill and markout, times qty.
func adverseCost(rec *FillRecord) decimal.Decimal {
	if rec.MarkedAt.IsZero() {
		return decimal.Zero
	}
	move := rec.MidAfter.Sub(rec.MidAtFill)
	if rec.Side == market.SideBuy {
		move = move.Neg()
	}
	if !move.IsPositive() {
		return decimal.Zero
	}
	return move.Mul(rec.Qty)
}

// Stats computes and returns statistics
func (a *Analyzer) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Stats{TotalFills: len(a.fills), TotalVolume: decimal.Zero}
	for _, rec := range a.fills {
		s.TotalVolume = s.TotalVolume.Add(rec.Price.Mul(rec.Qty))
		if rec.MarkedAt.IsZero() {
			continue
		}
		s.MarkedFills++
		if adverseCost(rec).IsPositive() {
			s.AdverseFills++
		}
	}
	if s.MarkedFills > 0 {
		s.AdverseSelectionRate = float64(s.AdverseFills) / float64(s.MarkedFills)
	}
	return s
}

// Report aggregates the recorded fills into Profitability. The average spread
// is the notional-weighted |price - midAtFill| / midAtFill.
func (a *Analyzer) Report() (Profitability, error) {
	a.mu.RLock()
	volume := decimal.Zero
	captured := decimal.Zero
	adverse := decimal.Zero
	for _, rec := range a.fills {
		notional := rec.Price.Mul(rec.Qty)
		volume = volume.Add(notional)
		if rec.MidAtFill.IsPositive() {
			edge := rec.Price.Sub(rec.MidAtFill).Abs().Div(rec.MidAtFill)
			captured = captured.Add(notional.Mul(edge))
		}
		adverse = adverse.Add(adverseCost(rec))
	}
	invCost := a.inventoryCost
	a.mu.RUnlock()

	avgSpread := decimal.Zero
	if volume.IsPositive() {
		avgSpread = captured.Div(volume)
	}
	return CalculateProfitability(volume, avgSpread, invCost, adverse)
}

// CleanOldRecords removes old records to prevent memory leaks
func (a *Analyzer) CleanOldRecords(maxAge time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for id, rec := range a.fills {
		if now.Sub(rec.Time) > maxAge {
			delete(a.fills, id)
		}
	}
}
