package inventory

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ErrInvalidPosition marks a snapshot the engine cannot price from.
var ErrInvalidPosition = errors.New("invalid inventory position")

// Position is a read-only inventory snapshot handed to the quoting engine.
// Quantity is signed: + long, - short.
type Position struct {
	Quantity      decimal.Decimal
	AveragePrice  decimal.Decimal
	CurrentPrice  decimal.Decimal
	UnrealizedPnL decimal.Decimal
	// InventoryRisk in [0,100].
	InventoryRisk float64
}

// Validate checks that InventoryRisk is finite and within [0,100].
func (p Position) Validate() error {
	r := p.InventoryRisk
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 || r > 100 {
		return fmt.Errorf("%w: inventory risk %v outside [0,100]", ErrInvalidPosition, r)
	}
	return nil
}

// IsLong reports a positive quantity.
func (p Position) IsLong() bool { return p.Quantity.IsPositive() }

// IsShort reports a negative quantity.
func (p Position) IsShort() bool { return p.Quantity.IsNegative() }

// Tracker 维护净仓位、均价与已实现盈亏，是仓位的唯一写入方。
// 引擎只读取 Snapshot 返回的副本。
type Tracker struct {
	mu       sync.RWMutex
	net      decimal.Decimal
	cost     decimal.Decimal
	realized decimal.Decimal
	// MaxPosition maps |net| to InventoryRisk; zero disables the risk figure.
	MaxPosition decimal.Decimal
}

// NewTracker creates a tracker whose inventory risk saturates at maxPosition.
func NewTracker(maxPosition decimal.Decimal) *Tracker {
	return &Tracker{MaxPosition: maxPosition}
}

// Update 根据成交数量调整仓位；deltaQty 为正表示买入。
func (t *Tracker) Update(deltaQty, price decimal.Decimal) {
	if deltaQty.IsZero() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.net.IsZero() || t.net.Sign() == deltaQty.Sign():
		// 同向加仓：加权平均成本
		totalValue := t.cost.Mul(t.net).Add(price.Mul(deltaQty))
		t.net = t.net.Add(deltaQty)
		t.cost = totalValue.Div(t.net)
	default:
		closing := decimal.Min(t.net.Abs(), deltaQty.Abs())
		pnlPerUnit := price.Sub(t.cost)
		if t.net.IsNegative() {
			pnlPerUnit = pnlPerUnit.Neg()
		}
		t.realized = t.realized.Add(pnlPerUnit.Mul(closing))
		t.net = t.net.Add(deltaQty)
		switch {
		case t.net.IsZero():
			t.cost = decimal.Zero
		case t.net.Sign() == deltaQty.Sign():
			// 反手：剩余部分以成交价开仓
			t.cost = price
		}
	}
}

// NetExposure returns the signed net quantity.
func (t *Tracker) NetExposure() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.net
}

// AvgCost returns the average entry price of the open position.
func (t *Tracker) AvgCost() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cost
}

// Realized returns the realized PnL accumulated from reducing trades.
func (t *Tracker) Realized() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.realized
}

// Snapshot 基于当前 mid 价生成只读仓位快照。
func (t *Tracker) Snapshot(mid decimal.Decimal) Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Position{
		Quantity:      t.net,
		AveragePrice:  t.cost,
		CurrentPrice:  mid,
		UnrealizedPnL: mid.Sub(t.cost).Mul(t.net),
		InventoryRisk: riskOf(t.net, t.MaxPosition),
	}
}

func riskOf(net, maxPosition decimal.Decimal) float64 {
	if !maxPosition.IsPositive() {
		return 0
	}
	r := net.Abs().Div(maxPosition).Mul(hundred)
	if r.GreaterThan(hundred) {
		return 100
	}
	return r.InexactFloat64()
}
