package inventory

import "github.com/shopspring/decimal"

// Valuation 基于当前 mid 价计算未实现盈亏。
func (t *Tracker) Valuation(mid decimal.Decimal) (net, pnl decimal.Decimal) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.net, mid.Sub(t.cost).Mul(t.net)
}
