package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side 成交方向（主动方）。
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade represents a normalized trade tick.
type Trade struct {
	Price decimal.Decimal
	Size  decimal.Decimal
	Side  Side
	Ts    time.Time
}

// IsBuy reports whether the aggressor was a buyer.
func (t Trade) IsBuy() bool {
	return t.Side == SideBuy
}
