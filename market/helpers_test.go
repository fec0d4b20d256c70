package market

import (
	"time"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func lv(price, qty string) Level {
	return Level{Price: d(price), Quantity: d(qty), OrderCount: 1}
}

var t0 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
