package market

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeQuantity is returned by Validate for a level with qty < 0.
	ErrNegativeQuantity = errors.New("order book level quantity must be >= 0")
	// ErrCrossedBook is returned by Validate when best bid >= best ask.
	ErrCrossedBook = errors.New("order book is crossed")
)

var bpsFactor = decimal.NewFromInt(10000)

// Level 单个价格档位。
type Level struct {
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	OrderCount int
}

// Notional returns price*quantity.
func (l Level) Notional() decimal.Decimal {
	return l.Price.Mul(l.Quantity)
}

// OrderBook 是某一时刻的盘口快照，创建后只读。
// Bids 按价格降序，Asks 按价格升序。
type OrderBook struct {
	Symbol    string
	Bids      []Level
	Asks      []Level
	MidPrice  decimal.Decimal
	Spread    decimal.Decimal
	SpreadBps decimal.Decimal
	Timestamp time.Time
	// Sequence orders snapshots of one symbol; zero means "use Timestamp".
	Sequence uint64
}

// NewOrderBook copies and sorts the supplied levels, drops empty levels and
// derives mid/spread/spreadBps.
func NewOrderBook(symbol string, bids, asks []Level, ts time.Time) OrderBook {
	ob := OrderBook{
		Symbol:    symbol,
		Bids:      cleanLevels(bids),
		Asks:      cleanLevels(asks),
		Timestamp: ts,
	}
	sort.SliceStable(ob.Bids, func(i, j int) bool { return ob.Bids[i].Price.GreaterThan(ob.Bids[j].Price) })
	sort.SliceStable(ob.Asks, func(i, j int) bool { return ob.Asks[i].Price.LessThan(ob.Asks[j].Price) })
	ob.derive()
	return ob
}

// WithSequence returns a copy carrying the given feed sequence number.
func (ob OrderBook) WithSequence(seq uint64) OrderBook {
	ob.Sequence = seq
	return ob
}

func cleanLevels(in []Level) []Level {
	out := make([]Level, 0, len(in))
	for _, lv := range in {
		if lv.Quantity.IsZero() {
			continue
		}
		out = append(out, lv)
	}
	return out
}

func (ob *OrderBook) derive() {
	bid, hasBid := ob.BestBid()
	ask, hasAsk := ob.BestAsk()
	switch {
	case hasBid && hasAsk:
		ob.MidPrice = bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2))
		ob.Spread = ask.Price.Sub(bid.Price)
	case hasBid:
		ob.MidPrice = bid.Price
	case hasAsk:
		ob.MidPrice = ask.Price
	}
	if ob.MidPrice.IsPositive() {
		ob.SpreadBps = ob.Spread.Div(ob.MidPrice).Mul(bpsFactor)
	}
}

// BestBid 返回最优买档；无买盘时 ok=false。
func (ob OrderBook) BestBid() (Level, bool) {
	if len(ob.Bids) == 0 {
		return Level{}, false
	}
	return ob.Bids[0], true
}

// BestAsk 返回最优卖档；无卖盘时 ok=false。
func (ob OrderBook) BestAsk() (Level, bool) {
	if len(ob.Asks) == 0 {
		return Level{}, false
	}
	return ob.Asks[0], true
}

// TwoSided reports whether both sides have at least one level.
func (ob OrderBook) TwoSided() bool {
	return len(ob.Bids) > 0 && len(ob.Asks) > 0
}

// Crossed reports bestBid >= bestAsk on a two-sided book.
func (ob OrderBook) Crossed() bool {
	if !ob.TwoSided() {
		return false
	}
	return ob.Bids[0].Price.GreaterThanOrEqual(ob.Asks[0].Price)
}

// Version returns Sequence, or the timestamp in nanoseconds when the feed
// does not number its snapshots.
func (ob OrderBook) Version() uint64 {
	if ob.Sequence != 0 {
		return ob.Sequence
	}
	if ob.Timestamp.IsZero() {
		return 0
	}
	return uint64(ob.Timestamp.UnixNano())
}

// Validate checks the structural invariants of the snapshot.
func (ob OrderBook) Validate() error {
	for i, lv := range ob.Bids {
		if lv.Quantity.IsNegative() {
			return fmt.Errorf("bid level %d: %w", i, ErrNegativeQuantity)
		}
	}
	for i, lv := range ob.Asks {
		if lv.Quantity.IsNegative() {
			return fmt.Errorf("ask level %d: %w", i, ErrNegativeQuantity)
		}
	}
	if ob.Crossed() {
		return fmt.Errorf("%w: bid %s >= ask %s", ErrCrossedBook, ob.Bids[0].Price, ob.Asks[0].Price)
	}
	return nil
}
