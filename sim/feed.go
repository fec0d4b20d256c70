package sim

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"quote-engine/market"
)

// FeedConfig 随机游走行情参数
type FeedConfig struct {
	Symbol     string
	StartPrice decimal.Decimal
	TickSize   decimal.Decimal
	Levels     int
	// Volatility 是每步 mid 的对数收益标准差
	Volatility      float64
	HalfSpreadTicks int
	TradesPerStep   int
	MeanTradeSize   float64
	Step            time.Duration
	Start           time.Time
	Seed            int64
	// TradeWindow 保留的最近成交笔数
	TradeWindow int
}

// DefaultFeedConfig returns a liquid 100-priced market.
func DefaultFeedConfig(symbol string) FeedConfig {
	return FeedConfig{
		Symbol:          symbol,
		StartPrice:      decimal.NewFromInt(100),
		TickSize:        decimal.RequireFromString("0.01"),
		Levels:          10,
		Volatility:      0.0005,
		HalfSpreadTicks: 5,
		TradesPerStep:   3,
		MeanTradeSize:   2,
		Step:            time.Second,
		Start:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:            1,
		TradeWindow:     100,
	}
}

// Snapshot 是一步行情：盘口、窗口内成交以及本步新增成交
type Snapshot struct {
	Book   market.OrderBook
	Trades []market.Trade
	New    []market.Trade
}

// Feed generates books and trades around a geometric random walk. Not safe
// for concurrent use.
type Feed struct {
	cfg    FeedConfig
	rng    *rand.Rand
	mid    float64
	seq    uint64
	now    time.Time
	window []market.Trade
}

// NewFeed validates cfg and creates a feed.
func NewFeed(cfg FeedConfig) (*Feed, error) {
	if cfg.Symbol == "" {
		return nil, errors.New("symbol is required")
	}
	if !cfg.StartPrice.IsPositive() || !cfg.TickSize.IsPositive() {
		return nil, errors.New("start price and tick size must be > 0")
	}
	if cfg.Levels <= 0 {
		cfg.Levels = 1
	}
	if cfg.HalfSpreadTicks <= 0 {
		cfg.HalfSpreadTicks = 1
	}
	if cfg.MeanTradeSize <= 0 {
		cfg.MeanTradeSize = 1
	}
	if cfg.Step <= 0 {
		cfg.Step = time.Second
	}
	return &Feed{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
		mid: cfg.StartPrice.InexactFloat64(),
		now: cfg.Start,
	}, nil
}

// Symbol returns the feed's symbol.
func (f *Feed) Symbol() string { return f.cfg.Symbol }

// Next advances one step.
func (f *Feed) Next() Snapshot {
	prev := f.mid
	f.mid *= math.Exp(f.cfg.Volatility * f.rng.NormFloat64())
	f.seq++
	f.now = f.now.Add(f.cfg.Step)

	tick := f.cfg.TickSize
	center := decimal.NewFromFloat(f.mid).Div(tick).Round(0)
	bestBid := center.Sub(decimal.NewFromInt(int64(f.cfg.HalfSpreadTicks))).Mul(tick)
	bestAsk := center.Add(decimal.NewFromInt(int64(f.cfg.HalfSpreadTicks))).Mul(tick)
	if !bestBid.IsPositive() {
		bestBid = tick
	}

	bids := make([]market.Level, 0, f.cfg.Levels)
	asks := make([]market.Level, 0, f.cfg.Levels)
	for i := 0; i < f.cfg.Levels; i++ {
		off := tick.Mul(decimal.NewFromInt(int64(i)))
		if px := bestBid.Sub(off); px.IsPositive() {
			bids = append(bids, market.Level{Price: px, Quantity: f.size(5), OrderCount: 1 + f.rng.Intn(5)})
		}
		asks = append(asks, market.Level{Price: bestAsk.Add(off), Quantity: f.size(5), OrderCount: 1 + f.rng.Intn(5)})
	}
	book := market.NewOrderBook(f.cfg.Symbol, bids, asks, f.now).WithSequence(f.seq)

	// 上涨时买方主动成交概率更高
	pBuy := 0.5
	if f.mid > prev {
		pBuy = 0.6
	} else if f.mid < prev {
		pBuy = 0.4
	}
	fresh := make([]market.Trade, 0, f.cfg.TradesPerStep)
	for i := 0; i < f.cfg.TradesPerStep; i++ {
		tr := market.Trade{
			Size: f.size(1),
			Ts:   f.now.Add(-f.cfg.Step + time.Duration(i+1)*f.cfg.Step/time.Duration(f.cfg.TradesPerStep+1)),
		}
		if f.rng.Float64() < pBuy {
			tr.Side, tr.Price = market.SideBuy, bestAsk
		} else {
			tr.Side, tr.Price = market.SideSell, bestBid
		}
		fresh = append(fresh, tr)
	}
	f.window = append(f.window, fresh...)
	if n := f.cfg.TradeWindow; n > 0 && len(f.window) > n {
		f.window = append(f.window[:0:0], f.window[len(f.window)-n:]...)
	}

	window := make([]market.Trade, len(f.window))
	copy(window, f.window)
	return Snapshot{Book: book, Trades: window, New: fresh}
}

// size draws an exponential size scaled by MeanTradeSize*mult, rounded to 4dp.
func (f *Feed) size(mult float64) decimal.Decimal {
	v := f.rng.ExpFloat64()*f.cfg.MeanTradeSize*mult + 0.0001
	return decimal.NewFromFloat(v).Round(4)
}
