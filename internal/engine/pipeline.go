package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quote-engine/inventory"
	"quote-engine/market"
	"quote-engine/risk"
	"quote-engine/strategy"
)

// ErrInvalidTick marks a tick that cannot be processed at all (as opposed to
// degenerate market data, which yields a no-quote decision).
var ErrInvalidTick = errors.New("invalid tick")

// Config 流水线配置
type Config struct {
	Model     strategy.ModelConfig
	Analytics market.AnalyticsConfig
	Adverse   market.AdverseSelectionConfig
	// Horizon is used when a tick leaves its own horizon at zero.
	Horizon time.Duration
	// AvoidToxic 开启后，知情流会把基础价差乘以 ToxicSpreadMultiplier
	AvoidToxic            bool
	ToxicSpreadMultiplier float64
	// MaxInventoryRatio bounds the mean-variance target at ratio*capital; <= 0 uses 0.3.
	MaxInventoryRatio float64
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Model:                 strategy.DefaultModelConfig(),
		Analytics:             market.DefaultAnalyticsConfig(),
		Adverse:               market.DefaultAdverseSelectionConfig(),
		Horizon:               strategy.DefaultHorizon,
		AvoidToxic:            true,
		ToxicSpreadMultiplier: 2,
		MaxInventoryRatio:     risk.DefaultMaxInventoryRatio,
	}
}

// Tick is everything one decision needs. It is a value: the pipeline never
// retains or mutates it.
type Tick struct {
	Book             market.OrderBook
	Trades           []market.Trade
	Inventory        inventory.Position
	Params           strategy.QuoteParameters
	TargetInventory  decimal.Decimal
	HedgeCostPerUnit decimal.Decimal
	Horizon          time.Duration
	// Capital > 0 replaces TargetInventory with the mean-variance target.
	Capital decimal.Decimal
}

// Symbol returns the book's symbol.
func (t Tick) Symbol() string { return t.Book.Symbol }

// Decision 单个 tick 的完整决策
type Decision struct {
	ID         string
	Symbol     string
	Sequence   uint64
	Metrics    market.MarketMetrics
	Microprice market.Microprice
	Adverse    market.AdverseSelection
	Strategy   strategy.MarketMakingStrategy
	Hedge      risk.HedgeDecision
	// Target 是对冲检查使用的目标库存
	Target decimal.Decimal
	// Optimal is set when the tick carried capital.
	Optimal    *risk.OptimalInventory
	Notes      []string
	ComputedAt time.Time
}

// Pipeline runs analytics, adverse selection, quoting and the hedge check for
// one tick. It holds only immutable config and is safe for concurrent use.
type Pipeline struct {
	cfg   Config
	calc  *strategy.Calculator
	now   func() time.Time
	newID func() string
}

// NewPipeline validates cfg and builds a pipeline.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.ToxicSpreadMultiplier < 1 {
		cfg.ToxicSpreadMultiplier = 1
	}
	if cfg.Horizon < 0 {
		return nil, fmt.Errorf("%w: horizon must be >= 0", strategy.ErrInvalidParameters)
	}
	calc, err := strategy.NewCalculator(cfg.Model)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, calc: calc, now: time.Now, newID: uuid.NewString}, nil
}

// Config returns the pipeline config.
func (p *Pipeline) Config() Config { return p.cfg }

// Process computes the decision for t. Config errors (invalid quote params,
// negative hedge cost) and unversioned books are returned; degenerate books
// and invalid inventory snapshots produce a Decision with
// Strategy.Quoted=false and a nil error.
func (p *Pipeline) Process(t Tick) (Decision, error) {
	if t.Book.Symbol == "" {
		return Decision{}, fmt.Errorf("%w: book symbol is required", ErrInvalidTick)
	}
	// 无序号且无时间戳的快照无法参与排序
	if t.Book.Version() == 0 {
		return Decision{}, fmt.Errorf("%w: %s book has neither sequence nor timestamp", ErrInvalidTick, t.Book.Symbol)
	}
	d := Decision{
		ID:       p.newID(),
		Symbol:   t.Book.Symbol,
		Sequence: t.Book.Version(),
	}

	if err := t.Book.Validate(); err != nil && errors.Is(err, market.ErrNegativeQuantity) {
		d.Strategy = strategy.NoQuote(strategy.ReasonRejectedBook)
		d.Hedge = risk.HedgeDecision{Action: risk.RecommendReduceQuoteSize}
		d.Notes = append(d.Notes, "book rejected: "+err.Error())
		d.ComputedAt = p.now()
		return d, nil
	}

	d.Metrics = market.AnalyzeOrderBook(t.Book, p.cfg.Analytics)
	d.Microprice = market.EstimateMicroprice(t.Book)
	d.Adverse = market.DetectAdverseSelection(t.Trades, p.cfg.Adverse)

	if err := t.Inventory.Validate(); err != nil {
		d.Strategy = strategy.NoQuote(strategy.ReasonInvalidPosition)
		d.Hedge = risk.HedgeDecision{Action: risk.RecommendReduceQuoteSize}
		d.Notes = append(d.Notes, err.Error())
		d.ComputedAt = p.now()
		return d, nil
	}

	params := t.Params
	if p.cfg.AvoidToxic && d.Adverse.IsInformed {
		params.BaseSpreadBps *= p.cfg.ToxicSpreadMultiplier
		d.Notes = append(d.Notes, fmt.Sprintf("informed flow (score %.0f): base spread x%.2f",
			d.Adverse.Score, p.cfg.ToxicSpreadMultiplier))
	}

	horizon := t.Horizon
	if horizon == 0 {
		horizon = p.cfg.Horizon
	}
	strat, err := p.calc.CalculateOptimalQuotes(t.Book, t.Inventory, d.Metrics, params, horizon)
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", t.Book.Symbol, err)
	}
	d.Strategy = strat

	target, err := p.target(t, d)
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", t.Book.Symbol, err)
	}
	d.Target = target.Quantity
	d.Optimal = target.Optimal
	if d.Optimal != nil {
		d.Notes = append(d.Notes, fmt.Sprintf("mean-variance target %s (%.2f%% of capital)",
			d.Target.String(), d.Optimal.AllocationPercent))
	}

	hedge, err := risk.CalculateInventoryHedge(t.Inventory, d.Target, t.Book.MidPrice, t.HedgeCostPerUnit)
	if err != nil {
		return Decision{}, fmt.Errorf("%s: %w", t.Book.Symbol, err)
	}
	d.Hedge = hedge
	if strat.Quoted && hedge.ShouldHedge && hedge.Action == risk.RecommendHedge {
		d.Notes = append(d.Notes, hedge.Recommendation)
	}
	d.ComputedAt = p.now()
	return d, nil
}

type targetInventory struct {
	Quantity decimal.Decimal
	Optimal  *risk.OptimalInventory
}

// target returns the static target, or the mean-variance target when the
// tick carries capital. The expected return is the microprice's signed
// deviation from mid; σ is the book's volatility proxy.
func (p *Pipeline) target(t Tick, d Decision) (targetInventory, error) {
	if !t.Capital.IsPositive() || !t.Book.MidPrice.IsPositive() || !d.Microprice.Price.IsPositive() {
		return targetInventory{Quantity: t.TargetInventory}, nil
	}
	mu := d.Microprice.Price.Sub(t.Book.MidPrice).Div(t.Book.MidPrice).InexactFloat64()
	opt := risk.InventoryOptimizer{MaxInventoryRatio: p.cfg.MaxInventoryRatio, SizeDecimals: p.cfg.Model.SizeDecimals}
	res, err := opt.CalculateOptimalInventory(mu, d.Metrics.Volatility, p.cfg.Model.RiskAversion, t.Capital, t.Book.MidPrice)
	if err != nil {
		return targetInventory{}, err
	}
	return targetInventory{Quantity: res.OptimalQuantity, Optimal: &res}, nil
}
