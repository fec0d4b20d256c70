package sim

import (
	"fmt"
	"sort"

	"quote-engine/config"
	"quote-engine/internal/engine"
	"quote-engine/inventory"
	"quote-engine/posttrade"
)

// NewRunnerFromConfig builds a simulated venue for symbol from cfg. pipeline
// may be shared between runners; nil builds one from cfg.
func NewRunnerFromConfig(cfg config.AppConfig, symbol string, seed int64, pipeline *engine.Pipeline) (*Runner, error) {
	sc, ok := cfg.Symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not configured", symbol)
	}
	if pipeline == nil {
		p, err := engine.NewPipeline(cfg.PipelineConfig())
		if err != nil {
			return nil, err
		}
		pipeline = p
	}
	fc := DefaultFeedConfig(symbol)
	fc.Seed = seed
	fc.TradeWindow = cfg.Engine.TradeWindow
	if sc.StartPrice.IsPositive() {
		fc.StartPrice = sc.StartPrice
	}
	feed, err := NewFeed(fc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return &Runner{
		Symbol:    symbol,
		Feed:      feed,
		Pipeline:  pipeline,
		Inv:       inventory.NewTracker(sc.MaxPosition),
		Analyzer:  posttrade.NewAnalyzer(),
		Params:    cfg.QuoteParams(symbol),
		Target:    sc.TargetInventory,
		HedgeCost: sc.HedgeCostPerUnit,
		Capital:   sc.Capital,
	}, nil
}

// NewRouterFromConfig builds one runner per configured symbol. Seeds are
// assigned in symbol order starting at seed.
func NewRouterFromConfig(cfg config.AppConfig, seed int64, pipeline *engine.Pipeline) (Router, error) {
	symbols := make([]string, 0, len(cfg.Symbols))
	for s := range cfg.Symbols {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	out := make(Router, len(symbols))
	for i, s := range symbols {
		r, err := NewRunnerFromConfig(cfg, s, seed+int64(i), pipeline)
		if err != nil {
			return nil, err
		}
		out[s] = r
	}
	return out, nil
}

// Symbols returns the router's symbols in sorted order.
func (m Router) Symbols() []string {
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
