package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"quote-engine/config"
	"quote-engine/sim"
)

// 本地单步模拟：随机游走行情驱动报价流水线并按主动成交撮合我方挂单。
// 仅用于演示与调参，不会连接真实交易所。
func main() {
	cfgPath := flag.String("config", "", "配置文件路径（留空使用默认参数）")
	symbol := flag.String("symbol", "BTCUSDT", "trading symbol")
	ticks := flag.Int("ticks", 20, "number of simulated steps")
	seed := flag.Int64("seed", 1, "random seed")
	startPrice := flag.String("startPrice", "100", "start price when no config is given")
	maxPos := flag.String("maxPosition", "100", "position at which inventory risk saturates")
	k := flag.Float64("k", 0, "override order arrival intensity (0 keeps config)")
	flag.Parse()

	sym := strings.ToUpper(*symbol)
	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.LoadWithEnvOverrides(*cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
			os.Exit(1)
		}
	}
	if _, ok := cfg.Symbols[sym]; !ok {
		sp, err1 := decimal.NewFromString(*startPrice)
		mp, err2 := decimal.NewFromString(*maxPos)
		if err1 != nil || err2 != nil {
			fmt.Fprintln(os.Stderr, "startPrice/maxPosition 必须是数字")
			os.Exit(1)
		}
		cfg.Symbols[sym] = config.SymbolConfig{StartPrice: sp, MaxPosition: mp}
	}
	if *k > 0 {
		cfg.Model.OrderArrivalIntensity = *k
	}

	r, err := sim.NewRunnerFromConfig(cfg, sym, *seed, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *ticks; i++ {
		step, err := r.OnTick()
		if err != nil {
			fmt.Printf("tick %d err=%v\n", i, err)
			continue
		}
		d := step.Decision
		s := d.Strategy
		if !s.Quoted {
			fmt.Printf("tick %d seq=%d no quote: %s\n", i, d.Sequence, s.NoQuoteReason)
			continue
		}
		fmt.Printf("tick %d seq=%d bid=%s ask=%s size=%s spread=%.2fbps risk=%.0f adverse=%.0f fills=%d pos=%s\n",
			i, d.Sequence, s.BidPrice, s.AskPrice, s.BidSize, s.SpreadBps, s.RiskScore, d.Adverse.Score,
			len(step.Fills), r.Inv.NetExposure())
		if d.Hedge.ShouldHedge {
			fmt.Printf("  hedge: %s\n", d.Hedge.Recommendation)
		}
	}

	rep, err := r.Analyzer.Report()
	if err != nil {
		fmt.Fprintf(os.Stderr, "统计失败: %v\n", err)
		os.Exit(1)
	}
	st := r.Analyzer.Stats()
	fmt.Printf("fills=%d volume=%s adverseRate=%.2f gross=%s costs=%s net=%s\n",
		st.TotalFills, st.TotalVolume.StringFixed(2), st.AdverseSelectionRate,
		rep.GrossProfit.StringFixed(4), rep.TotalCosts.StringFixed(4), rep.NetProfit.StringFixed(4))
}
