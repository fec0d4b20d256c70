package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"quote-engine/posttrade"
)

func main() {
	logPath := flag.String("log", "", "runner 日志路径（留空只计算盈利指标）")
	symbol := flag.String("symbol", "", "仅统计指定交易对 (默认全量)")
	sinceStr := flag.String("since", "", "仅统计此时间之后的记录 (RFC3339，例如 2025-11-22T00:00:00Z)")
	volume := flag.String("volume", "", "总成交额，提供时输出盈利汇总")
	avgSpread := flag.String("avgSpread", "0", "平均捕获价差 (比例，0.001=10bps)")
	invCost := flag.String("inventoryCost", "0", "库存持有成本")
	advCost := flag.String("adverseCost", "0", "逆向选择成本")
	flag.Parse()

	if *logPath != "" {
		var since time.Time
		if *sinceStr != "" {
			var err error
			if since, err = time.Parse(time.RFC3339Nano, *sinceStr); err != nil {
				fail("解析 since 参数失败: %v", err)
			}
		}
		f, err := os.Open(*logPath)
		if err != nil {
			fail("无法读取日志: %v", err)
		}
		stats, err := summarize(f, filter{symbol: *symbol, since: since})
		f.Close()
		if err != nil {
			fail("%v", err)
		}
		fmt.Printf("统计文件: %s\n", *logPath)
		for _, sym := range sortedKeys(stats) {
			st := stats[sym]
			fmt.Printf("%s: decisions=%d quoted=%d suppressed=%d discarded=%d hedges=%d avgSpread=%.2fbps avgRisk=%.1f\n",
				sym, st.Decisions, st.Quoted, st.Suppressed, st.Discarded, st.Hedges, st.AvgSpreadBps(), st.AvgRiskScore())
			for _, reason := range sortedKeys(st.Reasons) {
				fmt.Printf("  %s: %d\n", reason, st.Reasons[reason])
			}
		}
	}

	if *volume == "" {
		return
	}
	vals := make([]decimal.Decimal, 4)
	for i, s := range []string{*volume, *avgSpread, *invCost, *advCost} {
		v, err := decimal.NewFromString(s)
		if err != nil {
			fail("无效数字 %q: %v", s, err)
		}
		vals[i] = v
	}
	p, err := posttrade.CalculateProfitability(vals[0], vals[1], vals[2], vals[3])
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("Gross profit: %s\n", p.GrossProfit.StringFixed(4))
	fmt.Printf("Total costs:  %s\n", p.TotalCosts.StringFixed(4))
	fmt.Printf("Net profit:   %s\n", p.NetProfit.StringFixed(4))
	fmt.Printf("Margin:       %s%%\n", p.ProfitMargin.StringFixed(2))
	fmt.Printf("ROC:          %s%%\n", p.ReturnOnCapital.StringFixed(4))
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
