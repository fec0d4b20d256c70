package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"quote-engine/config"
	"quote-engine/infrastructure/logger"
	"quote-engine/internal/engine"
	"quote-engine/metrics"
	"quote-engine/monitor/logschema"
	"quote-engine/sim"
)

// 报价引擎守护进程：模拟行情 -> 引擎 -> 模拟撮合，不连接真实交易所。
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	seed := flag.Int64("seed", time.Now().UnixNano(), "模拟行情随机种子")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置；留空使用配置")
	watch := flag.Bool("watch", true, "监听配置文件变更并热加载模型参数")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	lg, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	col := metrics.New(cfg.Metrics)
	addr := cfg.Metrics.Addr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		_, serveErrs := metrics.StartMetricsServer(ctx, addr, col.Handler())
		go func() {
			select {
			case err := <-serveErrs:
				lg.LogError(err, map[string]interface{}{"component": "metrics_server", "addr": addr})
			case <-ctx.Done():
			}
		}()
	}

	pipeline, err := engine.NewPipeline(cfg.PipelineConfig())
	if err != nil {
		log.Fatalf("初始化流水线失败: %v", err)
	}
	venues, err := sim.NewRouterFromConfig(cfg, *seed, pipeline)
	if err != nil {
		log.Fatalf("初始化模拟行情失败: %v", err)
	}
	runner, err := engine.NewRunner(cfg.RunnerConfig(), engine.Components{
		Pipeline: pipeline,
		Sink:     engine.NewBreakerSink(venues, cfg.Engine.Breaker),
		Logger:   lg,
		Metrics:  col,
	})
	if err != nil {
		log.Fatalf("初始化引擎失败: %v", err)
	}
	if err := runner.Start(ctx); err != nil {
		log.Fatalf("启动引擎失败: %v", err)
	}
	lg.Info("runner_start",
		zap.String("env", cfg.Env),
		zap.Strings("symbols", venues.Symbols()),
		zap.Int64("seed", *seed),
		zap.String("metricsAddr", addr))

	g, gctx := errgroup.WithContext(ctx)
	for _, sym := range venues.Symbols() {
		v := venues[sym]
		g.Go(func() error { return feedLoop(gctx, v, runner, cfg.Engine.TickInterval, lg) })
	}
	if *watch {
		w := config.Watcher{
			Path:     *cfgPath,
			Cooldown: time.Second,
			OnError: func(err error) {
				lg.Event(zapcore.WarnLevel, logschema.EventConfigReload, map[string]interface{}{
					"path": *cfgPath, "status": "rejected", "error": err.Error(),
				})
			},
		}
		g.Go(func() error {
			err := w.Start(gctx, func(next config.AppConfig) { reload(runner, next, *cfgPath, lg) })
			if err != nil && gctx.Err() == nil {
				lg.LogError(err, map[string]interface{}{"component": "config_watcher"})
			}
			return nil
		})
	}
	g.Go(func() error { return watchdog(gctx) })

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		lg.Warn("sd_notify_failed", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-gctx.Done():
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancel()
	_ = g.Wait()
	if err := runner.Stop(); err != nil {
		lg.Warn("runner_stop", zap.Error(err))
	}

	stats := runner.GetStatistics()
	lg.Info("runner_exit",
		zap.Int64("ticks", stats.TotalTicks),
		zap.Int64("decisions", stats.TotalDecisions),
		zap.Int64("quotes", stats.TotalQuotes),
		zap.Int64("suppressed", stats.TotalSuppressed),
		zap.Int64("stale", stats.TotalStale),
		zap.Int64("errors", stats.TotalErrors),
		zap.Uint64("coalesced", runner.Coalesced()))
	for _, sym := range venues.Symbols() {
		logReport(lg, venues[sym])
	}
}

// feedLoop 按 tick 间隔推进模拟行情并提交给引擎
func feedLoop(ctx context.Context, v *sim.Runner, runner *engine.Runner, interval time.Duration, lg *logger.Logger) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tk, fills, err := v.NextTick()
			if err != nil {
				lg.LogError(err, map[string]interface{}{"symbol": v.Symbol})
				continue
			}
			for _, f := range fills {
				lg.Debug("sim_fill",
					zap.String("symbol", v.Symbol),
					zap.String("id", f.ID),
					zap.String("side", string(f.Side)),
					zap.String("price", f.Price.String()),
					zap.String("qty", f.Qty.String()))
			}
			runner.Submit(tk)
		}
	}
}

// reload 用新配置重建流水线；交易对集合变化需要重启进程
func reload(runner *engine.Runner, next config.AppConfig, path string, lg *logger.Logger) {
	p, err := engine.NewPipeline(next.PipelineConfig())
	if err != nil {
		lg.Event(zapcore.WarnLevel, logschema.EventConfigReload, map[string]interface{}{
			"path": path, "status": "rejected", "error": err.Error(),
		})
		return
	}
	runner.SetPipeline(p)
	symbols := make([]string, 0, len(next.Symbols))
	for s := range next.Symbols {
		symbols = append(symbols, s)
	}
	lg.Event(zapcore.InfoLevel, logschema.EventConfigReload, map[string]interface{}{
		"path": path, "status": "applied", "symbols": strings.Join(symbols, ","),
	})
}

// watchdog 在 systemd 开启 WatchdogSec 时定期喂狗
func watchdog(ctx context.Context) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

func logReport(lg *logger.Logger, v *sim.Runner) {
	rep, err := v.Analyzer.Report()
	if err != nil {
		lg.LogError(err, map[string]interface{}{"symbol": v.Symbol})
		return
	}
	st := v.Analyzer.Stats()
	lg.Info("pnl_summary",
		zap.String("symbol", v.Symbol),
		zap.Int("fills", st.TotalFills),
		zap.Float64("adverseRate", st.AdverseSelectionRate),
		zap.String("volume", st.TotalVolume.String()),
		zap.String("position", v.Inv.NetExposure().String()),
		zap.String("realized", v.Inv.Realized().StringFixed(4)),
		zap.String("gross", rep.GrossProfit.StringFixed(4)),
		zap.String("costs", rep.TotalCosts.StringFixed(4)),
		zap.String("net", rep.NetProfit.StringFixed(4)),
		zap.String("margin", rep.ProfitMargin.StringFixed(2)))
}
