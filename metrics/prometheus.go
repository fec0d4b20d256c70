// Package metrics provides Prometheus metrics for the quote engine
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config 监控配置
type Config struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
	Addr      string `yaml:"addr"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "qe",
		Subsystem: "engine",
		Addr:      ":9101",
	}
}

// Collector 决策引擎的 Prometheus 指标，按 symbol 打标签
type Collector struct {
	registry *prometheus.Registry

	// 报价指标
	reservationPrice *prometheus.GaugeVec
	spreadBps        *prometheus.GaugeVec
	riskScore        *prometheus.GaugeVec
	safeKelly        *prometheus.GaugeVec
	quotesGenerated  *prometheus.CounterVec
	quotesSuppressed *prometheus.CounterVec

	// 市场指标
	microprice    *prometheus.GaugeVec
	imbalance     *prometheus.GaugeVec
	adverseScore  *prometheus.GaugeVec
	vpin          *prometheus.GaugeVec
	inventoryRisk *prometheus.GaugeVec

	// 对冲与流水线
	hedgeRecommendations *prometheus.CounterVec
	staleSnapshots       *prometheus.CounterVec
	tickErrors           *prometheus.CounterVec
	tickLatency          prometheus.Histogram
}

// New 创建 Collector，使用独立 registry
func New(cfg Config) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	gauge := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help,
		}, []string{"symbol"})
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, Name: name, Help: help,
		}, append([]string{"symbol"}, labels...))
	}

	return &Collector{
		registry:         reg,
		reservationPrice: gauge("reservation_price", "库存调整后的保留价"),
		spreadBps:        gauge("quote_spread_bps", "报价价差（bps）"),
		riskScore:        gauge("quote_risk_score", "报价风险评分 0-100"),
		safeKelly:        gauge("safe_kelly_fraction", "实际使用的 Kelly 比例"),
		quotesGenerated:  counter("quotes_generated_total", "生成的双边报价数"),
		quotesSuppressed: counter("quotes_suppressed_total", "拒绝报价次数", "reason"),

		microprice:    gauge("microprice", "微观价格估计"),
		imbalance:     gauge("orderbook_imbalance", "盘口不平衡 [-1,1]"),
		adverseScore:  gauge("adverse_selection_score", "逆向选择评分 0-100"),
		vpin:          gauge("vpin", "VPIN 毒性指标"),
		inventoryRisk: gauge("inventory_risk", "库存风险 0-100"),

		hedgeRecommendations: counter("hedge_recommendations_total", "对冲建议次数", "action"),
		staleSnapshots:       counter("stale_snapshots_total", "被丢弃的过期快照", "reason"),
		tickErrors:           counter("tick_errors_total", "处理失败的 tick"),
		tickLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "tick_latency_seconds",
			Help:      "单个 tick 的计算耗时（秒）",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}),
	}
}

// RecordQuote 记录一次成功报价
func (c *Collector) RecordQuote(symbol string, reservation, spreadBps, riskScore, safeKelly float64) {
	c.reservationPrice.WithLabelValues(symbol).Set(reservation)
	c.spreadBps.WithLabelValues(symbol).Set(spreadBps)
	c.riskScore.WithLabelValues(symbol).Set(riskScore)
	c.safeKelly.WithLabelValues(symbol).Set(safeKelly)
	c.quotesGenerated.WithLabelValues(symbol).Inc()
}

// RecordSuppressed 记录拒绝报价
func (c *Collector) RecordSuppressed(symbol, reason string) {
	c.quotesSuppressed.WithLabelValues(symbol, reason).Inc()
}

// RecordMarket 更新市场指标
func (c *Collector) RecordMarket(symbol string, microprice, imbalance, adverseScore, vpin, inventoryRisk float64) {
	c.microprice.WithLabelValues(symbol).Set(microprice)
	c.imbalance.WithLabelValues(symbol).Set(imbalance)
	c.adverseScore.WithLabelValues(symbol).Set(adverseScore)
	c.vpin.WithLabelValues(symbol).Set(vpin)
	c.inventoryRisk.WithLabelValues(symbol).Set(inventoryRisk)
}

func (c *Collector) RecordHedge(symbol, action string) {
	c.hedgeRecommendations.WithLabelValues(symbol, action).Inc()
}

func (c *Collector) RecordStale(symbol, reason string) {
	c.staleSnapshots.WithLabelValues(symbol, reason).Inc()
}

func (c *Collector) RecordError(symbol string) {
	c.tickErrors.WithLabelValues(symbol).Inc()
}

func (c *Collector) ObserveTickLatency(d time.Duration) {
	c.tickLatency.Observe(d.Seconds())
}

// Handler 返回HTTP handler用于暴露指标
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StartMetricsServer 启动Prometheus指标服务器，ctx 结束时关闭。
// 监听失败等非正常退出的错误写入返回的 channel（容量 1）。
func StartMetricsServer(ctx context.Context, addr string, h http.Handler) (*http.Server, <-chan error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errs := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv, errs
}
