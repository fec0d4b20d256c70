package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"quote-engine/infrastructure/logger"
	"quote-engine/internal/engine"
	"quote-engine/market"
	"quote-engine/metrics"
	"quote-engine/strategy"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env       string                        `yaml:"env"`
	Engine    EngineConfig                  `yaml:"engine"`
	Model     strategy.ModelConfig          `yaml:"model"`
	Analytics market.AnalyticsConfig        `yaml:"analytics"`
	Adverse   market.AdverseSelectionConfig `yaml:"adverse"`
	Quote     strategy.QuoteParameters      `yaml:"quote"`
	Symbols   map[string]SymbolConfig       `yaml:"symbols"`
	Logger    logger.Config                 `yaml:"logger"`
	Metrics   metrics.Config                `yaml:"metrics"`
}

// EngineConfig 控制 tick 循环与快照处理
type EngineConfig struct {
	TickInterval time.Duration `yaml:"tickInterval"`
	// Horizon 是 Avellaneda–Stoikov 的剩余时间 T，0 表示默认 300s
	Horizon        time.Duration `yaml:"horizon"`
	MaxSnapshotAge time.Duration `yaml:"maxSnapshotAge"`
	// 识别到知情交易时放宽基础价差
	AvoidToxic            bool    `yaml:"avoidToxic"`
	ToxicSpreadMultiplier float64 `yaml:"toxicSpreadMultiplier"`
	TradeWindow           int     `yaml:"tradeWindow"`
	// MaxInventoryRatio 约束设置了 capital 的交易对的均值-方差目标库存
	MaxInventoryRatio float64 `yaml:"maxInventoryRatio"`
	// Breaker 发布端熔断
	Breaker engine.BreakerConfig `yaml:"breaker"`
}

// SymbolConfig 保存单个交易对的报价参数与库存目标。
type SymbolConfig struct {
	// Quote 为空时使用全局 quote 参数
	Quote            *strategy.QuoteParameters `yaml:"quote"`
	TargetInventory  decimal.Decimal           `yaml:"targetInventory"`
	HedgeCostPerUnit decimal.Decimal           `yaml:"hedgeCostPerUnit"`
	// Capital > 0 时目标库存取均值-方差最优值，忽略 TargetInventory
	Capital     decimal.Decimal `yaml:"capital"`
	MaxPosition decimal.Decimal `yaml:"maxPosition"`
	// StartPrice 仅用于模拟行情
	StartPrice decimal.Decimal `yaml:"startPrice"`
}

// Default returns a config with every section at its default.
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Engine: EngineConfig{
			TickInterval:          time.Second,
			Horizon:               strategy.DefaultHorizon,
			AvoidToxic:            true,
			ToxicSpreadMultiplier: 2,
			TradeWindow:           100,
			MaxInventoryRatio:     0.3,
			Breaker:               engine.BreakerConfig{Threshold: 5, Timeout: 30 * time.Second, HalfOpenSuccesses: 3},
		},
		Model:     strategy.DefaultModelConfig(),
		Analytics: market.DefaultAnalyticsConfig(),
		Adverse:   market.DefaultAdverseSelectionConfig(),
		Quote:     strategy.DefaultQuoteParameters(),
		Symbols:   map[string]SymbolConfig{},
		Logger:    logger.DefaultConfig(),
		Metrics:   metrics.DefaultConfig(),
	}
}

// QuoteParams returns the quote parameters for symbol.
func (c AppConfig) QuoteParams(symbol string) strategy.QuoteParameters {
	if sc, ok := c.Symbols[symbol]; ok && sc.Quote != nil {
		return *sc.Quote
	}
	return c.Quote
}

// PipelineConfig maps the model and engine sections onto engine.Config.
func (c AppConfig) PipelineConfig() engine.Config {
	return engine.Config{
		Model:                 c.Model,
		Analytics:             c.Analytics,
		Adverse:               c.Adverse,
		Horizon:               c.Engine.Horizon,
		AvoidToxic:            c.Engine.AvoidToxic,
		ToxicSpreadMultiplier: c.Engine.ToxicSpreadMultiplier,
		MaxInventoryRatio:     c.Engine.MaxInventoryRatio,
	}
}

// RunnerConfig maps the engine section onto engine.RunnerConfig.
func (c AppConfig) RunnerConfig() engine.RunnerConfig {
	return engine.RunnerConfig{
		TickInterval:   c.Engine.TickInterval,
		MaxSnapshotAge: c.Engine.MaxSnapshotAge,
	}
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(raw []byte) (AppConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// LoadWithEnvOverrides loads config then overrides deployment fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("QE_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("QE_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("QE_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	return cfg, Validate(cfg)
}
