package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }

// Validate ensures required fields are present and in range. The first
// violated field is reported.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return ErrInvalid("env is required")
	}
	if cfg.Engine.TickInterval < 0 {
		return ErrInvalid("engine.tickInterval must be >= 0")
	}
	if cfg.Engine.Horizon < 0 {
		return ErrInvalid("engine.horizon must be >= 0")
	}
	if cfg.Engine.MaxSnapshotAge < 0 {
		return ErrInvalid("engine.maxSnapshotAge must be >= 0")
	}
	if cfg.Engine.ToxicSpreadMultiplier < 1 {
		return ErrInvalid("engine.toxicSpreadMultiplier must be >= 1")
	}
	if cfg.Engine.TradeWindow < 0 {
		return ErrInvalid("engine.tradeWindow must be >= 0")
	}
	if cfg.Engine.MaxInventoryRatio < 0 || cfg.Engine.MaxInventoryRatio > 1 {
		return ErrInvalid("engine.maxInventoryRatio must be in [0,1]")
	}
	if cfg.Engine.Breaker.Threshold < 0 || cfg.Engine.Breaker.Timeout < 0 || cfg.Engine.Breaker.HalfOpenSuccesses < 0 {
		return ErrInvalid("engine.breaker values must be >= 0")
	}
	if err := cfg.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := cfg.Quote.Validate(); err != nil {
		return fmt.Errorf("quote: %w", err)
	}
	if cfg.Analytics.EffectiveSpreadLevels < 0 {
		return ErrInvalid("analytics.effectiveSpreadLevels must be >= 0")
	}
	if cfg.Analytics.ImpactNotional.IsNegative() {
		return ErrInvalid("analytics.impactNotional must be >= 0")
	}
	if cfg.Adverse.MinTrades < 0 || cfg.Adverse.VPINBuckets < 0 {
		return ErrInvalid("adverse.minTrades/vpinBuckets must be >= 0")
	}
	if _, err := zapcore.ParseLevel(cfg.Logger.Level); err != nil {
		return ErrInvalid(fmt.Sprintf("logger.level %q is invalid", cfg.Logger.Level))
	}
	if len(cfg.Symbols) == 0 {
		return ErrInvalid("symbols config is required")
	}
	for sym, sc := range cfg.Symbols {
		if sc.Quote != nil {
			if err := sc.Quote.Validate(); err != nil {
				return fmt.Errorf("symbol %s quote: %w", sym, err)
			}
		}
		if sc.HedgeCostPerUnit.IsNegative() {
			return ErrInvalid(fmt.Sprintf("symbol %s hedgeCostPerUnit must be >= 0", sym))
		}
		if sc.Capital.IsNegative() {
			return ErrInvalid(fmt.Sprintf("symbol %s capital must be >= 0", sym))
		}
		if sc.MaxPosition.IsNegative() {
			return ErrInvalid(fmt.Sprintf("symbol %s maxPosition must be >= 0", sym))
		}
		if sc.StartPrice.IsNegative() {
			return ErrInvalid(fmt.Sprintf("symbol %s startPrice must be >= 0", sym))
		}
	}
	return nil
}
