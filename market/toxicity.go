package market

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Signal names emitted by DetectAdverseSelection.
const (
	SignalLargeOrders     = "unusually large orders"
	SignalDirectionalFlow = "strong directional flow"
	SignalPriceMomentum   = "significant price momentum"
	SignalHighFrequency   = "high-frequency activity"
)

// AdverseSelectionConfig holds the thresholds of the informed-flow detector.
type AdverseSelectionConfig struct {
	MinTrades          int     `yaml:"minTrades"`
	LargeSizeMultiple  float64 `yaml:"largeSizeMultiple"`
	LargeShare         float64 `yaml:"largeShare"`
	DirectionalSkew    float64 `yaml:"directionalSkew"`
	MomentumThreshold  float64 `yaml:"momentumThreshold"`
	TradesPerMinuteMax float64 `yaml:"tradesPerMinuteMax"`
	InformedThreshold  float64 `yaml:"informedThreshold"`
	// VPINBuckets is the number of equal-volume buckets used for the VPIN estimate.
	VPINBuckets int `yaml:"vpinBuckets"`
}

// DefaultAdverseSelectionConfig returns a default config.
func DefaultAdverseSelectionConfig() AdverseSelectionConfig {
	return AdverseSelectionConfig{
		MinTrades:          10,
		LargeSizeMultiple:  3,
		LargeShare:         0.3,
		DirectionalSkew:    0.3,
		MomentumThreshold:  0.02,
		TradesPerMinuteMax: 10,
		InformedThreshold:  60,
		VPINBuckets:        5,
	}
}

// AdverseSelection is the informed-trading assessment of a trade window.
type AdverseSelection struct {
	Score        float64
	IsInformed   bool
	Signals      []string
	Insufficient bool
	// VPIN is informational and does not contribute to Score.
	VPIN float64
}

// DetectAdverseSelection scores recent trade flow for informed-trading risk.
// Fewer than MinTrades trades yield a zero score; MinTrades <= 0 means the
// default of 10.
func DetectAdverseSelection(trades []Trade, cfg AdverseSelectionConfig) AdverseSelection {
	if cfg.MinTrades <= 0 {
		cfg.MinTrades = DefaultAdverseSelectionConfig().MinTrades
	}
	if len(trades) < cfg.MinTrades {
		return AdverseSelection{Insufficient: true, Signals: []string{}}
	}

	ordered := make([]Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Ts.Before(ordered[j].Ts) })

	total := float64(len(ordered))
	sumSize := decimal.Zero
	buys := 0
	for _, tr := range ordered {
		sumSize = sumSize.Add(tr.Size)
		if tr.IsBuy() {
			buys++
		}
	}

	res := AdverseSelection{Signals: []string{}}

	meanSize := sumSize.Div(decimal.NewFromInt(int64(len(ordered))))
	largeCut := meanSize.Mul(decimal.NewFromFloat(cfg.LargeSizeMultiple))
	large := 0
	for _, tr := range ordered {
		if tr.Size.GreaterThan(largeCut) {
			large++
		}
	}
	if float64(large)/total > cfg.LargeShare {
		res.Score += 25
		res.Signals = append(res.Signals, SignalLargeOrders)
	}

	if math.Abs(float64(buys)/total-0.5) > cfg.DirectionalSkew {
		res.Score += 30
		res.Signals = append(res.Signals, SignalDirectionalFlow)
	}

	first, last := ordered[0], ordered[len(ordered)-1]
	if first.Price.IsPositive() {
		move := last.Price.Div(first.Price).Sub(decimal.NewFromInt(1)).Abs().InexactFloat64()
		if move > cfg.MomentumThreshold {
			res.Score += 25
			res.Signals = append(res.Signals, SignalPriceMomentum)
		}
	}

	span := last.Ts.Sub(first.Ts)
	if span < time.Second {
		span = time.Second
	}
	if total/span.Minutes() > cfg.TradesPerMinuteMax {
		res.Score += 20
		res.Signals = append(res.Signals, SignalHighFrequency)
	}

	res.Score = math.Min(res.Score, 100)
	res.IsInformed = res.Score > cfg.InformedThreshold
	res.VPIN = CalculateVPIN(ordered, cfg.VPINBuckets)
	return res
}

// CalculateVPIN estimates the Volume-Synchronized Probability of Informed
// Trading: trades are poured into buckets of equal volume and
// VPIN = Σ|buy - sell| / Σvolume over the completed buckets.
func CalculateVPIN(trades []Trade, buckets int) float64 {
	if buckets <= 0 || len(trades) == 0 {
		return 0
	}
	totalVol := decimal.Zero
	for _, tr := range trades {
		totalVol = totalVol.Add(tr.Size)
	}
	if !totalVol.IsPositive() {
		return 0
	}
	bucketSize := totalVol.Div(decimal.NewFromInt(int64(buckets)))
	if !bucketSize.IsPositive() {
		return 0
	}

	var (
		imbalance = decimal.Zero
		volume    = decimal.Zero
		buy       = decimal.Zero
		sell      = decimal.Zero
	)
	flush := func() {
		imbalance = imbalance.Add(buy.Sub(sell).Abs())
		volume = volume.Add(buy.Add(sell))
		buy, sell = decimal.Zero, decimal.Zero
	}
	for _, tr := range trades {
		left := tr.Size
		// 单笔成交可能跨越多个桶
		for left.IsPositive() {
			room := bucketSize.Sub(buy.Add(sell))
			take := decimal.Min(room, left)
			if tr.IsBuy() {
				buy = buy.Add(take)
			} else {
				sell = sell.Add(take)
			}
			left = left.Sub(take)
			if buy.Add(sell).GreaterThanOrEqual(bucketSize) {
				flush()
			}
		}
	}
	if !volume.IsPositive() {
		return 0
	}
	return imbalance.Div(volume).InexactFloat64()
}
