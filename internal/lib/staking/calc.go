package staking

import (
	"time"

	"github.com/shopspring/decimal"
)

// WeightMultiplier converts a pool weight (scaled by ScaleFactorBase) to its multiplier, ie: 1.0
func WeightMultiplier(raw uint64) float64 {
	return float64(raw) / ScaleFactorBase
}

// WeightFor linearly interpolates the weight of a stake locked for duration seconds between baseWeight
// (no lockup) and maxWeight (maxDuration lockup).  The duration isn't clamped - values beyond maxDuration
// extrapolate past maxWeight, so callers validate first.
func WeightFor(duration uint64, baseWeight, maxWeight float64, maxDuration uint64) float64 {
	if maxDuration == 0 {
		return baseWeight
	}
	return baseWeight + (maxWeight-baseWeight)*(float64(duration)/float64(maxDuration))
}

// PoolWeightFor is WeightFor using the pool's configured weights.
func PoolWeightFor(pool *StakePool, duration uint64) float64 {
	return WeightFor(duration, WeightMultiplier(pool.BaseWeight), WeightMultiplier(pool.MaxWeight), pool.MaxDuration)
}

// PreviewReward is the weighted amount for display, rounded to 2 places.
func PreviewReward(amount decimal.Decimal, weight float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(weight)).Round(2)
}

// RemainingDays returns the whole days until unlock, never negative.
func RemainingDays(unlock, now time.Time) int64 {
	remaining := unlock.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int64(remaining / (24 * time.Hour))
}

// AverageWeight is the pool wide weight per staked token, 0 if nothing is staked.
func AverageWeight(totalWeighted, totalStaked decimal.Decimal) decimal.Decimal {
	if totalStaked.IsZero() {
		return decimal.Zero
	}
	return totalWeighted.Div(totalStaked)
}
