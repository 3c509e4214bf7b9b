package staking

import (
	"github.com/shopspring/decimal"
)

// StakeForm is the user's pending deposit input.  A lockup is entered as either whole years or days.
type StakeForm struct {
	Amount decimal.Decimal
	Years  uint64
	Days   uint64
}

// StakePreview is the expected outcome of a deposit, for display only.
type StakePreview struct {
	Duration    uint64          `json:"duration"`
	Multiplier  float64         `json:"multiplier"`
	TotalWeight decimal.Decimal `json:"totalWeight"`
}

// Duration is the lockup in seconds.
func (f StakeForm) Duration() uint64 {
	return (f.Years*365 + f.Days) * SecondsPerDay
}

// Normalize applies the entry rules: years is capped at the pool maximum and replaces any days, more than
// 365 days becomes the maximum number of years.
func (f StakeForm) Normalize(info *PoolInfo) StakeForm {
	switch {
	case f.Years > 0:
		f.Years = min(f.Years, info.MaxDurationYears)
		f.Days = 0
	case f.Days > 365:
		f.Years = info.MaxDurationYears
		f.Days = 0
	}
	return f
}

// Validate checks the form against the wallet's balance and the pool's lockup limits.
func (f StakeForm) Validate(symbol string, balance decimal.Decimal, info *PoolInfo) error {
	duration := f.Duration()
	switch {
	case !f.Amount.IsPositive():
		return newValidationError("amount", "Please enter a valid %s amount!", symbol)
	case f.Amount.GreaterThan(balance):
		return newValidationError("amount", "You do not have enough %s!", symbol)
	case duration < info.MinDuration:
		return newValidationError("duration", "Staking duration is too short!")
	case duration > info.MaxDuration:
		return newValidationError("duration", "Staking duration is too long!")
	}
	return nil
}

func (f StakeForm) Preview(info *PoolInfo) StakePreview {
	duration := f.Duration()
	multiplier := WeightFor(duration, info.BaseWeight, info.MaxWeight, info.MaxDuration)
	return StakePreview{
		Duration:    duration,
		Multiplier:  multiplier,
		TotalWeight: PreviewReward(f.Amount, multiplier),
	}
}
