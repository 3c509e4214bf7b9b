package staking_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TxnLab/splstake/internal/lib/staking"
)

func testPoolInfo() *staking.PoolInfo {
	return &staking.PoolInfo{
		Symbol:           "STK",
		MinDuration:      30 * staking.SecondsPerDay,
		MaxDuration:      2 * staking.SecondsPerYear,
		MinDurationDays:  30,
		MaxDurationYears: 2,
		BaseWeight:       1.0,
		MaxWeight:        5.0,
	}
}

func TestStakeForm_Validate(t *testing.T) {
	info := testPoolInfo()
	balance := decimal.NewFromInt(100)

	testCases := []struct {
		name    string
		form    staking.StakeForm
		message string
	}{
		{"zero amount", staking.StakeForm{Amount: decimal.Zero, Days: 60}, "Please enter a valid STK amount!"},
		{"negative amount", staking.StakeForm{Amount: decimal.NewFromInt(-1), Days: 60}, "Please enter a valid STK amount!"},
		{"over balance", staking.StakeForm{Amount: decimal.RequireFromString("100.01"), Days: 60}, "You do not have enough STK!"},
		{"too short", staking.StakeForm{Amount: decimal.NewFromInt(5), Days: 29}, "Staking duration is too short!"},
		{"too long", staking.StakeForm{Amount: decimal.NewFromInt(5), Years: 3}, "Staking duration is too long!"},
		{"minimum", staking.StakeForm{Amount: decimal.NewFromInt(5), Days: 30}, ""},
		{"maximum", staking.StakeForm{Amount: decimal.NewFromInt(100), Years: 2}, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.form.Validate("STK", balance, info)
			if tc.message == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, staking.ErrValidation)
			assert.Equal(t, tc.message, staking.UserMessage(err))
			assert.Equal(t, staking.KindValidation, staking.Classify(err))
		})
	}
}

func TestStakeForm_Normalize(t *testing.T) {
	info := testPoolInfo()

	form := staking.StakeForm{Years: 5, Days: 10}.Normalize(info)
	assert.Equal(t, uint64(2), form.Years)
	assert.Equal(t, uint64(0), form.Days)

	form = staking.StakeForm{Days: 400}.Normalize(info)
	assert.Equal(t, uint64(2), form.Years)
	assert.Equal(t, uint64(0), form.Days)

	form = staking.StakeForm{Days: 45}.Normalize(info)
	assert.Equal(t, uint64(0), form.Years)
	assert.Equal(t, uint64(45), form.Days)
	assert.Equal(t, uint64(45*86400), form.Duration())
}

func TestStakeForm_Preview(t *testing.T) {
	info := testPoolInfo()

	preview := staking.StakeForm{Amount: decimal.NewFromInt(10), Years: 1}.Preview(info)
	assert.Equal(t, uint64(staking.SecondsPerYear), preview.Duration)
	assert.InDelta(t, 3.0, preview.Multiplier, 0.0001)
	assert.Equal(t, "30", preview.TotalWeight.String())
}
