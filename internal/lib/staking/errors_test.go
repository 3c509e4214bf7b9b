package staking_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"

	"github.com/TxnLab/splstake/internal/lib/sol"
	"github.com/TxnLab/splstake/internal/lib/staking"
)

func TestClassify(t *testing.T) {
	rejected := &sol.TxRejectedError{TxErr: map[string]any{"InstructionError": []any{float64(0), map[string]any{"Custom": float64(3012)}}}}
	timeout := &sol.IndeterminateError{Signature: solana.Signature{1}, Timeout: 30}

	testCases := []struct {
		err  error
		kind staking.Kind
	}{
		{fmt.Errorf("deriving: %w", staking.ErrConfiguration), staking.KindConfiguration},
		{fmt.Errorf("signing: %w", sol.ErrNoSigner), staking.KindConfiguration},
		{fmt.Errorf("pool: %w", staking.ErrAccountNotFound), staking.KindAccountNotFound},
		{staking.ErrNoRewardsToClaim, staking.KindValidation},
		{staking.ErrOperationInFlight, staking.KindValidation},
		{rejected, staking.KindProgramRejection},
		{fmt.Errorf("wrapped: %w", timeout), staking.KindIndeterminateOutcome},
		{fmt.Errorf("%w: dial tcp: refused", sol.ErrTransport), staking.KindTransientNetwork},
		{errors.New("something else"), staking.KindUnknown},
	}
	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.kind, staking.Classify(tc.err), tc.err.Error())
		})
	}
	assert.True(t, staking.KindTransientNetwork.Retryable())
	assert.False(t, staking.KindIndeterminateOutcome.Retryable())
}

func TestUserMessage(t *testing.T) {
	notInitialized := &staking.ProgramError{
		TxRejectedError: &sol.TxRejectedError{TxErr: map[string]any{"InstructionError": []any{float64(1), map[string]any{"Custom": float64(3012)}}}},
		Code:            3012,
		HasCode:         true,
	}
	assert.Equal(t, "The program expected this account to be already initialized.", staking.UserMessage(fmt.Errorf("claim failed: %w", notInitialized)))

	custom := &staking.ProgramError{TxRejectedError: &sol.TxRejectedError{}, Code: 6004, HasCode: true}
	assert.Contains(t, staking.UserMessage(custom), "error 6004")

	unknown := &staking.OutcomeUnknownError{
		IndeterminateError: &sol.IndeterminateError{Signature: solana.Signature{9}, Timeout: 30},
		ExplorerURL:        "https://explorer.solana.com/tx/abc",
	}
	msg := staking.UserMessage(unknown)
	assert.Contains(t, msg, "not confirmed in 30.00 seconds")
	assert.Contains(t, msg, "https://explorer.solana.com/tx/abc")

	assert.Equal(t, "No rewards to claim.", staking.UserMessage(staking.ErrNoRewardsToClaim))
	assert.Equal(t, "", staking.UserMessage(nil))
}
