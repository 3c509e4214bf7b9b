package staking

import (
	"errors"
	"fmt"

	"github.com/TxnLab/splstake/internal/lib/sol"
)

var (
	ErrConfiguration        = errors.New("configuration error")
	ErrAccountNotFound      = errors.New("account not found")
	ErrValidation           = errors.New("invalid request")
	ErrProgramRejection     = errors.New("transaction rejected by staking program")
	ErrIndeterminateOutcome = errors.New("transaction outcome unknown")
	ErrTransientNetwork     = errors.New("network error")

	ErrNoRewardsToClaim  = errors.New("no rewards to claim")
	ErrOperationInFlight = errors.New("another operation for this wallet is still in progress")
	ErrStakeStillLocked  = errors.New("stake is still locked")
)

// Kind is the coarse classification of an error surfaced to callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindAccountNotFound
	KindValidation
	KindProgramRejection
	KindIndeterminateOutcome
	KindTransientNetwork
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAccountNotFound:
		return "account_not_found"
	case KindValidation:
		return "validation"
	case KindProgramRejection:
		return "program_rejection"
	case KindIndeterminateOutcome:
		return "indeterminate_outcome"
	case KindTransientNetwork:
		return "transient_network"
	}
	return "unknown"
}

// Retryable is true only for failed reads.  Mutations are never resubmitted automatically.
func (k Kind) Retryable() bool {
	return k == KindTransientNetwork
}

// ValidationError is a client side check that failed before anything was sent.  Message is suitable for
// display as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Well known anchor framework error codes
const (
	anchorInstructionMissing             = 100
	anchorInstructionDidNotDeserialize   = 102
	anchorConstraintMut                  = 2000
	anchorConstraintSeeds                = 2006
	anchorAccountDiscriminatorNotFound   = 3001
	anchorAccountDiscriminatorMismatch   = 3002
	anchorAccountDidNotDeserialize       = 3003
	anchorAccountNotEnoughKeys           = 3005
	anchorAccountOwnedByWrongProgram     = 3007
	anchorAccountNotInitialized          = 3012
	anchorCustomProgramErrorCodeStartsAt = 6000
)

var programErrorMessages = map[uint32]string{
	anchorInstructionMissing:           "The staking program did not recognize the instruction.",
	anchorInstructionDidNotDeserialize: "The staking program could not decode the instruction arguments.",
	anchorConstraintMut:                "An account that must be writable was passed read-only.",
	anchorConstraintSeeds:              "An account address did not match its expected derivation.",
	anchorAccountDiscriminatorNotFound: "An account passed to the program has no data.",
	anchorAccountDiscriminatorMismatch: "An account passed to the program has the wrong type.",
	anchorAccountDidNotDeserialize:     "An account passed to the program could not be decoded.",
	anchorAccountNotEnoughKeys:         "Not enough accounts were passed to the program.",
	anchorAccountOwnedByWrongProgram:   "An account passed to the program is owned by a different program.",
	anchorAccountNotInitialized:        "The program expected this account to be already initialized.",
}

// ProgramError is a transaction the staking program executed and rejected.
type ProgramError struct {
	*sol.TxRejectedError
	Code    uint32
	HasCode bool
}

func (e *ProgramError) Error() string {
	return e.TxRejectedError.Error()
}

func (e *ProgramError) Unwrap() error {
	return e.TxRejectedError
}

func (e *ProgramError) Is(target error) bool {
	return target == ErrProgramRejection
}

// Message maps the failure to something a user can act on, falling back to the raw error detail.
func (e *ProgramError) Message() string {
	if e.HasCode {
		if msg, found := programErrorMessages[e.Code]; found {
			return msg
		}
		if e.Code >= anchorCustomProgramErrorCodeStartsAt {
			return fmt.Sprintf("The staking program rejected the transaction (error %d).", e.Code)
		}
	}
	return fmt.Sprintf("The transaction failed: %s", e.Detail())
}

// OutcomeUnknownError wraps a confirmation timeout with a link the user can follow.
type OutcomeUnknownError struct {
	*sol.IndeterminateError
	ExplorerURL string
}

func (e *OutcomeUnknownError) Unwrap() error {
	return e.IndeterminateError
}

func (e *OutcomeUnknownError) Is(target error) bool {
	return target == ErrIndeterminateOutcome
}

// classifySubmitError converts executor results into this package's error taxonomy.
func classifySubmitError(err error, explorerURL func(string) string) error {
	if err == nil {
		return nil
	}
	var rejected *sol.TxRejectedError
	if errors.As(err, &rejected) {
		code, ok := rejected.CustomCode()
		return &ProgramError{TxRejectedError: rejected, Code: code, HasCode: ok}
	}
	var indeterminate *sol.IndeterminateError
	if errors.As(err, &indeterminate) {
		out := &OutcomeUnknownError{IndeterminateError: indeterminate}
		if explorerURL != nil {
			out.ExplorerURL = explorerURL(indeterminate.Signature.String())
		}
		return out
	}
	if errors.Is(err, sol.ErrTransport) {
		return fmt.Errorf("%w: %w", ErrTransientNetwork, err)
	}
	if errors.Is(err, sol.ErrNoSigner) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return err
}

// Classify maps any error returned by this package (or the sol executor) to its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConfiguration), errors.Is(err, sol.ErrNoSigner):
		return KindConfiguration
	case errors.Is(err, ErrAccountNotFound):
		return KindAccountNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNoRewardsToClaim), errors.Is(err, ErrOperationInFlight):
		return KindValidation
	case errors.Is(err, ErrProgramRejection), errors.Is(err, ErrStakeStillLocked):
		return KindProgramRejection
	case errors.Is(err, ErrIndeterminateOutcome), errors.Is(err, sol.ErrConfirmationTimeout):
		return KindIndeterminateOutcome
	case errors.Is(err, ErrTransientNetwork), errors.Is(err, sol.ErrTransport):
		return KindTransientNetwork
	}
	var rejected *sol.TxRejectedError
	if errors.As(err, &rejected) {
		return KindProgramRejection
	}
	return KindUnknown
}

// UserMessage renders err as a message for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	if errors.Is(err, ErrStakeStillLocked) {
		return "This stake is still locked and cannot be withdrawn yet."
	}
	var programErr *ProgramError
	if errors.As(err, &programErr) {
		return programErr.Message()
	}
	var unknown *OutcomeUnknownError
	if errors.As(err, &unknown) {
		if unknown.ExplorerURL != "" {
			return fmt.Sprintf("%s: %s", unknown.IndeterminateError.Error(), unknown.ExplorerURL)
		}
		return unknown.IndeterminateError.Error()
	}
	var indeterminate *sol.IndeterminateError
	if errors.As(err, &indeterminate) {
		return indeterminate.Error()
	}
	switch Classify(err) {
	case KindConfiguration:
		return "The staking client is misconfigured: " + err.Error()
	case KindAccountNotFound:
		return "The staking pool is unavailable."
	case KindValidation:
		if errors.Is(err, ErrNoRewardsToClaim) {
			return "No rewards to claim."
		}
		if errors.Is(err, ErrOperationInFlight) {
			return "Please wait for the previous transaction to finish."
		}
	case KindTransientNetwork:
		return "Unable to reach the network, please try again."
	}
	return err.Error()
}
