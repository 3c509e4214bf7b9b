package sol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrTransport marks a failed rpc round trip (connectivity, http errors, node unavailable).
	ErrTransport = errors.New("rpc transport failure")

	// ErrConfirmationTimeout is matched by IndeterminateError - the transaction was sent but its outcome
	// wasn't observed in time.
	ErrConfirmationTimeout = errors.New("transaction not confirmed in time")
)

// IndeterminateError is returned when a sent transaction wasn't confirmed within the confirmation
// timeout.  It may still land - callers must not blindly resubmit.
type IndeterminateError struct {
	Signature solana.Signature
	Timeout   float64 // seconds
}

func (e *IndeterminateError) Error() string {
	return fmt.Sprintf("transaction was not confirmed in %.2f seconds. It is unknown if it succeeded or failed. Check signature %s",
		e.Timeout, e.Signature)
}

func (e *IndeterminateError) Is(target error) bool {
	return target == ErrConfirmationTimeout
}

// TxRejectedError is a transaction the cluster executed and failed.  TxErr is the raw error value from the
// signature status, ie: {"InstructionError":[1,{"Custom":6003}]}
type TxRejectedError struct {
	Signature solana.Signature
	TxErr     any
}

func (e *TxRejectedError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Detail())
}

// Detail renders the raw transaction error as compact json.
func (e *TxRejectedError) Detail() string {
	b, err := json.Marshal(e.TxErr)
	if err != nil {
		return fmt.Sprintf("%v", e.TxErr)
	}
	return string(b)
}

// InstructionIndex returns the index of the failing instruction, if the error is an instruction error.
func (e *TxRejectedError) InstructionIndex() (int, bool) {
	ixIndex, _, ok := e.instructionError()
	return ixIndex, ok
}

// CustomCode returns the program specific error code, if the failure was a custom program error.
func (e *TxRejectedError) CustomCode() (uint32, bool) {
	_, detail, ok := e.instructionError()
	if !ok {
		return 0, false
	}
	obj, ok := detail.(map[string]any)
	if !ok {
		return 0, false
	}
	code, ok := obj["Custom"].(float64)
	if !ok {
		// may have been decoded w/ UseNumber
		if num, isNum := obj["Custom"].(json.Number); isNum {
			val, err := num.Int64()
			return uint32(val), err == nil
		}
		return 0, false
	}
	return uint32(code), true
}

func (e *TxRejectedError) instructionError() (int, any, bool) {
	obj, ok := e.TxErr.(map[string]any)
	if !ok {
		return 0, nil, false
	}
	pair, ok := obj["InstructionError"].([]any)
	if !ok || len(pair) != 2 {
		return 0, nil, false
	}
	switch idx := pair[0].(type) {
	case float64:
		return int(idx), pair[1], true
	case json.Number:
		val, err := idx.Int64()
		return int(val), pair[1], err == nil
	}
	return 0, nil, false
}
