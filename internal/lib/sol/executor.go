package sol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultConfirmTimeout = 30 * time.Second
	defaultPollInterval   = 500 * time.Millisecond
)

// Executor signs, sends and confirms transactions.  Sending is never retried - a send error or
// confirmation timeout is returned to the caller to decide.
type Executor struct {
	log            *slog.Logger
	rpc            RPCClient
	signer         WalletSigner
	clock          clockwork.Clock
	confirmTimeout time.Duration
	pollInterval   time.Duration
	commitment     solanarpc.CommitmentType
}

type ExecutorOption func(*Executor)

func WithConfirmTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.confirmTimeout = timeout
	}
}

func WithPollInterval(interval time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.pollInterval = interval
	}
}

func WithClock(clock clockwork.Clock) ExecutorOption {
	return func(e *Executor) {
		e.clock = clock
	}
}

func WithCommitment(commitment solanarpc.CommitmentType) ExecutorOption {
	return func(e *Executor) {
		e.commitment = commitment
	}
}

func NewExecutor(log *slog.Logger, rpc RPCClient, signer WalletSigner, opts ...ExecutorOption) *Executor {
	e := &Executor{
		log:            log,
		rpc:            rpc,
		signer:         signer,
		clock:          clockwork.NewRealClock(),
		confirmTimeout: DefaultConfirmTimeout,
		pollInterval:   defaultPollInterval,
		commitment:     solanarpc.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LatestBlockhash fetches a recent blockhash, retrying transient failures as the read is safe to repeat.
func (e *Executor) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	attempt := 0
	result, err := backoff.Retry(ctx, func() (*solanarpc.GetLatestBlockhashResult, error) {
		if attempt > 0 {
			e.log.Warn("Failed to get latest blockhash, retrying", "attempt", attempt)
		}
		attempt++
		return e.rpc.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(4))
	if err != nil {
		return solana.Hash{}, fmt.Errorf("%w: failed to get latest blockhash: %w", ErrTransport, err)
	}
	if result == nil || result.Value == nil {
		return solana.Hash{}, fmt.Errorf("%w: empty latest blockhash response", ErrTransport)
	}
	return result.Value.Blockhash, nil
}

// PrepareUnsigned builds an unsigned transaction w/ a fresh blockhash for an external wallet to sign.
func (e *Executor) PrepareUnsigned(ctx context.Context, feePayer solana.PublicKey, instructions []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := e.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	return NewUnsignedTransaction(instructions, blockhash, feePayer)
}

// Submit builds, signs and sends a single transaction (skipping preflight simulation) then waits for it
// to reach the executor's commitment level.
//
// Results:
//   - signature, nil: confirmed without error
//   - signature, *TxRejectedError: executed and failed on-chain
//   - signature, *IndeterminateError: not seen as confirmed within the timeout
//   - zero signature, error wrapping ErrTransport: never sent (or send failed)
func (e *Executor) Submit(ctx context.Context, feePayer solana.PublicKey, instructions []solana.Instruction) (solana.Signature, error) {
	if e.signer == nil || !e.signer.HasAccount(feePayer) {
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrNoSigner, feePayer)
	}
	blockhash, err := e.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build transaction: %w", err)
	}
	if err = e.signer.SignTransaction(ctx, tx); err != nil {
		return solana.Signature{}, err
	}
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, errors.New("signed transaction appears malformed")
	}

	sig, err := e.rpc.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: e.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: failed to send transaction: %w", ErrTransport, err)
	}
	e.log.Debug("transaction sent", "sig", sig, "instructions", len(instructions))

	return sig, e.waitForConfirmation(ctx, sig)
}

func (e *Executor) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	start := e.clock.Now()
	deadline := start.Add(e.confirmTimeout)
	for {
		statusResp, err := e.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			// status reads are retried until the deadline - the transaction is already in flight
			e.log.Debug("signature status fetch failed", "sig", sig, "error", err)
		} else if len(statusResp.Value) > 0 && statusResp.Value[0] != nil {
			status := statusResp.Value[0]
			if status.Err != nil {
				return &TxRejectedError{Signature: sig, TxErr: status.Err}
			}
			if reachedCommitment(status.ConfirmationStatus, e.commitment) {
				e.log.Debug("transaction confirmed", "sig", sig, "duration", e.clock.Since(start))
				return nil
			}
		}
		if !e.clock.Now().Before(deadline) {
			return &IndeterminateError{Signature: sig, Timeout: e.confirmTimeout.Seconds()}
		}
		select {
		case <-ctx.Done():
			return &IndeterminateError{Signature: sig, Timeout: e.clock.Since(start).Seconds()}
		case <-e.clock.After(e.pollInterval):
		}
	}
}

func reachedCommitment(status solanarpc.ConfirmationStatusType, want solanarpc.CommitmentType) bool {
	switch want {
	case solanarpc.CommitmentFinalized:
		return status == solanarpc.ConfirmationStatusFinalized
	case solanarpc.CommitmentProcessed:
		return status != ""
	default:
		return status == solanarpc.ConfirmationStatusConfirmed || status == solanarpc.ConfirmationStatusFinalized
	}
}
