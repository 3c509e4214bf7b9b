package staking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/TxnLab/splstake/internal/lib/sol"
)

// PreparedTx is the instruction set for a single transaction, fee payer = wallet.
type PreparedTx struct {
	FeePayer      solana.PublicKey
	Instructions  []solana.Instruction
	Receipt       solana.PublicKey
	Nonce         uint32
	RewardWallets []RewardPoolWallet
}

type DepositRequest struct {
	Wallet      solana.PublicKey
	Amount      decimal.Decimal // in whole tokens
	Duration    uint64          // lockup in seconds
	RewardPools []RewardPool
}

// ReceiptRequest targets an existing receipt (claim / withdraw).  Nonce is not verified - it must be the
// nonce of an open receipt.
type ReceiptRequest struct {
	Wallet      solana.PublicKey
	Nonce       uint32
	RewardPools []RewardPool
}

// TransactionBuilder assembles the deposit, claim_all and withdraw transactions for one pool.
type TransactionBuilder struct {
	log         *slog.Logger
	keys        DerivedKeys
	query       *AccountQuery
	provisioner *RewardAccountProvisioner
}

func NewTransactionBuilder(log *slog.Logger, keys DerivedKeys, query *AccountQuery) *TransactionBuilder {
	return &TransactionBuilder{
		log:         log,
		keys:        keys,
		query:       query,
		provisioner: NewRewardAccountProvisioner(log, query),
	}
}

func (b *TransactionBuilder) Deposit(ctx context.Context, req DepositRequest) (*PreparedTx, error) {
	if !req.Amount.IsPositive() {
		return nil, newValidationError("amount", "deposit amount must be positive, got %s", req.Amount)
	}
	decimals, err := b.query.FetchTokenDecimals(ctx, b.keys.Mint)
	if err != nil {
		return nil, err
	}
	rawAmount, err := sol.ToRawAmount(req.Amount, decimals)
	if err != nil || rawAmount == 0 {
		return nil, newValidationError("amount", "deposit amount %s is not a valid amount for a token w/ %d decimals", req.Amount, decimals)
	}

	nonce, err := b.query.FetchNextUnusedNonce(ctx, req.Wallet, b.keys.Pool)
	if err != nil {
		return nil, err
	}
	receipt, err := b.keys.Receipt(req.Wallet, nonce)
	if err != nil {
		return nil, err
	}
	from, err := associatedTokenAddress(req.Wallet, b.keys.Mint)
	if err != nil {
		return nil, err
	}
	destination, createIx, err := b.provisioner.EnsureTokenAccount(ctx, req.Wallet, b.keys.StakeMint)
	if err != nil {
		return nil, err
	}

	// deposits don't pay out, so reward vaults are passed read-only and w/o destinations
	var remaining []*solana.AccountMeta
	for _, pool := range FilterConfigured(req.RewardPools) {
		remaining = append(remaining, solana.Meta(pool.RewardVault))
	}

	depositIx, err := BuildDepositInstruction(b.keys.ProgramID, DepositAccounts{
		Payer:       req.Wallet,
		Owner:       req.Wallet,
		From:        from,
		Vault:       b.keys.Vault,
		StakeMint:   b.keys.StakeMint,
		Destination: destination,
		StakePool:   b.keys.Pool,
		Receipt:     receipt,
	}, nonce, rawAmount, req.Duration, remaining)
	if err != nil {
		return nil, err
	}

	tx := &PreparedTx{FeePayer: req.Wallet, Receipt: receipt, Nonce: nonce}
	if createIx != nil {
		tx.Instructions = append(tx.Instructions, createIx)
	}
	tx.Instructions = append(tx.Instructions, depositIx)
	b.log.Debug("built deposit", "wallet", req.Wallet, "nonce", nonce, "raw_amount", rawAmount, "duration", req.Duration)
	return tx, nil
}

// ClaimAll claims from every configured reward pool in a single instruction.  It fails w/ ErrNoRewardsToClaim
// before touching the network if no reward pool is configured.
func (b *TransactionBuilder) ClaimAll(ctx context.Context, req ReceiptRequest) (*PreparedTx, error) {
	pools := FilterConfigured(req.RewardPools)
	if len(pools) == 0 {
		return nil, ErrNoRewardsToClaim
	}
	receipt, err := b.keys.Receipt(req.Wallet, req.Nonce)
	if err != nil {
		return nil, err
	}
	provisioned, err := b.provisioner.Provision(ctx, req.Wallet, pools)
	if err != nil {
		return nil, err
	}
	claimIx := BuildClaimAllInstruction(b.keys.ProgramID, ClaimAccounts{
		Owner:     req.Wallet,
		StakePool: b.keys.Pool,
		Receipt:   receipt,
	}, provisioned.RemainingAccounts)

	return &PreparedTx{
		FeePayer:      req.Wallet,
		Instructions:  append(provisioned.PreInstructions, claimIx),
		Receipt:       receipt,
		Nonce:         req.Nonce,
		RewardWallets: provisioned.Wallets,
	}, nil
}

// Withdraw returns the deposit (claiming any outstanding rewards) and closes the receipt.  Whether the
// lockup has elapsed is left to the program.
func (b *TransactionBuilder) Withdraw(ctx context.Context, req ReceiptRequest) (*PreparedTx, error) {
	pools := FilterConfigured(req.RewardPools)
	receipt, err := b.keys.Receipt(req.Wallet, req.Nonce)
	if err != nil {
		return nil, err
	}
	provisioned, err := b.provisioner.Provision(ctx, req.Wallet, pools)
	if err != nil {
		return nil, err
	}
	from, err := associatedTokenAddress(req.Wallet, b.keys.StakeMint)
	if err != nil {
		return nil, err
	}
	destination, createIx, err := b.provisioner.EnsureTokenAccount(ctx, req.Wallet, b.keys.Mint)
	if err != nil {
		return nil, err
	}
	withdrawIx := BuildWithdrawInstruction(b.keys.ProgramID, WithdrawAccounts{
		ClaimAccounts: ClaimAccounts{
			Owner:     req.Wallet,
			StakePool: b.keys.Pool,
			Receipt:   receipt,
		},
		Vault:       b.keys.Vault,
		StakeMint:   b.keys.StakeMint,
		From:        from,
		Destination: destination,
	}, provisioned.RemainingAccounts)

	instructions := provisioned.PreInstructions
	if createIx != nil && !provisioned.Creates(destination) {
		instructions = append(instructions, createIx)
	}
	return &PreparedTx{
		FeePayer:      req.Wallet,
		Instructions:  append(instructions, withdrawIx),
		Receipt:       receipt,
		Nonce:         req.Nonce,
		RewardWallets: provisioned.Wallets,
	}, nil
}

func associatedTokenAddress(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: deriving token account of %s for mint %s: %w", ErrConfiguration, wallet, mint, err)
	}
	return ata, nil
}
