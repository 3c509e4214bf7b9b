package staking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/TxnLab/splstake/internal/lib/misc"
	"github.com/TxnLab/splstake/internal/lib/sol"
)

const (
	// number of receipt nonces fetched per GetMultipleAccounts call when listing receipts
	receiptScanWindow = 8
	// upper bound on nonces scanned for a single wallet
	maxReceiptNonce = 4096
)

// ReceiptLookup is the result of a receipt read - either present w/ its decoded data, or absent.
type ReceiptLookup struct {
	Address solana.PublicKey
	receipt *StakeDepositReceipt
}

func (l ReceiptLookup) Present() (*StakeDepositReceipt, bool) {
	return l.receipt, l.receipt != nil
}

// TokenAccountLookup is the result of a token account read - either present w/ its decoded data, or absent.
type TokenAccountLookup struct {
	Address solana.PublicKey
	account *token.Account
}

func (l TokenAccountLookup) Present() (*token.Account, bool) {
	return l.account, l.account != nil
}

// AccountQuery reads and decodes staking program and token accounts.  Every call is a fresh point in time
// read - nothing is cached.
type AccountQuery struct {
	log        *slog.Logger
	rpc        sol.RPCClient
	programID  solana.PublicKey
	commitment solanarpc.CommitmentType
}

func NewAccountQuery(log *slog.Logger, rpc sol.RPCClient, programID solana.PublicKey) *AccountQuery {
	return &AccountQuery{
		log:        log,
		rpc:        rpc,
		programID:  programID,
		commitment: solanarpc.CommitmentConfirmed,
	}
}

// FetchPoolConfig fetches and decodes the stake pool, failing w/ ErrAccountNotFound if it doesn't exist.
func (q *AccountQuery) FetchPoolConfig(ctx context.Context, pool solana.PublicKey) (*StakePool, error) {
	data, found, err := q.getAccountData(ctx, pool)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: stake pool %s has not been initialized", ErrAccountNotFound, pool)
	}
	return DecodeStakePool(pool, data)
}

// FetchTokenDecimals returns the decimals of the mint.  A missing mint is treated as 0 decimals.
func (q *AccountQuery) FetchTokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	data, found, err := q.getAccountData(ctx, mint)
	if err != nil {
		return 0, err
	}
	if !found {
		misc.Warnf(q.log, "token mint %s not found, using 0 decimals", mint)
		return 0, nil
	}
	decoded, err := decodeMint(data)
	if err != nil {
		return 0, fmt.Errorf("mint %s: %w", mint, err)
	}
	return decoded.Decimals, nil
}

// FetchVaultBalance returns the token balance of vault, scaled by decimals.  Missing vaults have 0 balance.
func (q *AccountQuery) FetchVaultBalance(ctx context.Context, vault solana.PublicKey, decimals uint8) (decimal.Decimal, error) {
	lookup, err := q.FetchTokenAccount(ctx, vault)
	if err != nil {
		return decimal.Zero, err
	}
	account, ok := lookup.Present()
	if !ok {
		return decimal.Zero, nil
	}
	return sol.FromRawAmount(account.Amount, decimals), nil
}

// FetchTokenAccount reads a token account (typically an associated token account).
func (q *AccountQuery) FetchTokenAccount(ctx context.Context, address solana.PublicKey) (TokenAccountLookup, error) {
	data, found, err := q.getAccountData(ctx, address)
	if err != nil || !found {
		return TokenAccountLookup{Address: address}, err
	}
	account, err := decodeTokenAccount(data)
	if err != nil {
		return TokenAccountLookup{Address: address}, fmt.Errorf("token account %s: %w", address, err)
	}
	return TokenAccountLookup{Address: address, account: account}, nil
}

// AccountExists is a presence check w/ no decoding.
func (q *AccountQuery) AccountExists(ctx context.Context, address solana.PublicKey) (bool, error) {
	_, found, err := q.getAccountData(ctx, address)
	return found, err
}

// FetchWalletBalance sums the balances of every token account wallet holds for mint.
func (q *AccountQuery) FetchWalletBalance(ctx context.Context, wallet, mint solana.PublicKey, decimals uint8) (decimal.Decimal, error) {
	result, err := q.rpc.GetTokenAccountsByOwner(ctx, wallet,
		&solanarpc.GetTokenAccountsConfig{Mint: mint.ToPointer()},
		&solanarpc.GetTokenAccountsOpts{Commitment: q.commitment, Encoding: solana.EncodingBase64})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: fetching token accounts of %s: %w", ErrTransientNetwork, wallet, err)
	}
	// summed as a big.Int, the total over several accounts can exceed a uint64
	total := new(big.Int)
	for _, tokenAccount := range result.Value {
		if tokenAccount == nil || tokenAccount.Account.Data == nil {
			continue
		}
		account, err := decodeTokenAccount(tokenAccount.Account.Data.GetBinary())
		if err != nil {
			return decimal.Zero, fmt.Errorf("token account %s: %w", tokenAccount.Pubkey, err)
		}
		total.Add(total, new(big.Int).SetUint64(account.Amount))
	}
	return sol.FromRawBigAmount(total, decimals), nil
}

// FetchReceipt reads a single deposit receipt.
func (q *AccountQuery) FetchReceipt(ctx context.Context, receipt solana.PublicKey) (ReceiptLookup, error) {
	data, found, err := q.getAccountData(ctx, receipt)
	if err != nil || !found {
		return ReceiptLookup{Address: receipt}, err
	}
	decoded, err := DecodeStakeDepositReceipt(receipt, data)
	if err != nil {
		return ReceiptLookup{Address: receipt}, err
	}
	return ReceiptLookup{Address: receipt, receipt: decoded}, nil
}

// FetchNextUnusedNonce scans receipts from nonce 0 and returns the first nonce w/ no receipt account.
func (q *AccountQuery) FetchNextUnusedNonce(ctx context.Context, wallet, pool solana.PublicKey) (uint32, error) {
	for nonce := uint32(0); nonce < maxReceiptNonce; nonce++ {
		receipt, _, err := DeriveReceiptPDA(q.programID, wallet, pool, nonce)
		if err != nil {
			return 0, err
		}
		found, err := q.AccountExists(ctx, receipt)
		if err != nil {
			return 0, err
		}
		if !found {
			return nonce, nil
		}
	}
	return 0, fmt.Errorf("%w: wallet %s has more than %d receipts", ErrValidation, wallet, maxReceiptNonce)
}

// FetchReceipts returns every open receipt of wallet in pool, ordered by nonce.  Receipts are read in
// windows; the scan ends once an entire window has no receipts so that withdrawn (closed) receipts in the
// middle of the range don't hide later ones.
func (q *AccountQuery) FetchReceipts(ctx context.Context, wallet, pool solana.PublicKey) ([]*StakeDepositReceipt, error) {
	var receipts []*StakeDepositReceipt
	for start := uint32(0); start < maxReceiptNonce; start += receiptScanWindow {
		addresses := make([]solana.PublicKey, 0, receiptScanWindow)
		for nonce := start; nonce < start+receiptScanWindow; nonce++ {
			receipt, _, err := DeriveReceiptPDA(q.programID, wallet, pool, nonce)
			if err != nil {
				return nil, err
			}
			addresses = append(addresses, receipt)
		}
		result, err := q.rpc.GetMultipleAccountsWithOpts(ctx, addresses, &solanarpc.GetMultipleAccountsOpts{
			Commitment: q.commitment,
			Encoding:   solana.EncodingBase64,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: fetching receipts of %s: %w", ErrTransientNetwork, wallet, err)
		}
		foundInWindow := 0
		for i, account := range result.Value {
			if account == nil || i >= len(addresses) {
				continue
			}
			receipt, err := DecodeStakeDepositReceipt(addresses[i], account.Data.GetBinary())
			if err != nil {
				return nil, err
			}
			receipt.Nonce = start + uint32(i)
			receipts = append(receipts, receipt)
			foundInWindow++
		}
		if foundInWindow == 0 {
			break
		}
	}
	q.log.Debug("fetched receipts", "wallet", wallet, "count", len(receipts))
	return receipts, nil
}

func (q *AccountQuery) getAccountData(ctx context.Context, address solana.PublicKey) ([]byte, bool, error) {
	result, err := q.rpc.GetAccountInfoWithOpts(ctx, address, &solanarpc.GetAccountInfoOpts{
		Commitment: q.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, solanarpc.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: fetching account %s: %w", ErrTransientNetwork, address, err)
	}
	if result == nil || result.Value == nil {
		return nil, false, nil
	}
	return result.Value.Data.GetBinary(), true, nil
}
