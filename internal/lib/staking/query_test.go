package staking_test

import (
	"context"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/TxnLab/splstake/internal/lib/staking"
)

func TestFetchNextUnusedNonce(t *testing.T) {
	t.Parallel()

	tp := newTestPool(t)
	wallet := solana.NewWallet().PublicKey()
	ctx := context.Background()

	nonce, err := tp.query().FetchNextUnusedNonce(ctx, wallet, tp.keys.Pool)
	require.NoError(t, err)
	require.Equal(t, uint32(0), nonce)

	for i := uint32(0); i < 3; i++ {
		tp.addReceipt(t, wallet, i, 1_000_000, 30*staking.SecondsPerDay, testNow)
	}
	nonce, err = tp.query().FetchNextUnusedNonce(ctx, wallet, tp.keys.Pool)
	require.NoError(t, err)
	require.Equal(t, uint32(3), nonce)

	// receipts of other wallets don't matter
	nonce, err = tp.query().FetchNextUnusedNonce(ctx, solana.NewWallet().PublicKey(), tp.keys.Pool)
	require.NoError(t, err)
	require.Equal(t, uint32(0), nonce)
}

func TestFetchReceipts_SkipsClosedReceipts(t *testing.T) {
	t.Parallel()

	tp := newTestPool(t)
	wallet := solana.NewWallet().PublicKey()
	for _, nonce := range []uint32{0, 2, 9} {
		tp.addReceipt(t, wallet, nonce, uint64(nonce+1)*1_000_000, 30*staking.SecondsPerDay, testNow)
	}

	receipts, err := tp.query().FetchReceipts(context.Background(), wallet, tp.keys.Pool)
	require.NoError(t, err)
	require.Len(t, receipts, 3)
	for i, nonce := range []uint32{0, 2, 9} {
		require.Equal(t, nonce, receipts[i].Nonce)
		require.Equal(t, uint64(nonce+1)*1_000_000, receipts[i].DepositAmount)
	}
}

func TestFetchPoolConfig_NotFound(t *testing.T) {
	t.Parallel()

	tp := newTestPool(t)
	tp.removeAccount(tp.keys.Pool)

	_, err := tp.query().FetchPoolConfig(context.Background(), tp.keys.Pool)
	require.ErrorIs(t, err, staking.ErrAccountNotFound)
	require.Equal(t, staking.KindAccountNotFound, staking.Classify(err))
}

func TestFetchTokenDecimals_MissingMintIsZero(t *testing.T) {
	t.Parallel()

	tp := newTestPool(t)
	q := tp.query()

	decimals, err := q.FetchTokenDecimals(context.Background(), tp.mint)
	require.NoError(t, err)
	require.Equal(t, uint8(testDecimals), decimals)

	decimals, err = q.FetchTokenDecimals(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.Equal(t, uint8(0), decimals)
}

func TestFetchBalances(t *testing.T) {
	t.Parallel()

	tp := newTestPool(t)
	q := tp.query()
	ctx := context.Background()

	balance, err := q.FetchVaultBalance(ctx, tp.keys.Vault, testDecimals)
	require.NoError(t, err)
	require.Equal(t, "3000", balance.String())

	balance, err = q.FetchVaultBalance(ctx, solana.NewWallet().PublicKey(), testDecimals)
	require.NoError(t, err)
	require.True(t, balance.IsZero())

	wallet := solana.NewWallet().PublicKey()
	tp.rpc.setAccount(solana.NewWallet().PublicKey(), tokenAccountData(tp.mint, wallet, 1_500_000))
	tp.rpc.setAccount(solana.NewWallet().PublicKey(), tokenAccountData(tp.mint, wallet, 250_000))
	tp.rpc.setAccount(solana.NewWallet().PublicKey(), tokenAccountData(solana.NewWallet().PublicKey(), wallet, 9_000_000))

	balance, err = q.FetchWalletBalance(ctx, wallet, tp.mint, testDecimals)
	require.NoError(t, err)
	require.Equal(t, "1.75", balance.String())
}

func TestFetchTokenAccount_Lookup(t *testing.T) {
	t.Parallel()

	tp := newTestPool(t)
	lookup, err := tp.query().FetchTokenAccount(context.Background(), tp.keys.Vault)
	require.NoError(t, err)
	account, ok := lookup.Present()
	require.True(t, ok)
	require.Equal(t, tp.mint, account.Mint)

	missing := solana.NewWallet().PublicKey()
	lookup, err = tp.query().FetchTokenAccount(context.Background(), missing)
	require.NoError(t, err)
	_, ok = lookup.Present()
	require.False(t, ok)
	require.Equal(t, missing, lookup.Address)
}

func TestFetchWalletBalance_SumBeyondUint64(t *testing.T) {
	t.Parallel()

	tp := newTestPool(t)
	wallet := solana.NewWallet().PublicKey()
	tp.rpc.setAccount(solana.NewWallet().PublicKey(), tokenAccountData(tp.mint, wallet, math.MaxUint64))
	tp.rpc.setAccount(solana.NewWallet().PublicKey(), tokenAccountData(tp.mint, wallet, 1))

	balance, err := tp.query().FetchWalletBalance(context.Background(), wallet, tp.mint, 0)
	require.NoError(t, err)
	require.Equal(t, "18446744073709551616", balance.String())
}
