package staking_test

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/TxnLab/splstake/internal/lib/staking"
)

func TestDeriveKeys_Deterministic(t *testing.T) {
	t.Parallel()

	mint := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()

	first, err := staking.DeriveKeys(staking.DefaultProgramID, mint, authority)
	require.NoError(t, err)
	second, err := staking.DeriveKeys(staking.DefaultProgramID, mint, authority)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.NotEqual(t, first.Pool, first.Vault)
	require.NotEqual(t, first.Vault, first.StakeMint)

	otherAuthority, err := staking.DeriveKeys(staking.DefaultProgramID, mint, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.NotEqual(t, first.Pool, otherAuthority.Pool)
}

func TestDerivePoolPDA_Seeds(t *testing.T) {
	t.Parallel()

	mint := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()

	pool, bump, err := staking.DerivePoolPDA(staking.DefaultProgramID, mint, authority)
	require.NoError(t, err)

	expected, expectedBump, err := solana.FindProgramAddress([][]byte{
		{0}, mint[:], authority[:], []byte("stakePool"),
	}, staking.DefaultProgramID)
	require.NoError(t, err)
	require.Equal(t, expected, pool)
	require.Equal(t, expectedBump, bump)

	vault, _, err := staking.DeriveVaultPDA(staking.DefaultProgramID, pool)
	require.NoError(t, err)
	expectedVault, _, err := solana.FindProgramAddress([][]byte{pool[:], []byte("vault")}, staking.DefaultProgramID)
	require.NoError(t, err)
	require.Equal(t, expectedVault, vault)
}

func TestDeriveReceiptPDA(t *testing.T) {
	t.Parallel()

	wallet := solana.NewWallet().PublicKey()
	pool := solana.NewWallet().PublicKey()

	nonceBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(nonceBytes, 258)
	expected, _, err := solana.FindProgramAddress([][]byte{
		wallet[:], pool[:], nonceBytes, []byte("stakeDepositReceipt"),
	}, staking.DefaultProgramID)
	require.NoError(t, err)

	receipt, _, err := staking.DeriveReceiptPDA(staking.DefaultProgramID, wallet, pool, 258)
	require.NoError(t, err)
	require.Equal(t, expected, receipt)

	seen := map[solana.PublicKey]bool{}
	for nonce := uint32(0); nonce < 16; nonce++ {
		receipt, _, err := staking.DeriveReceiptPDA(staking.DefaultProgramID, wallet, pool, nonce)
		require.NoError(t, err)
		again, _, err := staking.DeriveReceiptPDA(staking.DefaultProgramID, wallet, pool, nonce)
		require.NoError(t, err)
		require.Equal(t, receipt, again)
		require.False(t, seen[receipt], "nonce %d aliases an earlier receipt", nonce)
		seen[receipt] = true
	}
}
