package sol

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var ErrNoSigner = errors.New("no local signing key for account")

type WalletSigner interface {
	HasAccount(account solana.PublicKey) bool
	// Accounts returns every account the signer holds keys for, in a stable order.
	Accounts() []solana.PublicKey
	// SignTransaction signs tx with every required signer it holds keys for.  It fails if any required
	// signer is missing.
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// FindFirstSigner returns the first of the accounts the signer has keys for.
func FindFirstSigner(signer WalletSigner, accounts []solana.PublicKey) (solana.PublicKey, error) {
	for _, account := range accounts {
		if signer.HasAccount(account) {
			return account, nil
		}
	}
	return solana.PublicKey{}, fmt.Errorf("%w: none of %v", ErrNoSigner, accounts)
}

// NewUnsignedTransaction builds a transaction for an external wallet to sign.  Signature slots are
// present but zeroed, which is what browser wallets expect when deserializing a transaction to sign.
func NewUnsignedTransaction(instructions []solana.Instruction, blockhash solana.Hash, feePayer solana.PublicKey) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	return tx, nil
}

// EncodeTransaction returns the wire form of tx as base64.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
