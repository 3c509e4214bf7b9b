/*
 * Copyright (c) 2022. TxnLab Inc.
 * All Rights reserved.
 */

package sol

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/TxnLab/splstake/internal/lib/misc"
)

const (
	// KeypairFileEnvPrefix prefixes env vars holding paths to solana-keygen json keypair files
	KeypairFileEnvPrefix = "SOL_KEYPAIR"
	// PrivateKeyEnvPrefix prefixes env vars holding base58 encoded 64-byte private keys (wallet export format)
	PrivateKeyEnvPrefix = "SOL_PRIVATE_KEY"
)

// NewLocalKeyStore returns a signer holding every key found in the environment (or .env files).
func NewLocalKeyStore(log *slog.Logger) (WalletSigner, error) {
	keyStore := &localKeyStore{
		log:  log,
		keys: map[solana.PublicKey]solana.PrivateKey{},
	}
	if err := keyStore.loadFromEnvironment(); err != nil {
		return nil, err
	}
	return keyStore, nil
}

// NewKeyStore returns a signer for the given keys only - used for tests and for single explicit keys.
func NewKeyStore(log *slog.Logger, keys ...solana.PrivateKey) WalletSigner {
	keyStore := &localKeyStore{
		log:  log,
		keys: map[solana.PublicKey]solana.PrivateKey{},
	}
	for _, key := range keys {
		keyStore.keys[key.PublicKey()] = key
	}
	return keyStore
}

type localKeyStore struct {
	log *slog.Logger

	keys map[solana.PublicKey]solana.PrivateKey
}

func (lk *localKeyStore) HasAccount(account solana.PublicKey) bool {
	_, found := lk.keys[account]
	return found
}

func (lk *localKeyStore) Accounts() []solana.PublicKey {
	accounts := make([]solana.PublicKey, 0, len(lk.keys))
	for pk := range lk.keys {
		accounts = append(accounts, pk)
	}
	slices.SortFunc(accounts, func(a, b solana.PublicKey) int {
		return strings.Compare(a.String(), b.String())
	})
	return accounts
}

func (lk *localKeyStore) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if privKey, found := lk.keys[key]; found {
			return &privKey
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoSigner, err)
	}
	return nil
}

// loadFromEnvironment loads keys from environment variables (can be in .env files as well) starting with
// SOL_KEYPAIR (keypair file paths) or SOL_PRIVATE_KEY (base58 keys) and adds them to the key map.
// The number of loaded keys is logged as well as the public keys of each.
func (lk *localKeyStore) loadFromEnvironment() error {
	var numKeys int
	for _, envName := range misc.SecretKeysWithPrefix(KeypairFileEnvPrefix) {
		path := misc.GetSecret(envName)
		if path == "" {
			continue
		}
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return fmt.Errorf("failed to load keypair file from %s (%s): %w", envName, path, err)
		}
		lk.addKey(key)
		numKeys++
	}
	for _, envName := range misc.SecretKeysWithPrefix(PrivateKeyEnvPrefix) {
		encoded := misc.GetSecret(envName)
		if encoded == "" {
			continue
		}
		key, err := ParsePrivateKey(encoded)
		if err != nil {
			return fmt.Errorf("failed to load private key from %s: %w", envName, err)
		}
		lk.addKey(key)
		numKeys++
	}
	misc.Infof(lk.log, "loaded %d signing keys", numKeys)
	return nil
}

func (lk *localKeyStore) addKey(key solana.PrivateKey) {
	lk.keys[key.PublicKey()] = key
	misc.Infof(lk.log, "Added key for account:%s", key.PublicKey())
}

// ParsePrivateKey decodes a base58 encoded 64-byte ed25519 private key, verifying the embedded public key
// matches the seed.
func ParsePrivateKey(encoded string) (solana.PrivateKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("invalid base58: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length:%d, expected %d", len(raw), ed25519.PrivateKeySize)
	}
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !slices.Equal([]byte(derived), raw) {
		return nil, fmt.Errorf("private key public half doesn't match its seed")
	}
	return solana.PrivateKey(raw), nil
}
