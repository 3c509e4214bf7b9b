package staking

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DerivedKeys are the pool level program addresses for a (program, mint, authority) triple.
type DerivedKeys struct {
	ProgramID     solana.PublicKey
	Mint          solana.PublicKey
	Authority     solana.PublicKey
	Pool          solana.PublicKey
	PoolBump      uint8
	Vault         solana.PublicKey
	VaultBump     uint8
	StakeMint     solana.PublicKey
	StakeMintBump uint8
}

// DeriveKeys derives the pool, vault and stake mint addresses.
func DeriveKeys(programID, mint, authority solana.PublicKey) (DerivedKeys, error) {
	keys := DerivedKeys{ProgramID: programID, Mint: mint, Authority: authority}
	var err error
	if keys.Pool, keys.PoolBump, err = DerivePoolPDA(programID, mint, authority); err != nil {
		return DerivedKeys{}, err
	}
	if keys.Vault, keys.VaultBump, err = DeriveVaultPDA(programID, keys.Pool); err != nil {
		return DerivedKeys{}, err
	}
	if keys.StakeMint, keys.StakeMintBump, err = DeriveStakeMintPDA(programID, keys.Pool); err != nil {
		return DerivedKeys{}, err
	}
	return keys, nil
}

// Receipt derives the deposit receipt address for wallet at nonce in this pool.
func (k DerivedKeys) Receipt(wallet solana.PublicKey, nonce uint32) (solana.PublicKey, error) {
	receipt, _, err := DeriveReceiptPDA(k.ProgramID, wallet, k.Pool, nonce)
	return receipt, err
}

func DerivePoolPDA(programID, mint, authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{
		{PoolNonce},
		mint[:],
		authority[:],
		[]byte(SeedStakePool),
	}
	return findProgramAddress("stake pool", seeds, programID)
}

func DeriveVaultPDA(programID, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{
		pool[:],
		[]byte(SeedVault),
	}
	return findProgramAddress("vault", seeds, programID)
}

func DeriveStakeMintPDA(programID, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{
		pool[:],
		[]byte(SeedStakeMint),
	}
	return findProgramAddress("stake mint", seeds, programID)
}

func DeriveReceiptPDA(programID, wallet, pool solana.PublicKey, nonce uint32) (solana.PublicKey, uint8, error) {
	nonceBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(nonceBytes, nonce)

	seeds := [][]byte{
		wallet[:],
		pool[:],
		nonceBytes,
		[]byte(SeedStakeDepositReceipt),
	}
	return findProgramAddress("stake deposit receipt", seeds, programID)
}

func findProgramAddress(what string, seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: unable to derive %s address for program %s: %w", ErrConfiguration, what, programID, err)
	}
	return addr, bump, nil
}
