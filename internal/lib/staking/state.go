package staking

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

var errDiscriminatorMismatch = errors.New("account discriminator mismatch")

// StakePool is the decoded pool configuration account.
type StakePool struct {
	Address            solana.PublicKey
	Creator            solana.PublicKey
	Authority          solana.PublicKey
	TotalWeightedStake *big.Int
	Vault              solana.PublicKey
	Mint               solana.PublicKey
	StakeMint          solana.PublicKey
	RewardPools        [MaxRewardPools]RewardPool
	// BaseWeight and MaxWeight are scaled by ScaleFactorBase
	BaseWeight  uint64
	MaxWeight   uint64
	MinDuration uint64 // seconds
	MaxDuration uint64 // seconds
	Nonce       uint8
	BumpSeed    uint8
}

type RewardPool struct {
	RewardVault              solana.PublicKey `json:"rewardVault"`
	RewardsPerEffectiveStake *big.Int         `json:"rewardsPerEffectiveStake"`
	LastAmount               uint64           `json:"lastAmount"`
}

// IsConfigured is false for unused reward pool slots (vault is the default/null key).
func (r RewardPool) IsConfigured() bool {
	return !r.RewardVault.IsZero()
}

// Validate checks the pool's own invariants.
func (p *StakePool) Validate() error {
	if p.MinDuration > p.MaxDuration {
		return fmt.Errorf("%w: stake pool %s min duration %d exceeds max duration %d", ErrValidation, p.Address, p.MinDuration, p.MaxDuration)
	}
	if p.BaseWeight > p.MaxWeight {
		return fmt.Errorf("%w: stake pool %s base weight %d exceeds max weight %d", ErrValidation, p.Address, p.BaseWeight, p.MaxWeight)
	}
	return nil
}

// StakeDepositReceipt is a single deposit into the pool.
type StakeDepositReceipt struct {
	Address solana.PublicKey
	// Nonce isn't stored on-chain, it's set when the receipt was located by nonce
	Nonce            uint32
	Owner            solana.PublicKey
	Payer            solana.PublicKey
	StakePool        solana.PublicKey
	LockupDuration   uint64 // seconds
	DepositTimestamp int64  // unix seconds
	DepositAmount    uint64 // raw token units
	EffectiveStake   *big.Int
	ClaimedAmounts   [MaxRewardPools]*big.Int
}

func (r *StakeDepositReceipt) StakedAt() time.Time {
	return time.Unix(r.DepositTimestamp, 0)
}

func (r *StakeDepositReceipt) UnlockAt() time.Time {
	return time.Unix(r.DepositTimestamp+int64(r.LockupDuration), 0)
}

func (r *StakeDepositReceipt) IsLocked(now time.Time) bool {
	return now.Before(r.UnlockAt())
}

// on-chain layouts

type rewardPoolLayout struct {
	RewardVault              solana.PublicKey
	RewardsPerEffectiveStake [16]byte
	LastAmount               uint64
	Padding                  [8]byte
}

type stakePoolLayout struct {
	Discriminator      [8]byte
	Creator            solana.PublicKey
	Authority          solana.PublicKey
	TotalWeightedStake [16]byte
	Vault              solana.PublicKey
	Mint               solana.PublicKey
	StakeMint          solana.PublicKey
	RewardPools        [MaxRewardPools]rewardPoolLayout
	BaseWeight         uint64
	MaxWeight          uint64
	MinDuration        uint64
	MaxDuration        uint64
	Nonce              uint8
	BumpSeed           uint8
	Padding            [14]byte
	Reserved           [256]byte
}

type stakeDepositReceiptLayout struct {
	Discriminator    [8]byte
	Owner            solana.PublicKey
	Payer            solana.PublicKey
	StakePool        solana.PublicKey
	LockupDuration   uint64
	DepositTimestamp int64
	DepositAmount    uint64
	EffectiveStake   [16]byte
	ClaimedAmounts   [MaxRewardPools][16]byte
}

// DecodeStakePool decodes the raw StakePool account data.
func DecodeStakePool(address solana.PublicKey, data []byte) (*StakePool, error) {
	var layout stakePoolLayout
	if err := decodeAnchorAccount(data, stakePoolDiscriminator, &layout); err != nil {
		return nil, fmt.Errorf("decoding stake pool %s: %w", address, err)
	}
	pool := &StakePool{
		Address:            address,
		Creator:            layout.Creator,
		Authority:          layout.Authority,
		TotalWeightedStake: u128ToBig(layout.TotalWeightedStake),
		Vault:              layout.Vault,
		Mint:               layout.Mint,
		StakeMint:          layout.StakeMint,
		BaseWeight:         layout.BaseWeight,
		MaxWeight:          layout.MaxWeight,
		MinDuration:        layout.MinDuration,
		MaxDuration:        layout.MaxDuration,
		Nonce:              layout.Nonce,
		BumpSeed:           layout.BumpSeed,
	}
	for i, rp := range layout.RewardPools {
		pool.RewardPools[i] = RewardPool{
			RewardVault:              rp.RewardVault,
			RewardsPerEffectiveStake: u128ToBig(rp.RewardsPerEffectiveStake),
			LastAmount:               rp.LastAmount,
		}
	}
	if err := pool.Validate(); err != nil {
		return nil, err
	}
	return pool, nil
}

// DecodeStakeDepositReceipt decodes the raw StakeDepositReceipt account data.
func DecodeStakeDepositReceipt(address solana.PublicKey, data []byte) (*StakeDepositReceipt, error) {
	var layout stakeDepositReceiptLayout
	if err := decodeAnchorAccount(data, stakeDepositReceiptDiscriminator, &layout); err != nil {
		return nil, fmt.Errorf("decoding stake deposit receipt %s: %w", address, err)
	}
	receipt := &StakeDepositReceipt{
		Address:          address,
		Owner:            layout.Owner,
		Payer:            layout.Payer,
		StakePool:        layout.StakePool,
		LockupDuration:   layout.LockupDuration,
		DepositTimestamp: layout.DepositTimestamp,
		DepositAmount:    layout.DepositAmount,
		EffectiveStake:   u128ToBig(layout.EffectiveStake),
	}
	for i, claimed := range layout.ClaimedAmounts {
		receipt.ClaimedAmounts[i] = u128ToBig(claimed)
	}
	return receipt, nil
}

func decodeAnchorAccount(data []byte, discriminator [8]byte, out any) error {
	if len(data) < len(discriminator) {
		return fmt.Errorf("account data too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:len(discriminator)], discriminator[:]) {
		return errDiscriminatorMismatch
	}
	return bin.NewBorshDecoder(data).Decode(out)
}

func decodeMint(data []byte) (*token.Mint, error) {
	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, fmt.Errorf("decoding token mint: %w", err)
	}
	return &mint, nil
}

func decodeTokenAccount(data []byte) (*token.Account, error) {
	var account token.Account
	if err := bin.NewBinDecoder(data).Decode(&account); err != nil {
		return nil, fmt.Errorf("decoding token account: %w", err)
	}
	return &account, nil
}

// u128ToBig converts a little endian u128 to a big.Int
func u128ToBig(le [16]byte) *big.Int {
	var be [16]byte
	for i := range le {
		be[15-i] = le[i]
	}
	return new(big.Int).SetBytes(be[:])
}
