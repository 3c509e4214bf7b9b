package staking

import (
	"bytes"
	"math/big"

	bin "github.com/gagliardetto/binary"
)

var (
	DepositDiscriminator  = depositDiscriminator
	ClaimAllDiscriminator = claimAllDiscriminator
	WithdrawDiscriminator = withdrawDiscriminator
)

// EncodeStakePool renders pool in its on-chain account layout.
func EncodeStakePool(pool *StakePool) []byte {
	layout := stakePoolLayout{
		Discriminator:      stakePoolDiscriminator,
		Creator:            pool.Creator,
		Authority:          pool.Authority,
		TotalWeightedStake: bigToU128(pool.TotalWeightedStake),
		Vault:              pool.Vault,
		Mint:               pool.Mint,
		StakeMint:          pool.StakeMint,
		BaseWeight:         pool.BaseWeight,
		MaxWeight:          pool.MaxWeight,
		MinDuration:        pool.MinDuration,
		MaxDuration:        pool.MaxDuration,
		Nonce:              pool.Nonce,
		BumpSeed:           pool.BumpSeed,
	}
	for i, rp := range pool.RewardPools {
		layout.RewardPools[i] = rewardPoolLayout{
			RewardVault:              rp.RewardVault,
			RewardsPerEffectiveStake: bigToU128(rp.RewardsPerEffectiveStake),
			LastAmount:               rp.LastAmount,
		}
	}
	return encodeLayout(&layout)
}

// EncodeStakeDepositReceipt renders receipt in its on-chain account layout.
func EncodeStakeDepositReceipt(receipt *StakeDepositReceipt) []byte {
	layout := stakeDepositReceiptLayout{
		Discriminator:    stakeDepositReceiptDiscriminator,
		Owner:            receipt.Owner,
		Payer:            receipt.Payer,
		StakePool:        receipt.StakePool,
		LockupDuration:   receipt.LockupDuration,
		DepositTimestamp: receipt.DepositTimestamp,
		DepositAmount:    receipt.DepositAmount,
		EffectiveStake:   bigToU128(receipt.EffectiveStake),
	}
	for i, claimed := range receipt.ClaimedAmounts {
		layout.ClaimedAmounts[i] = bigToU128(claimed)
	}
	return encodeLayout(&layout)
}

func encodeLayout(layout any) []byte {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(layout); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func bigToU128(val *big.Int) [16]byte {
	var le [16]byte
	if val == nil {
		return le
	}
	be := val.FillBytes(make([]byte, 16))
	for i := range be {
		le[15-i] = be[i]
	}
	return le
}
