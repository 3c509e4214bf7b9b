package staking

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

const (
	// PoolNonce is the nonce the pool authority used when initializing the pool.  Only nonce 0 pools
	// are supported.
	PoolNonce uint8 = 0

	// Seeds used in the program's address derivations
	SeedStakePool           = "stakePool"
	SeedVault               = "vault"
	SeedStakeMint           = "stakeMint"
	SeedStakeDepositReceipt = "stakeDepositReceipt"

	// MaxRewardPools is the fixed number of reward pool slots in a StakePool account.
	MaxRewardPools = 10

	// ScaleFactorBase is the fixed point scale of the pool's base/max weights.
	ScaleFactorBase = 1_000_000_000

	SecondsPerDay  = 86_400
	SecondsPerYear = 365 * SecondsPerDay
)

// DefaultProgramID is the deployed SPL token staking program.
var DefaultProgramID = solana.MustPublicKeyFromBase58("STAKEkKzbdeKkqzKpLkNQD3SUuLgshDKCD7U8duxAbB")

var (
	depositDiscriminator  = instructionDiscriminator("deposit")
	claimAllDiscriminator = instructionDiscriminator("claim_all")
	withdrawDiscriminator = instructionDiscriminator("withdraw")

	stakePoolDiscriminator           = accountDiscriminator("StakePool")
	stakeDepositReceiptDiscriminator = accountDiscriminator("StakeDepositReceipt")
)

func instructionDiscriminator(name string) [8]byte {
	return discriminator("global:" + name)
}

func accountDiscriminator(name string) [8]byte {
	return discriminator("account:" + name)
}

func discriminator(preimage string) [8]byte {
	var out [8]byte
	sum := sha256.Sum256([]byte(preimage))
	copy(out[:], sum[:8])
	return out
}
