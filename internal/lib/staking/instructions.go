package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/near/borsh-go"
)

type depositArgs struct {
	Nonce          uint32
	Amount         uint64
	LockupDuration uint64
}

// DepositAccounts is the fixed account list of the deposit instruction.
type DepositAccounts struct {
	Payer       solana.PublicKey
	Owner       solana.PublicKey
	From        solana.PublicKey // owner's token account for the pool mint
	Vault       solana.PublicKey
	StakeMint   solana.PublicKey
	Destination solana.PublicKey // owner's token account for the stake mint
	StakePool   solana.PublicKey
	Receipt     solana.PublicKey
}

// ClaimAccounts is the base account list shared by claim_all and withdraw.
type ClaimAccounts struct {
	Owner     solana.PublicKey
	StakePool solana.PublicKey
	Receipt   solana.PublicKey
}

type WithdrawAccounts struct {
	ClaimAccounts
	Vault       solana.PublicKey
	StakeMint   solana.PublicKey
	From        solana.PublicKey // owner's token account for the stake mint
	Destination solana.PublicKey // owner's token account for the pool mint
}

func BuildDepositInstruction(programID solana.PublicKey, accounts DepositAccounts, nonce uint32, amount, lockupDuration uint64, remaining []*solana.AccountMeta) (solana.Instruction, error) {
	args, err := borsh.Serialize(depositArgs{Nonce: nonce, Amount: amount, LockupDuration: lockupDuration})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize deposit args: %w", err)
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(accounts.Payer).WRITE().SIGNER(),
		solana.Meta(accounts.Owner).SIGNER(),
		solana.Meta(accounts.From).WRITE(),
		solana.Meta(accounts.Vault).WRITE(),
		solana.Meta(accounts.StakeMint).WRITE(),
		solana.Meta(accounts.Destination).WRITE(),
		solana.Meta(accounts.StakePool).WRITE(),
		solana.Meta(accounts.Receipt).WRITE(),
		solana.Meta(token.ProgramID),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(system.ProgramID),
	}
	metas = append(metas, remaining...)
	return solana.NewInstruction(programID, metas, instructionData(depositDiscriminator, args)), nil
}

func BuildClaimAllInstruction(programID solana.PublicKey, accounts ClaimAccounts, remaining []*solana.AccountMeta) solana.Instruction {
	metas := append(claimBaseMetas(accounts), remaining...)
	return solana.NewInstruction(programID, metas, instructionData(claimAllDiscriminator, nil))
}

func BuildWithdrawInstruction(programID solana.PublicKey, accounts WithdrawAccounts, remaining []*solana.AccountMeta) solana.Instruction {
	metas := append(claimBaseMetas(accounts.ClaimAccounts),
		solana.Meta(accounts.Vault).WRITE(),
		solana.Meta(accounts.StakeMint).WRITE(),
		solana.Meta(accounts.From).WRITE(),
		solana.Meta(accounts.Destination).WRITE(),
	)
	metas = append(metas, remaining...)
	return solana.NewInstruction(programID, metas, instructionData(withdrawDiscriminator, nil))
}

func claimBaseMetas(accounts ClaimAccounts) solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(accounts.Owner).SIGNER(),
		solana.Meta(accounts.StakePool).WRITE(),
		solana.Meta(accounts.Receipt).WRITE(),
		solana.Meta(token.ProgramID),
	}
}

func instructionData(discriminator [8]byte, args []byte) []byte {
	data := make([]byte, 0, len(discriminator)+len(args))
	data = append(data, discriminator[:]...)
	return append(data, args...)
}
