package staking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/mailgun/holster/v4/syncutil"
)

const provisionConcurrency = 10

// RewardPoolWallet is a configured reward vault and the user's destination account for its rewards.
type RewardPoolWallet struct {
	RewardVault solana.PublicKey
	RewardMint  solana.PublicKey
	Destination solana.PublicKey
	// Exists is false if Destination has to be created before rewards can be paid into it
	Exists bool
}

// Provisioned are the extra accounts and instructions needed to pay out rewards to a wallet.
type Provisioned struct {
	// RemainingAccounts alternates [vault, destination] in reward pool order
	RemainingAccounts []*solana.AccountMeta
	PreInstructions   []solana.Instruction
	Wallets           []RewardPoolWallet

	created map[solana.PublicKey]struct{}
}

// Creates is true if PreInstructions already create account.
func (p Provisioned) Creates(account solana.PublicKey) bool {
	_, found := p.created[account]
	return found
}

// FilterConfigured drops unused reward pool slots, preserving order.
func FilterConfigured(pools []RewardPool) []RewardPool {
	configured := make([]RewardPool, 0, len(pools))
	for _, pool := range pools {
		if pool.IsConfigured() {
			configured = append(configured, pool)
		}
	}
	return configured
}

type RewardAccountProvisioner struct {
	log   *slog.Logger
	query *AccountQuery
}

func NewRewardAccountProvisioner(log *slog.Logger, query *AccountQuery) *RewardAccountProvisioner {
	return &RewardAccountProvisioner{log: log, query: query}
}

// Provision determines the reward destination account of wallet for each of the (already filtered) reward
// pools, emitting create instructions for destinations that don't exist yet.  Lookups run concurrently but
// the output order always matches pools.
func (p *RewardAccountProvisioner) Provision(ctx context.Context, wallet solana.PublicKey, pools []RewardPool) (Provisioned, error) {
	var (
		fanOut  = syncutil.NewFanOut(provisionConcurrency)
		wallets = make([]RewardPoolWallet, len(pools))
	)
	for i, pool := range pools {
		fanOut.Run(func(val any) error {
			idx := val.(int)
			rewardWallet, err := p.resolveRewardWallet(ctx, wallet, pool.RewardVault)
			if err != nil {
				return err
			}
			wallets[idx] = rewardWallet
			return nil
		}, i)
	}
	if errs := fanOut.Wait(); len(errs) > 0 {
		return Provisioned{}, errors.Join(errs...)
	}

	// reward pools sharing a mint share a destination - it's only created once
	out := Provisioned{Wallets: wallets, created: map[solana.PublicKey]struct{}{}}
	for _, rewardWallet := range wallets {
		out.RemainingAccounts = append(out.RemainingAccounts,
			solana.Meta(rewardWallet.RewardVault).WRITE(),
			solana.Meta(rewardWallet.Destination).WRITE(),
		)
		if !rewardWallet.Exists && !out.Creates(rewardWallet.Destination) {
			out.created[rewardWallet.Destination] = struct{}{}
			out.PreInstructions = append(out.PreInstructions,
				associatedtokenaccount.NewCreateInstruction(wallet, wallet, rewardWallet.RewardMint).Build())
		}
	}
	return out, nil
}

func (p *RewardAccountProvisioner) resolveRewardWallet(ctx context.Context, wallet, vault solana.PublicKey) (RewardPoolWallet, error) {
	vaultLookup, err := p.query.FetchTokenAccount(ctx, vault)
	if err != nil {
		return RewardPoolWallet{}, err
	}
	vaultAccount, ok := vaultLookup.Present()
	if !ok {
		return RewardPoolWallet{}, fmt.Errorf("%w: reward vault %s", ErrAccountNotFound, vault)
	}
	destination, exists, err := p.associatedTokenAccount(ctx, wallet, vaultAccount.Mint)
	if err != nil {
		return RewardPoolWallet{}, err
	}
	return RewardPoolWallet{
		RewardVault: vault,
		RewardMint:  vaultAccount.Mint,
		Destination: destination,
		Exists:      exists,
	}, nil
}

// EnsureTokenAccount returns wallet's associated token account for mint, and a create instruction (paid
// for by wallet) if the account doesn't exist yet.
func (p *RewardAccountProvisioner) EnsureTokenAccount(ctx context.Context, wallet, mint solana.PublicKey) (solana.PublicKey, solana.Instruction, error) {
	ata, exists, err := p.associatedTokenAccount(ctx, wallet, mint)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	if exists {
		return ata, nil, nil
	}
	p.log.Debug("associated token account missing, will create", "wallet", wallet, "mint", mint, "ata", ata)
	return ata, associatedtokenaccount.NewCreateInstruction(wallet, wallet, mint).Build(), nil
}

func (p *RewardAccountProvisioner) associatedTokenAccount(ctx context.Context, wallet, mint solana.PublicKey) (solana.PublicKey, bool, error) {
	ata, err := associatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, false, err
	}
	exists, err := p.query.AccountExists(ctx, ata)
	if err != nil {
		return solana.PublicKey{}, false, err
	}
	return ata, exists, nil
}
