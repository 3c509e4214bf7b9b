package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/manifoldco/promptui"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/TxnLab/splstake/internal/lib/staking"
)

func GetStakeCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "stake",
		Aliases: []string{"s"},
		Usage:   "Deposit, claim and withdraw stakes for a wallet",
		Before:  checkConfigured,
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List the open stakes of the wallet",
				Action:  StakesList,
			},
			{
				Name:   "preview",
				Usage:  "Preview the weight multiplier for a deposit without submitting",
				Action: StakePreview,
				Flags:  depositFlags(),
			},
			{
				Name:    "deposit",
				Aliases: []string{"d"},
				Usage:   "Deposit tokens locked for a number of years or days",
				Action:  StakeDeposit,
				Flags:   append(depositFlags(), yesFlag()),
			},
			{
				Name:    "claim",
				Aliases: []string{"c"},
				Usage:   "Claim the rewards of a stake from every reward pool",
				Action:  StakeClaim,
				Flags:   []cli.Flag{nonceFlag(), yesFlag()},
			},
			{
				Name:    "withdraw",
				Aliases: []string{"w"},
				Usage:   "Withdraw an unlocked stake (claiming its rewards)",
				Action:  StakeWithdraw,
				Flags:   []cli.Flag{nonceFlag(), yesFlag()},
			},
		},
	}
}

func depositFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "amount",
			Usage:    "The amount of whole tokens to stake, ie: 12.5",
			Required: true,
		},
		&cli.UintFlag{
			Name:  "years",
			Usage: "Lockup in years (capped at the pool maximum).  Takes precedence over days",
		},
		&cli.UintFlag{
			Name:  "days",
			Usage: "Lockup in days.  More than 365 days means the pool's maximum lockup",
		},
	}
}

func nonceFlag() cli.Flag {
	return &cli.UintFlag{
		Name:     "nonce",
		Usage:    "The stake nonce (the number in 'stake list')",
		Required: true,
	}
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Don't ask for confirmation",
	}
}

func StakesList(ctx context.Context, command *cli.Command) error {
	wallet, err := App.activeWallet()
	if err != nil {
		return err
	}
	stakes, err := App.client.GetUserStakes(ctx, wallet)
	if err != nil {
		return cliError(err)
	}
	if len(stakes) == 0 {
		fmt.Printf("No stakes for wallet %s\n", wallet)
		return nil
	}

	out := new(strings.Builder)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Nonce\tReceipt\tAmount (%s)\tStaked\tUnlocks\tDays Left\tWeight\tStatus\t\n", App.client.Symbol())
	for _, stake := range stakes {
		status := "unlocked"
		if stake.Locked {
			status = "locked"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%.2fx\t%s\t\n", stake.Nonce, stake.Receipt, stake.Amount,
			stake.StakedAt.Format(time.DateOnly), stake.UnlockAt.Format(time.DateOnly), stake.RemainingDays,
			stake.Weight, status)
	}
	tw.Flush()
	fmt.Print(out.String())
	return nil
}

// stakeForm reads and normalizes the deposit flags against the pool's limits.
func stakeForm(command *cli.Command, info *staking.PoolInfo) (staking.StakeForm, error) {
	amount, err := decimal.NewFromString(command.String("amount"))
	if err != nil {
		return staking.StakeForm{}, fmt.Errorf("invalid amount:%s", command.String("amount"))
	}
	form := staking.StakeForm{
		Amount: amount,
		Years:  command.Uint("years"),
		Days:   command.Uint("days"),
	}
	return form.Normalize(info), nil
}

func StakePreview(ctx context.Context, command *cli.Command) error {
	info, err := App.client.GetPoolInfo(ctx)
	if err != nil {
		return cliError(err)
	}
	form, err := stakeForm(command, info)
	if err != nil {
		return err
	}
	printPreview(form, info)
	return nil
}

func printPreview(form staking.StakeForm, info *staking.PoolInfo) {
	preview := form.Preview(info)
	fmt.Printf("Stake: %s %s\n", form.Amount, info.Symbol)
	fmt.Printf("Lockup: %d days (unlocks %s)\n", preview.Duration/staking.SecondsPerDay,
		time.Now().Add(time.Duration(preview.Duration)*time.Second).Format(time.DateOnly))
	fmt.Printf("Multiplier: %.2fx\n", preview.Multiplier)
	fmt.Printf("Total Weight: %s\n", preview.TotalWeight.StringFixed(2))
}

func StakeDeposit(ctx context.Context, command *cli.Command) error {
	wallet, err := App.activeWallet()
	if err != nil {
		return err
	}
	info, err := App.client.GetPoolInfo(ctx)
	if err != nil {
		return cliError(err)
	}
	balance, err := App.client.GetWalletBalance(ctx, wallet)
	if err != nil {
		return cliError(err)
	}
	form, err := stakeForm(command, info)
	if err != nil {
		return err
	}
	if err = form.Validate(App.client.Symbol(), balance, info); err != nil {
		return cliError(err)
	}
	printPreview(form, info)
	if !confirm(command, fmt.Sprintf("Stake %s %s from %s", form.Amount, info.Symbol, wallet)) {
		return nil
	}
	sig, err := App.client.Stake(ctx, wallet, form.Amount, form.Duration())
	return reportSubmission("Deposit", sig, err)
}

func StakeClaim(ctx context.Context, command *cli.Command) error {
	wallet, err := App.activeWallet()
	if err != nil {
		return err
	}
	nonce := uint32(command.Uint("nonce"))
	if !confirm(command, fmt.Sprintf("Claim rewards for stake %d of %s", nonce, wallet)) {
		return nil
	}
	sig, err := App.client.Claim(ctx, wallet, nonce)
	return reportSubmission("Claim", sig, err)
}

func StakeWithdraw(ctx context.Context, command *cli.Command) error {
	wallet, err := App.activeWallet()
	if err != nil {
		return err
	}
	nonce := uint32(command.Uint("nonce"))
	if !confirm(command, fmt.Sprintf("Withdraw stake %d of %s", nonce, wallet)) {
		return nil
	}
	sig, err := App.client.Withdraw(ctx, wallet, nonce)
	return reportSubmission("Withdraw", sig, err)
}

func confirm(command *cli.Command, prompt string) bool {
	if command.Bool("yes") {
		return true
	}
	_, err := yesNo(prompt)
	if err != nil && !errors.Is(err, promptui.ErrAbort) {
		App.logger.Debug("confirmation prompt failed", "error", err)
	}
	return err == nil
}

func reportSubmission(operation string, sig solana.Signature, err error) error {
	if err != nil {
		return cliError(err)
	}
	fmt.Printf("%s confirmed: %s\n", operation, App.network.ExplorerTxURL(sig.String()))
	return nil
}
