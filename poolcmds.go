package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/TxnLab/splstake/internal/lib/staking"
)

func GetPoolCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "pool",
		Aliases: []string{"p"},
		Usage:   "Stake pool information",
		Before:  checkConfigured,
		Commands: []*cli.Command{
			{
				Name:    "info",
				Aliases: []string{"i"},
				Usage:   "Show the pool configuration, totals and reward pools",
				Action:  PoolInfo,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as json",
					},
				},
			},
		},
	}
}

func PoolInfo(ctx context.Context, command *cli.Command) error {
	info, err := App.client.GetPoolInfo(ctx)
	if err != nil {
		return cliError(err)
	}
	if command.Bool("json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}

	keys := App.client.Keys()
	fmt.Println("Stake Pool:", info.Address)
	fmt.Println("Mint:", keys.Mint)
	fmt.Println("Vault:", keys.Vault)
	fmt.Println("Stake Mint:", keys.StakeMint)
	fmt.Printf("Lockup: %d days minimum, %d years maximum\n", info.MinDurationDays, info.MaxDurationYears)
	fmt.Printf("Weight: %gx base, %gx max\n", info.BaseWeight, info.MaxWeight)
	fmt.Printf("Total Staked: %s %s\n", info.TotalStaked, info.Symbol)
	fmt.Printf("Total Weighted: %s\n", info.TotalWeighted.StringFixed(2))
	fmt.Printf("Average Weight: %sx\n", info.AverageWeight.StringFixed(2))
	if len(info.RewardPools) == 0 {
		fmt.Println("Reward Pools: none")
		return nil
	}

	out := new(strings.Builder)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tReward Vault\tRewards Per Effective Stake\tLast Amount\t")
	for i, pool := range info.RewardPools {
		fmt.Fprintf(tw, "%d\t%s\t%v\t%d\t\n", i+1, pool.RewardVault, pool.RewardsPerEffectiveStake, pool.LastAmount)
	}
	tw.Flush()
	fmt.Print(out.String())
	return nil
}

// cliError renders staking errors as their user facing message, keeping the underlying detail at debug.
func cliError(err error) error {
	App.logger.Debug("command failed", "kind", staking.Classify(err), "error", err)
	return cli.Exit(staking.UserMessage(err), 1)
}
