package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

func GetKeyCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "Local signing key related commands",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List locally available signing keys and their token balances",
				Action:  KeysList,
			},
		},
	}
}

func KeysList(ctx context.Context, command *cli.Command) error {
	accounts := App.signer.Accounts()
	if len(accounts) == 0 {
		fmt.Println("No local keys - set SOL_KEYPAIR* (keypair file) or SOL_PRIVATE_KEY* (base58) env vars")
		return nil
	}
	// balances are shown only if the pool is configured and the rpc node is reachable
	if App.configErr == nil {
		if err := App.connect(ctx); err != nil {
			App.logger.Warn("not showing balances", "error", err)
		}
	}
	out := new(strings.Builder)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if App.client == nil {
		fmt.Fprintln(tw, "Wallet\t")
		for _, account := range accounts {
			fmt.Fprintf(tw, "%s\t\n", account)
		}
	} else {
		fmt.Fprintf(tw, "Wallet\tBalance (%s)\t\n", App.client.Symbol())
		for _, account := range accounts {
			balance, err := App.client.GetWalletBalance(ctx, account)
			if err != nil {
				App.logger.Warn("balance fetch failed", "wallet", account, "error", err)
				fmt.Fprintf(tw, "%s\t?\t\n", account)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t\n", account, balance)
		}
	}
	tw.Flush()
	fmt.Print(out.String())
	return nil
}
