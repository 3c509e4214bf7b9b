package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/manifoldco/promptui"
	"github.com/urfave/cli/v3"

	"github.com/TxnLab/splstake/internal/lib/sol"
	"github.com/TxnLab/splstake/internal/lib/staking"
)

func GetProfileCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "profile",
		Aliases: []string{"pr"},
		Usage:   "Configure the local staking profile",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Interactively define the network, pool and wallet to use",
				Action: ProfileInit,
			},
			{
				Name:   "show",
				Usage:  "Show the current profile",
				Action: ProfileShow,
			},
		},
	}
}

func ProfileInit(ctx context.Context, command *cli.Command) error {
	profile := *App.profile

	// Use the promptui library to ask questions for each of the profile items
	network, _, err := (&promptui.Select{
		Label:     "Solana network",
		Items:     sol.Networks,
		CursorPos: max(slices.Index(sol.Networks, App.network.Name), 0),
	}).Run()
	if err != nil {
		return err
	}
	profile.Network = sol.Networks[network]

	defProgram := profile.ProgramID
	if defProgram == "" {
		defProgram = staking.DefaultProgramID.String()
	}
	profile.ProgramID, err = getPublicKey("Staking program id", defProgram, true)
	if err != nil {
		return err
	}
	profile.Mint, err = getPublicKey("Mint of the token being staked", profile.Mint, true)
	if err != nil {
		return err
	}
	profile.Authority, err = getPublicKey("Stake pool authority", profile.Authority, true)
	if err != nil {
		return err
	}
	profile.Symbol, err = (&promptui.Prompt{
		Label:   "Token symbol",
		Default: profile.Symbol,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("symbol is required")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}

	defWallet := profile.Wallet
	if defWallet == "" && len(App.signer.Accounts()) > 0 {
		defWallet = App.signer.Accounts()[0].String()
	}
	profile.Wallet, err = getPublicKey("Wallet to act for (blank for first local key)", defWallet, false)
	if err != nil {
		return err
	}

	if _, err = yesNo("Save profile"); err != nil {
		return err
	}
	return SaveProfile(&profile)
}

func ProfileShow(ctx context.Context, command *cli.Command) error {
	cfgName, err := ConfigFilename()
	if err != nil {
		return err
	}
	fmt.Println("Profile:", cfgName)
	fmt.Println("Network:", App.profile.Network)
	fmt.Println("Program ID:", App.profile.ProgramID)
	fmt.Println("Mint:", App.profile.Mint)
	fmt.Println("Authority:", App.profile.Authority)
	fmt.Println("Symbol:", App.profile.Symbol)
	fmt.Println("Wallet:", App.profile.Wallet)
	if App.configErr != nil {
		return nil
	}
	keys, err := staking.DeriveKeys(App.cfg.ProgramID, App.cfg.Mint, App.cfg.Authority)
	if err != nil {
		return err
	}
	fmt.Println("Stake Pool:", keys.Pool)
	fmt.Println("Vault:", keys.Vault)
	return nil
}

func getPublicKey(prompt string, defVal string, required bool) (string, error) {
	return (&promptui.Prompt{
		Label:   prompt,
		Default: defVal,
		Validate: func(s string) error {
			if s == "" && !required {
				return nil
			}
			_, err := solana.PublicKeyFromBase58(s)
			return err
		},
	}).Run()
}

func yesNo(prompt string) (string, error) {
	return (&promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
	}).Run()
}
