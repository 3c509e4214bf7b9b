package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/TxnLab/splstake/internal/lib/misc"
	"github.com/TxnLab/splstake/internal/lib/sol"
	"github.com/TxnLab/splstake/internal/lib/staking"
)

var logLevel = new(slog.LevelVar) // Info by default

func initApp() *SplStakeApp {
	log.SetFlags(0)
	var logger *slog.Logger
	if term.IsTerminal(int(os.Stdout.Fd())) {
		// Are we running on something where output is a tty - so we're being run as CLI vs as a daemon
		logger = slog.New(misc.NewMinimalHandler(os.Stdout,
			misc.MinimalHandlerOptions{SlogOpts: slog.HandlerOptions{Level: logLevel, AddSource: true}}))
	} else {
		// not on console - output as json, but change json key names to be more compatible w/ what google logging
		// expects
		opts := &slog.HandlerOptions{
			AddSource: true,
			Level:     logLevel,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.MessageKey {
					a.Key = "message"
				} else if a.Key == slog.LevelKey && len(groups) == 0 {
					a.Key = "severity"
				}
				return a
			},
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	slog.SetDefault(logger)
	if os.Getenv("DEBUG") == "1" {
		logLevel.Set(slog.LevelDebug)
	}

	misc.LoadEnvSettings(logger)

	// We initialize our wrapper instance first, so we can call its methods in the 'Before' lambda func
	// in initialization of cli App instance.
	appConfig := &SplStakeApp{logger: logger}

	appConfig.cliCmd = &cli.Command{
		Name:    "splstake",
		Usage:   "Stake SPL tokens into a staking program pool - CLI, metrics daemon and wallet API",
		Version: misc.GetVersionInfo(),
		Before: func(ctx context.Context, cmd *cli.Command) error {
			// This is further bootstrap of the 'app' but within context of 'cli' helper as it will
			// have access to flags and options (network to use for eg) already set.
			return appConfig.initClients(ctx, cmd)
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "envfile",
				Usage:   "env file to load",
				Sources: cli.EnvVars("SPLSTAKE_ENVFILE"),
				Aliases: []string{"e"},
			},
			&cli.StringFlag{
				Name:    "network",
				Usage:   "Solana network to use (devnet, testnet, mainnet-beta, localnet)",
				Value:   "devnet",
				Aliases: []string{"n"},
				Sources: cli.EnvVars("SOL_NETWORK"),
			},
			&cli.StringFlag{
				Name:  "rpc",
				Usage: "RPC url, overriding the network default and SOL_RPC_URL",
			},
			&cli.StringFlag{
				Name:    "program",
				Usage:   "[DEV ONLY] The staking program id",
				Sources: cli.EnvVars("SPLSTAKE_PROGRAM_ID"),
			},
			&cli.StringFlag{
				Name:    "mint",
				Usage:   "The mint of the token being staked",
				Sources: cli.EnvVars("SPLSTAKE_TOKEN_MINT"),
			},
			&cli.StringFlag{
				Name:    "authority",
				Usage:   "The authority of the stake pool",
				Sources: cli.EnvVars("SPLSTAKE_STAKE_AUTHORITY"),
			},
			&cli.StringFlag{
				Name:    "symbol",
				Usage:   "Display symbol of the staked token",
				Sources: cli.EnvVars("SPLSTAKE_TOKEN_SYMBOL"),
			},
			&cli.StringFlag{
				Name:    "wallet",
				Usage:   "Wallet to act for.  Defaults to the first locally available signing key",
				Aliases: []string{"w"},
				Sources: cli.EnvVars("SPLSTAKE_WALLET"),
			},
		},
		Commands: []*cli.Command{
			GetDaemonCmdOpts(),
			GetServeCmdOpts(),
			GetPoolCmdOpts(),
			GetStakeCmdOpts(),
			GetKeyCmdOpts(),
			GetProfileCmdOpts(),
		},
	}
	return appConfig
}

type SplStakeApp struct {
	cliCmd    *cli.Command
	logger    *slog.Logger
	network   sol.NetworkConfig
	signer    sol.WalletSigner
	solClient *solanarpc.Client
	executor  *sol.Executor
	client    *staking.Client
	profile   *Profile
	cfg       staking.Config

	// wallet is the --wallet flag (or profile) value - may be zero
	wallet solana.PublicKey
	// configErr is why client can't be created - returned by checkConfigured
	configErr error
}

// initClients validates the network, loads local signing keys and the pool configuration.  Nothing here
// talks to the rpc node - commands needing chain access connect via checkConfigured (or connect), so profile
// setup still works on a fresh install or while offline.
func (ac *SplStakeApp) initClients(ctx context.Context, cmd *cli.Command) error {
	if envfile := cmd.String("envfile"); envfile != "" {
		if err := misc.LoadEnvFile(ac.logger, envfile); err != nil {
			return err
		}
	}

	profile, err := LoadProfile()
	if err != nil {
		misc.Debugf(ac.logger, "no local profile loaded: %v", err)
		profile = &Profile{}
	}
	ac.profile = profile

	network := flagOrProfile(cmd, "network", profile.Network)
	// quick validity check on possible network names...
	if !sol.IsValidNetwork(network) {
		return fmt.Errorf("unknown network:%s", network)
	}

	// Now load .env.{network} overrides -ie: .env.devnet containing a devnet test mint and authority
	misc.LoadEnvForNetwork(ac.logger, network)

	ac.network = sol.GetNetworkConfig(network)
	if rpcURL := cmd.String("rpc"); rpcURL != "" {
		ac.network.RPCURL = rpcURL
	}

	// This will load and initialize keys from the environment - and handles all 'local' signing for the app
	ac.signer, err = sol.NewLocalKeyStore(ac.logger)
	if err != nil {
		return err
	}

	if wallet := flagOrProfile(cmd, "wallet", profile.Wallet); wallet != "" {
		ac.wallet, err = solana.PublicKeyFromBase58(wallet)
		if err != nil {
			return fmt.Errorf("invalid wallet:%s, error:%w", wallet, err)
		}
	}

	ac.cfg, err = ac.stakingConfig(cmd)
	if err != nil {
		ac.configErr = err
		misc.Debugf(ac.logger, "staking client not configured: %v", err)
	}
	return nil
}

// connect dials the rpc node and creates the staking client if the pool is configured.  Once connected,
// later calls do nothing.
func (ac *SplStakeApp) connect(ctx context.Context) error {
	if ac.solClient != nil {
		return nil
	}
	solClient, err := sol.GetSolClient(ctx, ac.logger, ac.network)
	if err != nil {
		return err
	}
	ac.solClient = solClient
	ac.executor = sol.NewExecutor(ac.logger, ac.solClient, ac.signer)
	if ac.configErr != nil {
		return nil
	}
	ac.client, err = staking.NewClient(ac.logger, ac.solClient, ac.executor, ac.cfg, staking.WithExplorerURL(ac.network.ExplorerTxURL))
	if err != nil {
		ac.configErr = err
		return nil
	}
	misc.Debugf(ac.logger, "staking pool %s for mint %s on %s", ac.client.Keys().Pool, ac.cfg.Mint, ac.network.Name)
	return nil
}

// stakingConfig builds the pool configuration from flags/env, falling back to the local profile.
func (ac *SplStakeApp) stakingConfig(cmd *cli.Command) (staking.Config, error) {
	var (
		cfg = staking.Config{
			ProgramID: staking.DefaultProgramID,
			Symbol:    flagOrProfile(cmd, "symbol", ac.profile.Symbol),
		}
		err error
	)
	if program := flagOrProfile(cmd, "program", ac.profile.ProgramID); program != "" {
		if cfg.ProgramID, err = parseConfigKey("program id", program); err != nil {
			return cfg, err
		}
	}
	if cfg.Mint, err = parseConfigKey("token mint", flagOrProfile(cmd, "mint", ac.profile.Mint)); err != nil {
		return cfg, err
	}
	if cfg.Authority, err = parseConfigKey("stake authority", flagOrProfile(cmd, "authority", ac.profile.Authority)); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func parseConfigKey(name, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: %s not set", staking.ErrConfiguration, name)
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: invalid %s:%s, error:%w", staking.ErrConfiguration, name, value, err)
	}
	return key, nil
}

// flagOrProfile returns the flag value if the user set it (on the command line or via env), otherwise the
// profile value, otherwise the flag default.
func flagOrProfile(cmd *cli.Command, name string, profileVal string) string {
	if !cmd.IsSet(name) && profileVal != "" {
		return profileVal
	}
	return cmd.String(name)
}

// checkConfigured fails fast on an unconfigured pool, otherwise connects so App.client is ready for use.
func checkConfigured(ctx context.Context, command *cli.Command) error {
	if App.configErr == nil {
		if err := App.connect(ctx); err != nil {
			return err
		}
	}
	if App.client == nil {
		return fmt.Errorf("staking pool not configured (set flags, env vars or run 'profile init'): %w", App.configErr)
	}
	return nil
}

// activeWallet is the wallet commands act for: --wallet (or profile) else the first local signing key.
func (ac *SplStakeApp) activeWallet() (solana.PublicKey, error) {
	if !ac.wallet.IsZero() {
		return ac.wallet, nil
	}
	if accounts := ac.signer.Accounts(); len(accounts) > 0 {
		return accounts[0], nil
	}
	return solana.PublicKey{}, fmt.Errorf("no wallet specified and no local keys found (set --wallet or %s*/%s* env vars)",
		sol.KeypairFileEnvPrefix, sol.PrivateKeyEnvPrefix)
}
