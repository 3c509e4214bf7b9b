package main

import (
	"context"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/TxnLab/splstake/internal/api"
	"github.com/TxnLab/splstake/internal/lib/misc"
)

func GetServeCmdOpts() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the staking api - pool info, stakes and unsigned transactions for browser wallets",
		Before: checkConfigured,
		Action: runServer,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "Address to listen on",
				Value:   ":8080",
				Sources: cli.EnvVars("SPLSTAKE_LISTEN"),
			},
			&cli.StringFlag{
				Name:    "origins",
				Usage:   "Comma separated list of allowed CORS origins",
				Value:   "*",
				Sources: cli.EnvVars("SPLSTAKE_ALLOWED_ORIGINS"),
			},
		},
	}
}

func runServer(ctx context.Context, command *cli.Command) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	errc := shutdownOnSignal()

	handler := api.New(App.logger, App.client, command.String("origins"))
	startServer(ctx, &wg, command.String("listen"), handler, errc)

	misc.Infof(App.logger, "exiting (%v)", <-errc)
	cancel()
	wg.Wait()
	return nil
}
