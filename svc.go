package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/TxnLab/splstake/internal/lib/misc"
)

func GetDaemonCmdOpts() *cli.Command {
	return &cli.Command{
		Name:    "daemon",
		Aliases: []string{"d"},
		Usage:   "Run the application as a daemon, refreshing pool and wallet metrics",
		Before:  checkConfigured, // make sure the pool is configured
		Action:  runAsDaemon,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "metrics",
				Usage:   "Address to serve prometheus /metrics on, ie: :9100.  Disabled if empty",
				Sources: cli.EnvVars("SPLSTAKE_METRICS_ADDR"),
			},
		},
	}
}

func runAsDaemon(ctx context.Context, command *cli.Command) error {
	var wg sync.WaitGroup

	wallets := watchedWallets(App.signer.Accounts(), App.wallet)
	if len(wallets) == 0 {
		misc.Warnf(App.logger, "no wallets to watch, only refreshing the pool")
	}

	ctx, cancel := context.WithCancel(ctx)
	errc := shutdownOnSignal()

	if addr := command.String("metrics"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		startServer(ctx, &wg, addr, mux, errc)
	}

	newDaemon(App.logger, App.client, wallets, clockwork.NewRealClock()).start(ctx, &wg)

	misc.Infof(App.logger, "exiting (%v)", <-errc) // wait for termination signal

	// Send cancellation signal to the goroutines.
	cancel()
	misc.Infof(App.logger, "waiting on background tasks..")
	wg.Wait()

	misc.Infof(App.logger, "exited")
	return nil
}

// shutdownOnSignal returns the channel used by both the signal handler and server goroutines to notify the
// main goroutine when to stop.
func shutdownOnSignal() chan error {
	errc := make(chan error, 2)
	// Setup interrupt handler so that SIGINT and SIGTERM signals cause the services to stop gracefully.
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()
	return errc
}

// startServer serves handler on addr until ctx is done.  A listen failure is sent to errc.
func startServer(ctx context.Context, wg *sync.WaitGroup, addr string, handler http.Handler, errc chan<- error) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	wg.Add(1)
	go func() {
		defer wg.Done()
		misc.Infof(App.logger, "listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// watchedWallets is the local signing keys plus the --wallet wallet, if it isn't one of them.
func watchedWallets(accounts []solana.PublicKey, extra solana.PublicKey) []solana.PublicKey {
	if !extra.IsZero() && !slices.Contains(accounts, extra) {
		return append(accounts, extra)
	}
	return accounts
}
