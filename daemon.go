package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/mailgun/holster/v4/syncutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"github.com/ssgreg/repeat"

	"github.com/TxnLab/splstake/internal/lib/misc"
	"github.com/TxnLab/splstake/internal/lib/staking"
)

const (
	refreshInterval     = time.Minute
	balanceConcurrency  = 4
	poolRefreshAttempts = 3
)

var (
	promWalletBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: "splstake",
		Name:      "wallet_token_balance",
		Help:      "Staked token balance of watched wallets",
	}, []string{"wallet"})
	promWalletStaked = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: "splstake",
		Name:      "wallet_staked_total",
		Help:      "Sum of open deposits of watched wallets",
	}, []string{"wallet"})
	promRefreshErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "splstake",
		Name:      "refresh_errors_total",
	}, []string{"target"})
	promLastRefresh = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "splstake",
		Name:      "last_refresh_timestamp_seconds",
	})
)

// stakeReader is the read side of the staking client the daemon polls.
type stakeReader interface {
	GetPoolInfo(ctx context.Context) (*staking.PoolInfo, error)
	GetWalletBalance(ctx context.Context, wallet solana.PublicKey) (decimal.Decimal, error)
	GetUserStakes(ctx context.Context, wallet solana.PublicKey) ([]staking.UserStake, error)
}

// Daemon periodically refreshes the pool totals and the balances of the watched wallets into prometheus
// gauges until its context is cancelled.
type Daemon struct {
	logger  *slog.Logger
	reader  stakeReader
	wallets []solana.PublicKey
	clock   clockwork.Clock

	retryDelay time.Duration

	// embed mutex for locking state for members below the mutex
	sync.RWMutex
	lastPool *staking.PoolInfo
}

func newDaemon(logger *slog.Logger, reader stakeReader, wallets []solana.PublicKey, clock clockwork.Clock) *Daemon {
	return &Daemon{
		logger:     logger,
		reader:     reader,
		wallets:    wallets,
		clock:      clock,
		retryDelay: 2 * time.Second,
	}
}

func (d *Daemon) start(ctx context.Context, wg *sync.WaitGroup) {
	d.logger.Info("Starting splstake daemon", "wallets", len(d.wallets))

	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Refresher(ctx)
	}()
}

// Refresher refreshes immediately and then once per refreshInterval.
func (d *Daemon) Refresher(ctx context.Context) {
	defer d.logger.Info("Exiting Refresher")
	d.logger.Info("Starting Refresher")

	d.refresh(ctx)

	ticker := d.clock.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			d.refresh(ctx)
		}
	}
}

// PoolInfo is the most recently refreshed pool info (nil until the first successful refresh).
func (d *Daemon) PoolInfo() *staking.PoolInfo {
	d.RLock()
	defer d.RUnlock()
	return d.lastPool
}

func (d *Daemon) refresh(ctx context.Context) {
	if err := d.refreshPool(ctx); err != nil {
		promRefreshErrors.WithLabelValues("pool").Inc()
		misc.Warnf(d.logger, "pool refresh failed: %v", err)
	}
	if errs := d.refreshWallets(ctx); len(errs) > 0 {
		promRefreshErrors.WithLabelValues("wallet").Add(float64(len(errs)))
		misc.Warnf(d.logger, "wallet refresh failed: %v", errors.Join(errs...))
	}
	promLastRefresh.Set(float64(d.clock.Now().Unix()))
}

// refreshPool retries transient failures, anything else (ie: a misconfigured pool) fails immediately.
func (d *Daemon) refreshPool(ctx context.Context) error {
	var (
		info     *staking.PoolInfo
		attempts int
	)
	err := repeat.Repeat(
		repeat.Fn(func() error {
			var err error
			attempts++
			info, err = d.reader.GetPoolInfo(ctx)
			// a non-temporary error ends the repetition, so the final attempt returns err as is
			if err != nil && staking.Classify(err).Retryable() && attempts < poolRefreshAttempts {
				return repeat.HintTemporary(err)
			}
			return err
		}),
		repeat.StopOnSuccess(),
		repeat.FnOnError(func(err error) error {
			d.logger.Debug("retrying pool refresh", "error", err)
			return err
		}),
		repeat.WithDelay(
			repeat.SetContext(ctx),
			repeat.SetContextHintStop(),
			(&repeat.FullJitterBackoffBuilder{
				BaseDelay: d.retryDelay,
				MaxDelay:  2 * d.retryDelay,
			}).Set(),
		),
	)
	if err != nil {
		return err
	}
	d.Lock()
	d.lastPool = info
	d.Unlock()
	misc.Debugf(d.logger, "pool refreshed, total staked:%s %s, average weight:%s", info.TotalStaked, info.Symbol, info.AverageWeight.StringFixed(2))
	return nil
}

func (d *Daemon) refreshWallets(ctx context.Context) []error {
	fanOut := syncutil.NewFanOut(balanceConcurrency)
	for _, wallet := range d.wallets {
		fanOut.Run(func(val any) error {
			return d.refreshWallet(ctx, val.(solana.PublicKey))
		}, wallet)
	}
	return fanOut.Wait()
}

func (d *Daemon) refreshWallet(ctx context.Context, wallet solana.PublicKey) error {
	balance, err := d.reader.GetWalletBalance(ctx, wallet)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", wallet, err)
	}
	promWalletBalance.WithLabelValues(wallet.String()).Set(balance.InexactFloat64())

	stakes, err := d.reader.GetUserStakes(ctx, wallet)
	if err != nil {
		return fmt.Errorf("stakes of %s: %w", wallet, err)
	}
	staked := decimal.Zero
	for _, stake := range stakes {
		staked = staked.Add(stake.Amount)
	}
	promWalletStaked.WithLabelValues(wallet.String()).Set(staked.InexactFloat64())
	return nil
}
