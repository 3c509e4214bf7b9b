package staking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/TxnLab/splstake/internal/lib/misc"
	"github.com/TxnLab/splstake/internal/lib/sol"
)

// Config identifies the pool the client operates on.
type Config struct {
	ProgramID solana.PublicKey
	Mint      solana.PublicKey
	Authority solana.PublicKey
	Symbol    string
}

func (c Config) Validate() error {
	switch {
	case c.ProgramID.IsZero():
		return fmt.Errorf("%w: staking program id not set", ErrConfiguration)
	case c.Mint.IsZero():
		return fmt.Errorf("%w: token mint not set", ErrConfiguration)
	case c.Authority.IsZero():
		return fmt.Errorf("%w: stake pool authority not set", ErrConfiguration)
	case c.Symbol == "":
		return fmt.Errorf("%w: token symbol not set", ErrConfiguration)
	}
	return nil
}

// PoolInfo is the pool configuration and totals, converted for display.
type PoolInfo struct {
	Address          solana.PublicKey `json:"address"`
	Symbol           string           `json:"symbol"`
	Decimals         uint8            `json:"decimals"`
	MinDuration      uint64           `json:"minDuration"`
	MaxDuration      uint64           `json:"maxDuration"`
	MinDurationDays  uint64           `json:"minDurationDays"`
	MaxDurationYears uint64           `json:"maxDurationYears"`
	BaseWeight       float64          `json:"baseWeight"`
	MaxWeight        float64          `json:"maxWeight"`
	TotalStaked      decimal.Decimal  `json:"totalStaked"`
	TotalWeighted    decimal.Decimal  `json:"totalWeighted"`
	AverageWeight    decimal.Decimal  `json:"averageWeight"`
	RewardPools      []RewardPool     `json:"rewardPools"`
}

// UserStake is one open deposit of a wallet.
type UserStake struct {
	Nonce          uint32           `json:"nonce"`
	Receipt        solana.PublicKey `json:"receipt"`
	StakedAt       time.Time        `json:"stakedAt"`
	UnlockAt       time.Time        `json:"unlockAt"`
	Amount         decimal.Decimal  `json:"amount"`
	ClaimedAmounts []*big.Int       `json:"claimedAmounts"`
	RemainingDays  int64            `json:"remainingDays"`
	Weight         float64          `json:"weight"`
	Locked         bool             `json:"locked"`
}

// UnsignedTx is a prepared transaction for an external wallet to sign and send.
type UnsignedTx struct {
	Transaction string           `json:"transaction"` // base64 wire format
	FeePayer    solana.PublicKey `json:"feePayer"`
	Receipt     solana.PublicKey `json:"receipt"`
	Nonce       uint32           `json:"nonce"`
}

type ClientOption func(*Client)

func WithClock(clock clockwork.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithExplorerURL sets how transaction links are rendered in indeterminate outcome errors.
func WithExplorerURL(explorerURL func(signature string) string) ClientOption {
	return func(c *Client) {
		c.explorerURL = explorerURL
	}
}

// Client is the staking operations for a single pool.  The wallet is always passed explicitly; mutating
// operations for the same wallet are serialized - a second one fails w/ ErrOperationInFlight while the first
// is pending.
type Client struct {
	log         *slog.Logger
	cfg         Config
	keys        DerivedKeys
	query       *AccountQuery
	builder     *TransactionBuilder
	executor    *sol.Executor
	clock       clockwork.Clock
	explorerURL func(signature string) string

	mu       sync.Mutex
	inFlight map[solana.PublicKey]struct{}
}

func NewClient(log *slog.Logger, rpc sol.RPCClient, executor *sol.Executor, cfg Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	keys, err := DeriveKeys(cfg.ProgramID, cfg.Mint, cfg.Authority)
	if err != nil {
		return nil, err
	}
	query := NewAccountQuery(log, rpc, cfg.ProgramID)
	c := &Client{
		log:      log,
		cfg:      cfg,
		keys:     keys,
		query:    query,
		builder:  NewTransactionBuilder(log, keys, query),
		executor: executor,
		clock:    clockwork.NewRealClock(),
		inFlight: map[solana.PublicKey]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Keys() DerivedKeys {
	return c.keys
}

func (c *Client) Symbol() string {
	return c.cfg.Symbol
}

func (c *Client) Query() *AccountQuery {
	return c.query
}

// GetPoolInfo reads the pool, the mint decimals and the vault balance.
func (c *Client) GetPoolInfo(ctx context.Context) (*PoolInfo, error) {
	pool, err := c.query.FetchPoolConfig(ctx, c.keys.Pool)
	if err != nil {
		return nil, err
	}
	decimals, err := c.query.FetchTokenDecimals(ctx, c.keys.Mint)
	if err != nil {
		return nil, err
	}
	totalStaked, err := c.query.FetchVaultBalance(ctx, pool.Vault, decimals)
	if err != nil {
		return nil, err
	}
	totalWeighted := sol.FromRawBigAmount(pool.TotalWeightedStake, decimals).Div(decimal.NewFromInt(ScaleFactorBase))

	info := &PoolInfo{
		Address:          pool.Address,
		Symbol:           c.cfg.Symbol,
		Decimals:         decimals,
		MinDuration:      pool.MinDuration,
		MaxDuration:      pool.MaxDuration,
		MinDurationDays:  pool.MinDuration / SecondsPerDay,
		MaxDurationYears: pool.MaxDuration / SecondsPerYear,
		BaseWeight:       WeightMultiplier(pool.BaseWeight),
		MaxWeight:        WeightMultiplier(pool.MaxWeight),
		TotalStaked:      totalStaked,
		TotalWeighted:    totalWeighted,
		AverageWeight:    AverageWeight(totalWeighted, totalStaked),
		RewardPools:      FilterConfigured(pool.RewardPools[:]),
	}

	promTotalStaked.Set(totalStaked.InexactFloat64())
	promTotalWeighted.Set(totalWeighted.InexactFloat64())
	promAverageWeight.Set(info.AverageWeight.InexactFloat64())
	promRewardPools.Set(float64(len(info.RewardPools)))
	return info, nil
}

// GetWalletBalance is wallet's balance of the staked token.
func (c *Client) GetWalletBalance(ctx context.Context, wallet solana.PublicKey) (decimal.Decimal, error) {
	decimals, err := c.query.FetchTokenDecimals(ctx, c.keys.Mint)
	if err != nil {
		return decimal.Zero, err
	}
	return c.query.FetchWalletBalance(ctx, wallet, c.keys.Mint, decimals)
}

// GetUserStakes returns the open deposits of wallet, ordered by nonce.
func (c *Client) GetUserStakes(ctx context.Context, wallet solana.PublicKey) ([]UserStake, error) {
	pool, err := c.query.FetchPoolConfig(ctx, c.keys.Pool)
	if err != nil {
		return nil, err
	}
	decimals, err := c.query.FetchTokenDecimals(ctx, c.keys.Mint)
	if err != nil {
		return nil, err
	}
	receipts, err := c.query.FetchReceipts(ctx, wallet, c.keys.Pool)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()
	stakes := make([]UserStake, 0, len(receipts))
	for _, receipt := range receipts {
		stakes = append(stakes, UserStake{
			Nonce:          receipt.Nonce,
			Receipt:        receipt.Address,
			StakedAt:       receipt.StakedAt(),
			UnlockAt:       receipt.UnlockAt(),
			Amount:         sol.FromRawAmount(receipt.DepositAmount, decimals),
			ClaimedAmounts: receipt.ClaimedAmounts[:],
			RemainingDays:  RemainingDays(receipt.UnlockAt(), now),
			Weight:         PoolWeightFor(pool, receipt.LockupDuration),
			Locked:         receipt.IsLocked(now),
		})
	}
	return stakes, nil
}

// Stake deposits amount (in whole tokens) locked for duration seconds.
func (c *Client) Stake(ctx context.Context, wallet solana.PublicKey, amount decimal.Decimal, duration uint64) (solana.Signature, error) {
	return c.mutate(ctx, "deposit", wallet, func(pools []RewardPool) (*PreparedTx, error) {
		return c.builder.Deposit(ctx, DepositRequest{Wallet: wallet, Amount: amount, Duration: duration, RewardPools: pools})
	})
}

// Claim claims the rewards of the receipt at nonce from every configured reward pool.
func (c *Client) Claim(ctx context.Context, wallet solana.PublicKey, nonce uint32) (solana.Signature, error) {
	return c.mutate(ctx, "claim", wallet, func(pools []RewardPool) (*PreparedTx, error) {
		return c.builder.ClaimAll(ctx, ReceiptRequest{Wallet: wallet, Nonce: nonce, RewardPools: pools})
	})
}

// Withdraw returns the deposit of the receipt at nonce.
func (c *Client) Withdraw(ctx context.Context, wallet solana.PublicKey, nonce uint32) (solana.Signature, error) {
	sig, err := c.mutate(ctx, "withdraw", wallet, func(pools []RewardPool) (*PreparedTx, error) {
		return c.builder.Withdraw(ctx, ReceiptRequest{Wallet: wallet, Nonce: nonce, RewardPools: pools})
	})
	if errors.Is(err, ErrProgramRejection) {
		err = c.explainWithdrawRejection(ctx, wallet, nonce, err)
	}
	return sig, err
}

func (c *Client) PrepareStake(ctx context.Context, wallet solana.PublicKey, amount decimal.Decimal, duration uint64) (*UnsignedTx, error) {
	return c.prepare(ctx, func(pools []RewardPool) (*PreparedTx, error) {
		return c.builder.Deposit(ctx, DepositRequest{Wallet: wallet, Amount: amount, Duration: duration, RewardPools: pools})
	})
}

func (c *Client) PrepareClaim(ctx context.Context, wallet solana.PublicKey, nonce uint32) (*UnsignedTx, error) {
	return c.prepare(ctx, func(pools []RewardPool) (*PreparedTx, error) {
		return c.builder.ClaimAll(ctx, ReceiptRequest{Wallet: wallet, Nonce: nonce, RewardPools: pools})
	})
}

func (c *Client) PrepareWithdraw(ctx context.Context, wallet solana.PublicKey, nonce uint32) (*UnsignedTx, error) {
	return c.prepare(ctx, func(pools []RewardPool) (*PreparedTx, error) {
		return c.builder.Withdraw(ctx, ReceiptRequest{Wallet: wallet, Nonce: nonce, RewardPools: pools})
	})
}

func (c *Client) mutate(ctx context.Context, operation string, wallet solana.PublicKey, build func([]RewardPool) (*PreparedTx, error)) (solana.Signature, error) {
	if !c.tryLock(wallet) {
		return solana.Signature{}, fmt.Errorf("%w: %s for %s", ErrOperationInFlight, operation, wallet)
	}
	defer c.unlock(wallet)

	pools, err := c.rewardPools(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := build(pools)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.executor.Submit(ctx, tx.FeePayer, tx.Instructions)
	err = classifySubmitError(err, c.explorerURL)
	promTransactions.WithLabelValues(operation, Classify(err).String()).Inc()
	if err != nil {
		return sig, fmt.Errorf("%s failed: %w", operation, err)
	}
	misc.Infof(c.log, "%s for wallet %s, receipt %s (nonce %d) confirmed: %s", operation, wallet, tx.Receipt, tx.Nonce, sig)
	return sig, nil
}

func (c *Client) prepare(ctx context.Context, build func([]RewardPool) (*PreparedTx, error)) (*UnsignedTx, error) {
	pools, err := c.rewardPools(ctx)
	if err != nil {
		return nil, err
	}
	prepared, err := build(pools)
	if err != nil {
		return nil, err
	}
	tx, err := c.executor.PrepareUnsigned(ctx, prepared.FeePayer, prepared.Instructions)
	if err != nil {
		return nil, classifySubmitError(err, c.explorerURL)
	}
	encoded, err := sol.EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}
	return &UnsignedTx{
		Transaction: encoded,
		FeePayer:    prepared.FeePayer,
		Receipt:     prepared.Receipt,
		Nonce:       prepared.Nonce,
	}, nil
}

// rewardPools always re-reads the pool so transactions use its current reward configuration.
func (c *Client) rewardPools(ctx context.Context) ([]RewardPool, error) {
	pool, err := c.query.FetchPoolConfig(ctx, c.keys.Pool)
	if err != nil {
		return nil, err
	}
	return pool.RewardPools[:], nil
}

// explainWithdrawRejection checks whether a rejected withdrawal was for a receipt that is still locked.
func (c *Client) explainWithdrawRejection(ctx context.Context, wallet solana.PublicKey, nonce uint32, err error) error {
	receiptKey, deriveErr := c.keys.Receipt(wallet, nonce)
	if deriveErr != nil {
		return err
	}
	lookup, lookupErr := c.query.FetchReceipt(ctx, receiptKey)
	if lookupErr != nil {
		c.log.Debug("unable to fetch receipt after rejected withdrawal", "receipt", receiptKey, "error", lookupErr)
		return err
	}
	if receipt, ok := lookup.Present(); ok && receipt.IsLocked(c.clock.Now()) {
		return fmt.Errorf("%w until %s: %w", ErrStakeStillLocked, receipt.UnlockAt().Format(time.DateOnly), err)
	}
	return err
}

func (c *Client) tryLock(wallet solana.PublicKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[wallet]; busy {
		return false
	}
	c.inFlight[wallet] = struct{}{}
	return true
}

func (c *Client) unlock(wallet solana.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, wallet)
}
