package staking_test

import (
	"context"
	"encoding/binary"
	"flag"
	"log/slog"
	"math/big"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/require"

	"github.com/TxnLab/splstake/internal/lib/sol"
	"github.com/TxnLab/splstake/internal/lib/staking"
)

var (
	log *slog.Logger

	testNow = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
)

func TestMain(m *testing.M) {
	flag.Parse()
	logLevel := slog.LevelInfo
	if vFlag := flag.Lookup("test.v"); vFlag != nil && vFlag.Value.String() == "true" {
		logLevel = slog.LevelDebug
	}
	log = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.RFC3339,
		AddSource:  true,
	}))

	os.Exit(m.Run())
}

// mockRPCClient is an in-memory set of accounts.  Sent transactions are recorded and report txErr (or
// success) as their status.
type mockRPCClient struct {
	sol.RPCClient

	mu       sync.Mutex
	accounts map[solana.PublicKey][]byte
	sent     []*solana.Transaction
	txErr    any
	calls    atomic.Int32

	// called at the start of SendTransactionWithOpts, if set
	onSend func()
}

func newMockRPCClient() *mockRPCClient {
	return &mockRPCClient{accounts: map[solana.PublicKey][]byte{}}
}

func (m *mockRPCClient) setAccount(address solana.PublicKey, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[address] = data
}

func (m *mockRPCClient) account(address solana.PublicKey) *solanarpc.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, found := m.accounts[address]
	if !found {
		return nil
	}
	return &solanarpc.Account{Data: solanarpc.DataBytesOrJSONFromBytes(data), Owner: token.ProgramID}
}

func (m *mockRPCClient) sentTransactions() []*solana.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*solana.Transaction{}, m.sent...)
}

func (m *mockRPCClient) GetAccountInfoWithOpts(_ context.Context, address solana.PublicKey, _ *solanarpc.GetAccountInfoOpts) (*solanarpc.GetAccountInfoResult, error) {
	m.calls.Add(1)
	account := m.account(address)
	if account == nil {
		return nil, solanarpc.ErrNotFound
	}
	return &solanarpc.GetAccountInfoResult{Value: account}, nil
}

func (m *mockRPCClient) GetMultipleAccountsWithOpts(_ context.Context, addresses []solana.PublicKey, _ *solanarpc.GetMultipleAccountsOpts) (*solanarpc.GetMultipleAccountsResult, error) {
	m.calls.Add(1)
	result := &solanarpc.GetMultipleAccountsResult{}
	for _, address := range addresses {
		result.Value = append(result.Value, m.account(address))
	}
	return result, nil
}

func (m *mockRPCClient) GetTokenAccountsByOwner(_ context.Context, owner solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, _ *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	result := &solanarpc.GetTokenAccountsResult{}
	for address, data := range m.accounts {
		if len(data) != tokenAccountSize {
			continue
		}
		mint := solana.PublicKeyFromBytes(data[0:32])
		accountOwner := solana.PublicKeyFromBytes(data[32:64])
		if accountOwner != owner || (conf != nil && conf.Mint != nil && *conf.Mint != mint) {
			continue
		}
		result.Value = append(result.Value, &solanarpc.TokenAccount{
			Pubkey:  address,
			Account: solanarpc.Account{Data: solanarpc.DataBytesOrJSONFromBytes(data)},
		})
	}
	return result, nil
}

func (m *mockRPCClient) GetLatestBlockhash(context.Context, solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error) {
	m.calls.Add(1)
	return &solanarpc.GetLatestBlockhashResult{
		Value: &solanarpc.LatestBlockhashResult{Blockhash: solana.Hash{7, 7, 7}},
	}, nil
}

func (m *mockRPCClient) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ solanarpc.TransactionOpts) (solana.Signature, error) {
	m.calls.Add(1)
	if m.onSend != nil {
		m.onSend()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, tx)
	return tx.Signatures[0], nil
}

func (m *mockRPCClient) setTxErr(txErr any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txErr = txErr
}

func (m *mockRPCClient) GetSignatureStatuses(context.Context, bool, ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	return &solanarpc.GetSignatureStatusesResult{Value: []*solanarpc.SignatureStatusesResult{{
		ConfirmationStatus: solanarpc.ConfirmationStatusConfirmed,
		Err:                m.txErr,
	}}}, nil
}

const (
	mintSize         = 82
	tokenAccountSize = 165
)

// mintData is an spl token mint account w/ no authorities.
func mintData(decimals uint8) []byte {
	data := make([]byte, mintSize)
	binary.LittleEndian.PutUint64(data[36:44], 1_000_000_000_000)
	data[44] = decimals
	data[45] = 1
	return data
}

// tokenAccountData is an initialized spl token account.
func tokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, tokenAccountSize)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1 // initialized
	return data
}

const testDecimals = 6

// testPool is a pool w/ a 30 day min and 365 day max lockup, weights 1.0 - 5.0.
type testPool struct {
	programID solana.PublicKey
	mint      solana.PublicKey
	authority solana.PublicKey
	keys      staking.DerivedKeys
	pool      *staking.StakePool
	rpc       *mockRPCClient
}

func newTestPool(t *testing.T, rewardVaults ...solana.PublicKey) *testPool {
	t.Helper()
	tp := &testPool{
		programID: staking.DefaultProgramID,
		mint:      solana.NewWallet().PublicKey(),
		authority: solana.NewWallet().PublicKey(),
		rpc:       newMockRPCClient(),
	}
	var err error
	tp.keys, err = staking.DeriveKeys(tp.programID, tp.mint, tp.authority)
	require.NoError(t, err)

	tp.pool = &staking.StakePool{
		Address:            tp.keys.Pool,
		Creator:            tp.authority,
		Authority:          tp.authority,
		TotalWeightedStake: new(big.Int).Mul(big.NewInt(3_000_000_000), big.NewInt(2*staking.ScaleFactorBase)),
		Vault:              tp.keys.Vault,
		Mint:               tp.mint,
		StakeMint:          tp.keys.StakeMint,
		BaseWeight:         1 * staking.ScaleFactorBase,
		MaxWeight:          5 * staking.ScaleFactorBase,
		MinDuration:        30 * staking.SecondsPerDay,
		MaxDuration:        365 * staking.SecondsPerDay,
		BumpSeed:           tp.keys.PoolBump,
	}
	for i := range tp.pool.RewardPools {
		tp.pool.RewardPools[i] = staking.RewardPool{RewardsPerEffectiveStake: big.NewInt(0)}
	}
	for i, vault := range rewardVaults {
		tp.pool.RewardPools[i].RewardVault = vault
	}
	tp.rpc.setAccount(tp.keys.Pool, staking.EncodeStakePool(tp.pool))
	tp.rpc.setAccount(tp.mint, mintData(testDecimals))
	tp.rpc.setAccount(tp.keys.StakeMint, mintData(testDecimals))
	tp.rpc.setAccount(tp.keys.Vault, tokenAccountData(tp.mint, tp.keys.Vault, 3_000_000_000))
	return tp
}

// addRewardVault creates a funded reward vault for a new reward mint.
func (tp *testPool) addRewardVault() (vault, rewardMint solana.PublicKey) {
	vault = solana.NewWallet().PublicKey()
	rewardMint = solana.NewWallet().PublicKey()
	tp.rpc.setAccount(rewardMint, mintData(9))
	tp.rpc.setAccount(vault, tokenAccountData(rewardMint, tp.keys.Pool, 500_000_000))
	return vault, rewardMint
}

// addReceipt creates an open receipt for wallet at nonce, deposited at depositTime.
func (tp *testPool) addReceipt(t *testing.T, wallet solana.PublicKey, nonce uint32, rawAmount, lockup uint64, depositTime time.Time) solana.PublicKey {
	t.Helper()
	receiptKey, err := tp.keys.Receipt(wallet, nonce)
	require.NoError(t, err)
	receipt := &staking.StakeDepositReceipt{
		Owner:            wallet,
		Payer:            wallet,
		StakePool:        tp.keys.Pool,
		LockupDuration:   lockup,
		DepositTimestamp: depositTime.Unix(),
		DepositAmount:    rawAmount,
		EffectiveStake:   new(big.Int).SetUint64(rawAmount),
	}
	for i := range receipt.ClaimedAmounts {
		receipt.ClaimedAmounts[i] = big.NewInt(int64(i))
	}
	tp.rpc.setAccount(receiptKey, staking.EncodeStakeDepositReceipt(receipt))
	return receiptKey
}

func (tp *testPool) removeAccount(address solana.PublicKey) {
	tp.rpc.mu.Lock()
	defer tp.rpc.mu.Unlock()
	delete(tp.rpc.accounts, address)
}

func (tp *testPool) query() *staking.AccountQuery {
	return staking.NewAccountQuery(log, tp.rpc, tp.programID)
}
