package sol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/shopspring/decimal"
	"github.com/ssgreg/repeat"

	"github.com/TxnLab/splstake/internal/lib/misc"
)

var (
	ErrInvalidAmount = errors.New("invalid token amount")
)

// FromRawAmount converts a raw on-chain integer amount into token units, ie: raw / 10^decimals
func FromRawAmount(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
}

// FromRawBigAmount is FromRawAmount for u128 values (weighted stake totals, etc.)
func FromRawBigAmount(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ToRawAmount converts token units into the raw integer amount, ie: amount * 10^decimals.  Amounts that
// are negative, have more precision than the mint supports, or overflow a u64 are rejected.
func ToRawAmount(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}
	scaled := amount.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount, decimals)
	}
	raw := scaled.BigInt()
	if !raw.IsUint64() {
		return 0, fmt.Errorf("%w: %s exceeds the maximum of %d raw units", ErrInvalidAmount, amount, uint64(math.MaxUint64))
	}
	return raw.Uint64(), nil
}

func FormattedTokenAmount(raw uint64, decimals uint8) string {
	return FromRawAmount(raw, decimals).String()
}

// GetSolClient returns an rpc client for the configured network, verifying connectivity before returning.
func GetSolClient(ctx context.Context, log *slog.Logger, config NetworkConfig) (*solanarpc.Client, error) {
	serverAddr, err := url.Parse(strings.TrimRight(config.RPCURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse url:%v, error:%w", config.RPCURL, err)
	}
	if serverAddr.Scheme == "tcp" {
		serverAddr.Scheme = "http"
	}
	misc.Infof(log, "Connecting to %s rpc node at:%s", config.Name, serverAddr.String())

	// Override the default transport so we can properly support multiple parallel connections to same
	// host (and allow connection reuse)
	customTransport := http.DefaultTransport.(*http.Transport).Clone()
	customTransport.MaxIdleConns = 100
	customTransport.MaxConnsPerHost = 100
	customTransport.MaxIdleConnsPerHost = 100

	rpcClient := jsonrpc.NewClientWithOpts(serverAddr.String(), &jsonrpc.RPCClientOpts{
		HTTPClient:    &http.Client{Transport: customTransport, Timeout: time.Minute},
		CustomHeaders: config.RPCHeaders,
	})
	client := solanarpc.NewWithCustomRPCClient(rpcClient)

	// Immediately hit server to verify connectivity
	version, err := verifyConnectivity(ctx, log, client, 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to get version from rpc node (url:%s), error:%w", serverAddr.String(), err)
	}
	misc.Debugf(log, "rpc node version:%s", version.SolanaCore)
	return client, nil
}

const connectivityAttempts = 3

// verifyConnectivity fetches the node version, making up to connectivityAttempts attempts.
func verifyConnectivity(ctx context.Context, log *slog.Logger, client RPCClient, baseDelay time.Duration) (*solanarpc.GetVersionResult, error) {
	var (
		version  *solanarpc.GetVersionResult
		attempts int
	)
	err := repeat.Repeat(
		repeat.Fn(func() error {
			var err error
			attempts++
			version, err = client.GetVersion(ctx)
			if err != nil && attempts < connectivityAttempts {
				return repeat.HintTemporary(err)
			}
			return err
		}),
		repeat.StopOnSuccess(),
		repeat.FnOnError(func(err error) error {
			misc.Infof(log, "retrying rpc connectivity check, error:%s", err.Error())
			return err
		}),
		repeat.WithDelay(
			repeat.SetContext(ctx),
			repeat.SetContextHintStop(),
			(&repeat.FullJitterBackoffBuilder{
				BaseDelay: baseDelay,
				MaxDelay:  4 * baseDelay,
			}).Set(),
		),
	)
	return version, err
}
