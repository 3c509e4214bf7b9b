package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/TxnLab/splstake/internal/lib/staking"
)

// StakingService is the set of staking operations exposed over http.  Mutations are only prepared here,
// the caller's wallet signs and sends them.
type StakingService interface {
	Symbol() string
	GetPoolInfo(ctx context.Context) (*staking.PoolInfo, error)
	GetUserStakes(ctx context.Context, wallet solana.PublicKey) ([]staking.UserStake, error)
	GetWalletBalance(ctx context.Context, wallet solana.PublicKey) (decimal.Decimal, error)
	PrepareStake(ctx context.Context, wallet solana.PublicKey, amount decimal.Decimal, duration uint64) (*staking.UnsignedTx, error)
	PrepareClaim(ctx context.Context, wallet solana.PublicKey, nonce uint32) (*staking.UnsignedTx, error)
	PrepareWithdraw(ctx context.Context, wallet solana.PublicKey, nonce uint32) (*staking.UnsignedTx, error)
}

// New returns the http handler for the staking api, rooted at /api.
func New(log *slog.Logger, service StakingService, allowedOrigins string) http.Handler {
	router := mux.NewRouter()
	NewStakes(log, service).Mount(router, "/api")

	origins := strings.Split(strings.TrimSpace(allowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
	)(handler)
	return handler
}
