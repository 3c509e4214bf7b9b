package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/TxnLab/splstake/internal/lib/staking"
)

type Stakes struct {
	log     *slog.Logger
	service StakingService
}

func NewStakes(log *slog.Logger, service StakingService) *Stakes {
	return &Stakes{log: log, service: service}
}

// StakeRequest is a deposit as entered in a stake form.
type StakeRequest struct {
	Wallet string          `json:"wallet"`
	Amount decimal.Decimal `json:"amount"`
	Years  uint64          `json:"years"`
	Days   uint64          `json:"days"`
}

// ReceiptRequest targets an existing receipt for claim/withdraw.
type ReceiptRequest struct {
	Wallet string `json:"wallet"`
	Nonce  uint32 `json:"nonce"`
}

type BalanceResponse struct {
	Wallet  solana.PublicKey `json:"wallet"`
	Symbol  string           `json:"symbol"`
	Balance decimal.Decimal  `json:"balance"`
}

func (s *Stakes) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	info, err := s.service.GetPoolInfo(req.Context())
	if err != nil {
		return err
	}
	return WriteJSON(w, info)
}

func (s *Stakes) handleGetStakes(w http.ResponseWriter, req *http.Request) error {
	wallet, err := parseWallet(mux.Vars(req)["wallet"])
	if err != nil {
		return err
	}
	stakes, err := s.service.GetUserStakes(req.Context(), wallet)
	if err != nil {
		return err
	}
	return WriteJSON(w, stakes)
}

func (s *Stakes) handleGetBalance(w http.ResponseWriter, req *http.Request) error {
	wallet, err := parseWallet(mux.Vars(req)["wallet"])
	if err != nil {
		return err
	}
	balance, err := s.service.GetWalletBalance(req.Context(), wallet)
	if err != nil {
		return err
	}
	return WriteJSON(w, BalanceResponse{Wallet: wallet, Symbol: s.service.Symbol(), Balance: balance})
}

func (s *Stakes) handlePreview(w http.ResponseWriter, req *http.Request) error {
	query := req.URL.Query()
	form := staking.StakeForm{Amount: decimal.Zero}
	var err error
	if amount := query.Get("amount"); amount != "" {
		if form.Amount, err = decimal.NewFromString(amount); err != nil {
			return BadRequest(fmt.Errorf("amount: %w", err))
		}
	}
	if form.Years, err = parseUintParam(query.Get("years")); err != nil {
		return BadRequest(fmt.Errorf("years: %w", err))
	}
	if form.Days, err = parseUintParam(query.Get("days")); err != nil {
		return BadRequest(fmt.Errorf("days: %w", err))
	}
	info, err := s.service.GetPoolInfo(req.Context())
	if err != nil {
		return err
	}
	return WriteJSON(w, form.Normalize(info).Preview(info))
}

func (s *Stakes) handlePrepareStake(w http.ResponseWriter, req *http.Request) error {
	var body StakeRequest
	if err := ParseJSON(req.Body, &body); err != nil {
		return BadRequest(fmt.Errorf("body: %w", err))
	}
	wallet, err := parseWallet(body.Wallet)
	if err != nil {
		return err
	}
	info, err := s.service.GetPoolInfo(req.Context())
	if err != nil {
		return err
	}
	balance, err := s.service.GetWalletBalance(req.Context(), wallet)
	if err != nil {
		return err
	}
	form := staking.StakeForm{Amount: body.Amount, Years: body.Years, Days: body.Days}.Normalize(info)
	if err := form.Validate(s.service.Symbol(), balance, info); err != nil {
		return err
	}
	tx, err := s.service.PrepareStake(req.Context(), wallet, form.Amount, form.Duration())
	if err != nil {
		return err
	}
	s.log.Info("prepared deposit", "wallet", wallet, "amount", form.Amount, "duration", form.Duration(), "nonce", tx.Nonce)
	return WriteJSON(w, tx)
}

func (s *Stakes) handlePrepareClaim(w http.ResponseWriter, req *http.Request) error {
	wallet, nonce, err := parseReceiptRequest(req)
	if err != nil {
		return err
	}
	tx, err := s.service.PrepareClaim(req.Context(), wallet, nonce)
	if err != nil {
		return err
	}
	return WriteJSON(w, tx)
}

func (s *Stakes) handlePrepareWithdraw(w http.ResponseWriter, req *http.Request) error {
	wallet, nonce, err := parseReceiptRequest(req)
	if err != nil {
		return err
	}
	tx, err := s.service.PrepareWithdraw(req.Context(), wallet, nonce)
	if err != nil {
		return err
	}
	return WriteJSON(w, tx)
}

func (s *Stakes) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/pool").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.handleGetPool))
	sub.Path("/preview").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.handlePreview))
	sub.Path("/stakes/{wallet}").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.handleGetStakes))
	sub.Path("/balance/{wallet}").Methods(http.MethodGet).HandlerFunc(WrapHandlerFunc(s.handleGetBalance))
	sub.Path("/stake/prepare").Methods(http.MethodPost).HandlerFunc(WrapHandlerFunc(s.handlePrepareStake))
	sub.Path("/claim/prepare").Methods(http.MethodPost).HandlerFunc(WrapHandlerFunc(s.handlePrepareClaim))
	sub.Path("/withdraw/prepare").Methods(http.MethodPost).HandlerFunc(WrapHandlerFunc(s.handlePrepareWithdraw))
}

func parseReceiptRequest(req *http.Request) (solana.PublicKey, uint32, error) {
	var body ReceiptRequest
	if err := ParseJSON(req.Body, &body); err != nil {
		return solana.PublicKey{}, 0, BadRequest(fmt.Errorf("body: %w", err))
	}
	wallet, err := parseWallet(body.Wallet)
	return wallet, body.Nonce, err
}

func parseWallet(value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, BadRequest(errors.New("wallet: missing"))
	}
	wallet, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, BadRequest(fmt.Errorf("wallet: %w", err))
	}
	return wallet, nil
}

func parseUintParam(value string) (uint64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseUint(value, 10, 64)
}
