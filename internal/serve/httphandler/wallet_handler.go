package httphandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/serve/httperror"
	"github.com/crowdtask/platform-backend/internal/serve/httpjson"
	"github.com/crowdtask/platform-backend/internal/serve/middleware"
	"github.com/crowdtask/platform-backend/internal/serve/validators"
	"github.com/crowdtask/platform-backend/internal/services"
)

type WalletServiceInterface interface {
	GetBalance(ctx context.Context, walletID string) (decimal.Decimal, error)
	Deposit(ctx context.Context, walletID string, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, walletID string, amount decimal.Decimal, payoutEmail string) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, walletID string, limit int) ([]*data.Transaction, error)
}

var _ WalletServiceInterface = (*services.WalletService)(nil)

// WalletHandler exposes the wallet endpoints. Wallets are keyed by the
// authenticated user's ID, so requesters fund the same wallet workers cash
// out of when the same account plays both roles.
type WalletHandler struct {
	WalletService WalletServiceInterface
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// GetBalance returns the caller's wallet balance, zero for unfunded wallets.
func (h WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	walletID := middleware.UserIDFromContext(ctx)

	balance, err := h.WalletService.GetBalance(ctx, walletID)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get wallet balance", err, nil).Render(w)
		return
	}

	httpjson.Render(w, balanceResponse{Balance: balance})
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type mutateBalanceResponse struct {
	NewBalance decimal.Decimal `json:"newBalance"`
}

// Deposit credits the caller's wallet.
func (h WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	walletID := middleware.UserIDFromContext(ctx)

	var reqBody depositRequest
	if err := httpjson.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("The request was invalid in some way.", err, nil).Render(w)
		return
	}

	newBalance, err := h.WalletService.Deposit(ctx, walletID, reqBody.Amount)
	if err != nil {
		if errors.Is(err, services.ErrInvalidDepositAmount) {
			httperror.BadRequest("Deposit amount must be greater than 0 and at most 10000.", err, nil).Render(w)
			return
		}
		httperror.InternalError(ctx, "Cannot deposit funds", err, nil).Render(w)
		return
	}

	httpjson.Render(w, mutateBalanceResponse{NewBalance: newBalance})
}

type withdrawRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PayoutEmail string          `json:"payoutEmail"`
}

// Withdraw debits the caller's wallet and queues a payout to their email.
func (h WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	walletID := middleware.UserIDFromContext(ctx)

	var reqBody withdrawRequest
	if err := httpjson.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("The request was invalid in some way.", err, nil).Render(w)
		return
	}

	v := validators.NewValidator()
	v.Check(reqBody.PayoutEmail != "", "payoutEmail", "payoutEmail is required")
	if v.HasErrors() {
		httperror.BadRequest("Request invalid", nil, v.Errors).Render(w)
		return
	}

	newBalance, err := h.WalletService.Withdraw(ctx, walletID, reqBody.Amount, reqBody.PayoutEmail)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidWithdrawAmount):
			httperror.BadRequest("Withdrawal amount must be between 10 and 5000.", err, nil).Render(w)
		case errors.Is(err, services.ErrInvalidPayoutEmail):
			httperror.BadRequest("Invalid payout email.", err, nil).Render(w)
		case errors.Is(err, data.ErrInsufficientBalance):
			httperror.BadRequest("Insufficient wallet balance.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot withdraw funds", err, nil).Render(w)
		}
		return
	}

	httpjson.Render(w, mutateBalanceResponse{NewBalance: newBalance})
}

// ListTransactions returns the caller's transaction history, newest first.
func (h WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	walletID := middleware.UserIDFromContext(ctx)

	limit := 50
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			httperror.BadRequest("Invalid limit.", err, nil).Render(w)
			return
		}
		limit = parsed
	}

	transactions, err := h.WalletService.ListTransactions(ctx, walletID, limit)
	if err != nil {
		httperror.InternalError(ctx, "Cannot list transactions", err, nil).Render(w)
		return
	}

	httpjson.Render(w, map[string]any{"transactions": transactions})
}
