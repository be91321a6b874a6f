package httphandler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/services"
)

func Test_WalletHandler_GetBalance(t *testing.T) {
	walletService := &MockWalletService{}
	handler := WalletHandler{WalletService: walletService}

	walletService.
		On("GetBalance", mock.Anything, "user-1").
		Return(decimal.RequireFromString("12.34"), nil).
		Once()

	req := requestWithUser(t, http.MethodGet, "/wallet", "", "user-1")
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.GetBalance).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"balance": "12.34"}`, rr.Body.String())
	walletService.AssertExpectations(t)
}

func Test_WalletHandler_Deposit(t *testing.T) {
	t.Run("🎉 successfully deposits", func(t *testing.T) {
		walletService := &MockWalletService{}
		handler := WalletHandler{WalletService: walletService}

		walletService.
			On("Deposit", mock.Anything, "user-1", decimal.RequireFromString("25")).
			Return(decimal.RequireFromString("125"), nil).
			Once()

		req := requestWithUser(t, http.MethodPost, "/wallet/deposit", `{"amount": "25"}`, "user-1")
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Deposit).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"newBalance": "125"}`, rr.Body.String())
		walletService.AssertExpectations(t)
	})

	t.Run("returns 400 for an out-of-bounds amount", func(t *testing.T) {
		walletService := &MockWalletService{}
		handler := WalletHandler{WalletService: walletService}

		walletService.
			On("Deposit", mock.Anything, "user-1", decimal.RequireFromString("-5")).
			Return(decimal.Zero, services.ErrInvalidDepositAmount).
			Once()

		req := requestWithUser(t, http.MethodPost, "/wallet/deposit", `{"amount": "-5"}`, "user-1")
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Deposit).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		walletService.AssertExpectations(t)
	})
}

func Test_WalletHandler_Withdraw(t *testing.T) {
	t.Run("🎉 successfully withdraws", func(t *testing.T) {
		walletService := &MockWalletService{}
		handler := WalletHandler{WalletService: walletService}

		walletService.
			On("Withdraw", mock.Anything, "user-1", decimal.RequireFromString("50"), "worker@example.com").
			Return(decimal.RequireFromString("150"), nil).
			Once()

		body := `{"amount": "50", "payoutEmail": "worker@example.com"}`
		req := requestWithUser(t, http.MethodPost, "/wallet/withdraw", body, "user-1")
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Withdraw).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"newBalance": "150"}`, rr.Body.String())
		walletService.AssertExpectations(t)
	})

	t.Run("returns 400 when the payout email is missing", func(t *testing.T) {
		walletService := &MockWalletService{}
		handler := WalletHandler{WalletService: walletService}

		req := requestWithUser(t, http.MethodPost, "/wallet/withdraw", `{"amount": "50"}`, "user-1")
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Withdraw).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "payoutEmail is required")
		walletService.AssertNotCalled(t, "Withdraw", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("returns 400 when the balance is insufficient", func(t *testing.T) {
		walletService := &MockWalletService{}
		handler := WalletHandler{WalletService: walletService}

		walletService.
			On("Withdraw", mock.Anything, "user-1", decimal.RequireFromString("500"), "worker@example.com").
			Return(decimal.Zero, data.ErrInsufficientBalance).
			Once()

		body := `{"amount": "500", "payoutEmail": "worker@example.com"}`
		req := requestWithUser(t, http.MethodPost, "/wallet/withdraw", body, "user-1")
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Withdraw).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Insufficient wallet balance")
		walletService.AssertExpectations(t)
	})
}

func Test_WalletHandler_ListTransactions(t *testing.T) {
	walletService := &MockWalletService{}
	handler := WalletHandler{WalletService: walletService}

	walletService.
		On("ListTransactions", mock.Anything, "user-1", 10).
		Return([]*data.Transaction{
			{ID: "txn-1", Type: data.DepositTransactionType, Amount: decimal.RequireFromString("25")},
		}, nil).
		Once()

	req := requestWithUser(t, http.MethodGet, "/wallet/transactions?limit=10", "", "user-1")
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.ListTransactions).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"id":"txn-1"`)
	walletService.AssertExpectations(t)
}
