package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/db/dbtest"
	"github.com/crowdtask/platform-backend/internal/data"
)

func Test_WalletService_Deposit(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewWalletService(models)
	require.NoError(t, err)

	t.Run("bounds", func(t *testing.T) {
		_, err := service.Deposit(ctx, "wallet-1", decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidDepositAmount)

		_, err = service.Deposit(ctx, "wallet-1", decimal.NewFromInt(-5))
		assert.ErrorIs(t, err, ErrInvalidDepositAmount)

		_, err = service.Deposit(ctx, "wallet-1", decimal.NewFromInt(10_001))
		assert.ErrorIs(t, err, ErrInvalidDepositAmount)
	})

	t.Run("credits and records the ledger entry", func(t *testing.T) {
		balance, err := service.Deposit(ctx, "wallet-1", decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.Equal(t, "100.00", balance.StringFixed(2))

		balance, err = service.Deposit(ctx, "wallet-1", decimal.NewFromInt(25))
		require.NoError(t, err)
		assert.Equal(t, "125.00", balance.StringFixed(2))

		txns, err := service.ListTransactions(ctx, "wallet-1", 10)
		require.NoError(t, err)
		require.Len(t, txns, 2)
		assert.Equal(t, data.DepositTransactionType, txns[0].Type)
		assert.Equal(t, data.CompletedTransactionStatus, txns[0].Status)
	})
}

func Test_WalletService_Withdraw(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewWalletService(models)
	require.NoError(t, err)

	data.CreateWalletFixture(t, ctx, dbt, "wallet-1", decimal.NewFromInt(200))

	t.Run("bounds", func(t *testing.T) {
		_, err := service.Withdraw(ctx, "wallet-1", decimal.NewFromInt(9), "worker@example.com")
		assert.ErrorIs(t, err, ErrInvalidWithdrawAmount)

		_, err = service.Withdraw(ctx, "wallet-1", decimal.NewFromInt(5_001), "worker@example.com")
		assert.ErrorIs(t, err, ErrInvalidWithdrawAmount)
	})

	t.Run("payout email is validated", func(t *testing.T) {
		_, err := service.Withdraw(ctx, "wallet-1", decimal.NewFromInt(50), "not-an-email")
		assert.ErrorIs(t, err, ErrInvalidPayoutEmail)
	})

	t.Run("debits and records a pending withdrawal", func(t *testing.T) {
		balance, err := service.Withdraw(ctx, "wallet-1", decimal.NewFromInt(50), "worker@example.com")
		require.NoError(t, err)
		assert.Equal(t, "150.00", balance.StringFixed(2))

		txns, err := service.ListTransactions(ctx, "wallet-1", 10)
		require.NoError(t, err)
		require.Len(t, txns, 1)
		assert.Equal(t, data.WithdrawalTransactionType, txns[0].Type)
		assert.Equal(t, data.PendingTransactionStatus, txns[0].Status)
		require.NotNil(t, txns[0].ReferenceID)
		assert.Equal(t, "worker@example.com", *txns[0].ReferenceID)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		_, err := service.Withdraw(ctx, "wallet-1", decimal.NewFromInt(5_000), "worker@example.com")
		assert.ErrorIs(t, err, data.ErrInsufficientBalance)
	})

	t.Run("long payout emails are stored intact", func(t *testing.T) {
		longEmail := "a.worker.with.a.rather.long.address@subdomain.example-company.com"
		require.Greater(t, len(longEmail), 36)

		balance, err := service.Withdraw(ctx, "wallet-1", decimal.NewFromInt(20), longEmail)
		require.NoError(t, err)
		assert.Equal(t, "130.00", balance.StringFixed(2))

		txns, err := service.ListTransactions(ctx, "wallet-1", 10)
		require.NoError(t, err)
		require.NotEmpty(t, txns)
		require.NotNil(t, txns[0].ReferenceID)
		assert.Equal(t, longEmail, *txns[0].ReferenceID)
	})
}

func Test_WalletService_GetBalance(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewWalletService(models)
	require.NoError(t, err)

	// a wallet that has never been funded reads as zero
	balance, err := service.GetBalance(ctx, "never-funded")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	data.CreateWalletFixture(t, ctx, dbt, "funded", decimal.NewFromFloat(12.34))
	balance, err = service.GetBalance(ctx, "funded")
	require.NoError(t, err)
	assert.Equal(t, "12.34", balance.StringFixed(2))
}
