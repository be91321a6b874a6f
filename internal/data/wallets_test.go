package data

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/db/dbtest"
)

func Test_WalletModel_CreditAndDebit(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()
	m := &WalletModel{}

	balance, err := m.Credit(ctx, dbt, "wallet-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))

	balance, err = m.Credit(ctx, dbt, "wallet-1", decimal.NewFromFloat(25.50))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromFloat(125.50)))

	balance, err = m.Debit(ctx, dbt, "wallet-1", decimal.NewFromFloat(25.50))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))
}

func Test_WalletModel_Get_selectsEveryMappedColumn(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()
	m := &WalletModel{}

	_, err := m.Credit(ctx, dbt, "wallet-cols", decimal.NewFromInt(5))
	require.NoError(t, err)

	wallet, err := m.Get(ctx, dbt, "wallet-cols")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(5)))
	assert.False(t, wallet.CreatedAt.IsZero())
	assert.False(t, wallet.UpdatedAt.IsZero())
}

func Test_WalletModel_Debit_insufficientBalance(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()
	m := &WalletModel{}

	_, err := m.Credit(ctx, dbt, "wallet-2", decimal.NewFromInt(10))
	require.NoError(t, err)

	_, err = m.Debit(ctx, dbt, "wallet-2", decimal.NewFromInt(11))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// balance untouched
	wallet, err := m.Get(ctx, dbt, "wallet-2")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(10)))
}

func Test_WalletModel_Debit_missingWallet(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	_, err := (&WalletModel{}).Debit(context.Background(), dbt, "no-such-wallet", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func Test_WalletModel_Get_notFound(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	_, err := (&WalletModel{}).Get(context.Background(), dbt, "no-such-wallet")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
