package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crowdtask/platform-backend/internal/db"
)

type Wallet struct {
	ID        string          `json:"id" db:"id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type WalletModel struct {
	dbConnectionPool db.DBConnectionPool
}

const walletColumns = `id, balance, created_at, updated_at`

func (m *WalletModel) Get(ctx context.Context, sqlExec db.SQLExecuter, id string) (*Wallet, error) {
	var wallet Wallet
	query := fmt.Sprintf(`SELECT %s FROM wallets WHERE id = $1`, walletColumns)
	err := sqlExec.GetContext(ctx, &wallet, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying wallet %s: %w", id, err)
	}
	return &wallet, nil
}

// Credit adds amount to the wallet, creating it on first use, and returns the
// new balance.
func (m *WalletModel) Credit(ctx context.Context, sqlExec db.SQLExecuter, walletID string, amount decimal.Decimal) (decimal.Decimal, error) {
	const query = `
		INSERT INTO wallets
			(id, balance)
		VALUES
			($1, $2)
		ON CONFLICT (id) DO UPDATE SET
			balance = wallets.balance + EXCLUDED.balance,
			updated_at = NOW()
		RETURNING balance
	`
	var newBalance decimal.Decimal
	row := sqlExec.QueryRowxContext(ctx, query, walletID, amount)
	if err := row.Scan(&newBalance); err != nil {
		return decimal.Zero, fmt.Errorf("crediting wallet %s: %w", walletID, err)
	}
	return newBalance, nil
}

// Debit subtracts amount from the wallet and returns the new balance. The
// balance check and the write happen in one statement so a concurrent debit
// cannot push the balance negative; an uncovered debit or a missing wallet is
// reported as ErrInsufficientBalance.
func (m *WalletModel) Debit(ctx context.Context, sqlExec db.SQLExecuter, walletID string, amount decimal.Decimal) (decimal.Decimal, error) {
	const query = `
		UPDATE
			wallets
		SET
			balance = balance - $1,
			updated_at = NOW()
		WHERE
			id = $2 AND balance >= $1
		RETURNING balance
	`
	var newBalance decimal.Decimal
	row := sqlExec.QueryRowxContext(ctx, query, amount, walletID)
	if err := row.Scan(&newBalance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("debiting wallet %s: %w", walletID, ErrInsufficientBalance)
		}
		return decimal.Zero, fmt.Errorf("debiting wallet %s: %w", walletID, err)
	}
	return newBalance, nil
}
