package data

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crowdtask/platform-backend/internal/db"
)

type TransactionType string

const (
	DepositTransactionType     TransactionType = "DEPOSIT"
	WithdrawalTransactionType  TransactionType = "WITHDRAWAL"
	TaskPaymentTransactionType TransactionType = "TASK_PAYMENT"
	PlatformFeeTransactionType TransactionType = "PLATFORM_FEE"
	RefundTransactionType      TransactionType = "REFUND"
)

func (t TransactionType) Validate() error {
	switch t {
	case DepositTransactionType, WithdrawalTransactionType, TaskPaymentTransactionType, PlatformFeeTransactionType, RefundTransactionType:
		return nil
	default:
		return fmt.Errorf("invalid transaction type %q", t)
	}
}

type TransactionStatus string

const (
	PendingTransactionStatus   TransactionStatus = "PENDING"
	CompletedTransactionStatus TransactionStatus = "COMPLETED"
)

type Transaction struct {
	ID           string            `json:"id" db:"id"`
	Type         TransactionType   `json:"transaction_type" db:"transaction_type"`
	Amount       decimal.Decimal   `json:"amount" db:"amount"`
	GrossAmount  *decimal.Decimal  `json:"gross_amount,omitempty" db:"gross_amount"`
	PlatformFee  *decimal.Decimal  `json:"platform_fee,omitempty" db:"platform_fee"`
	FromWalletID *string           `json:"from_wallet_id,omitempty" db:"from_wallet_id"`
	ToWalletID   *string           `json:"to_wallet_id,omitempty" db:"to_wallet_id"`
	ReferenceID  *string           `json:"reference_id,omitempty" db:"reference_id"`
	TaskID       *string           `json:"task_id,omitempty" db:"task_id"`
	Status       TransactionStatus `json:"status" db:"status"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

type TransactionModel struct {
	dbConnectionPool db.DBConnectionPool
}

const transactionColumns = `
	id, transaction_type, amount, gross_amount, platform_fee, from_wallet_id,
	to_wallet_id, reference_id, task_id, status, created_at
`

func (m *TransactionModel) Insert(ctx context.Context, sqlExec db.SQLExecuter, txn *Transaction) error {
	if err := txn.Type.Validate(); err != nil {
		return fmt.Errorf("validating transaction type: %w", err)
	}
	const q = `
		INSERT INTO transactions
			(id, transaction_type, amount, gross_amount, platform_fee, from_wallet_id, to_wallet_id, reference_id, task_id, status)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := sqlExec.ExecContext(ctx, q,
		txn.ID,
		txn.Type,
		txn.Amount,
		txn.GrossAmount,
		txn.PlatformFee,
		txn.FromWalletID,
		txn.ToWalletID,
		txn.ReferenceID,
		txn.TaskID,
		txn.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting transaction %s: %w", txn.ID, err)
	}
	return nil
}

// GetByWallet returns the ledger entries touching the wallet on either side,
// newest first, bounded by limit.
func (m *TransactionModel) GetByWallet(ctx context.Context, sqlExec db.SQLExecuter, walletID string, limit int) ([]*Transaction, error) {
	transactions := []*Transaction{}
	query := fmt.Sprintf(`
		SELECT %s FROM transactions
		WHERE from_wallet_id = $1 OR to_wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, transactionColumns)
	err := sqlExec.SelectContext(ctx, &transactions, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying transactions for wallet %s: %w", walletID, err)
	}
	return transactions, nil
}
