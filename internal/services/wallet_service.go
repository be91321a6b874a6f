package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/utils"
)

var (
	maxDepositAmount  = decimal.NewFromInt(10_000)
	minWithdrawAmount = decimal.NewFromInt(10)
	maxWithdrawAmount = decimal.NewFromInt(5_000)
)

var (
	// ErrInvalidDepositAmount means the deposit is not in (0, 10000].
	ErrInvalidDepositAmount = errors.New("deposit amount must be greater than 0 and at most 10000")
	// ErrInvalidWithdrawAmount means the withdrawal is not in [10, 5000].
	ErrInvalidWithdrawAmount = errors.New("withdrawal amount must be between 10 and 5000")
	// ErrInvalidPayoutEmail means the payout email failed validation.
	ErrInvalidPayoutEmail = errors.New("invalid payout email")
)

// WalletService handles user-facing wallet operations. Task settlement is the
// PaymentService's job.
type WalletService struct {
	models *data.Models
}

func NewWalletService(models *data.Models) (*WalletService, error) {
	if models == nil {
		return nil, fmt.Errorf("models cannot be nil")
	}
	return &WalletService{models: models}, nil
}

// GetBalance returns the wallet balance, zero for wallets that have never
// been funded.
func (s *WalletService) GetBalance(ctx context.Context, walletID string) (decimal.Decimal, error) {
	wallet, err := s.models.Wallets.Get(ctx, s.models.DBConnectionPool, walletID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("loading wallet %s: %w", walletID, err)
	}
	return wallet.Balance, nil
}

// Deposit credits the wallet and records a completed DEPOSIT transaction.
func (s *WalletService) Deposit(ctx context.Context, walletID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() || amount.GreaterThan(maxDepositAmount) {
		return decimal.Zero, ErrInvalidDepositAmount
	}

	newBalance, err := db.RunInTransactionWithResult(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) (decimal.Decimal, error) {
		balance, innerErr := s.models.Wallets.Credit(ctx, dbTx, walletID, amount)
		if innerErr != nil {
			return decimal.Zero, innerErr
		}

		txn := &data.Transaction{
			ID:         uuid.NewString(),
			Type:       data.DepositTransactionType,
			Amount:     amount,
			ToWalletID: &walletID,
			Status:     data.CompletedTransactionStatus,
		}
		if innerErr = s.models.Transactions.Insert(ctx, dbTx, txn); innerErr != nil {
			return decimal.Zero, innerErr
		}
		return balance, nil
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("depositing into wallet %s: %w", walletID, err)
	}

	logger.Ctx(ctx).Infof("Deposited %s into wallet %s", amount, walletID)
	return newBalance, nil
}

// Withdraw debits the wallet and records a pending WITHDRAWAL transaction;
// the actual payout to the external account is asynchronous.
func (s *WalletService) Withdraw(ctx context.Context, walletID string, amount decimal.Decimal, payoutEmail string) (decimal.Decimal, error) {
	if amount.LessThan(minWithdrawAmount) || amount.GreaterThan(maxWithdrawAmount) {
		return decimal.Zero, ErrInvalidWithdrawAmount
	}
	if err := utils.ValidateEmail(payoutEmail); err != nil {
		return decimal.Zero, ErrInvalidPayoutEmail
	}

	newBalance, err := db.RunInTransactionWithResult(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) (decimal.Decimal, error) {
		balance, innerErr := s.models.Wallets.Debit(ctx, dbTx, walletID, amount)
		if innerErr != nil {
			return decimal.Zero, innerErr
		}

		txn := &data.Transaction{
			ID:           uuid.NewString(),
			Type:         data.WithdrawalTransactionType,
			Amount:       amount,
			FromWalletID: &walletID,
			ReferenceID:  &payoutEmail,
			Status:       data.PendingTransactionStatus,
		}
		if innerErr = s.models.Transactions.Insert(ctx, dbTx, txn); innerErr != nil {
			return decimal.Zero, innerErr
		}
		return balance, nil
	})
	if err != nil {
		if errors.Is(err, data.ErrInsufficientBalance) {
			return decimal.Zero, data.ErrInsufficientBalance
		}
		return decimal.Zero, fmt.Errorf("withdrawing from wallet %s: %w", walletID, err)
	}

	logger.Ctx(ctx).Infof("Withdrew %s from wallet %s to %s", amount, walletID, utils.TruncateString(payoutEmail, 3))
	return newBalance, nil
}

// ListTransactions returns the wallet's most recent ledger entries.
func (s *WalletService) ListTransactions(ctx context.Context, walletID string, limit int) ([]*data.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.models.Transactions.GetByWallet(ctx, s.models.DBConnectionPool, walletID, limit)
}
