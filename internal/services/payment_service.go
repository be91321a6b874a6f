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
	"github.com/crowdtask/platform-backend/internal/message"
	"github.com/crowdtask/platform-backend/internal/monitor"
	"github.com/crowdtask/platform-backend/internal/utils"
)

// DefaultTaskReward applies when a task payload carries no reward.
var DefaultTaskReward = decimal.NewFromFloat(0.50)

var platformFeeRate = decimal.NewFromFloat(0.20)

const insufficientFundsReason = "Insufficient funds in requester wallet"

// PaymentService settles approved submissions: debits the requester, credits
// the worker and the platform fee wallet, and records both ledger entries in
// one database transaction.
type PaymentService struct {
	models          *data.Models
	messengerClient message.MessengerClient
	monitorService  monitor.MonitorServiceInterface
}

func NewPaymentService(models *data.Models, messengerClient message.MessengerClient, monitorService monitor.MonitorServiceInterface) (*PaymentService, error) {
	if models == nil {
		return nil, fmt.Errorf("models cannot be nil")
	}
	return &PaymentService{
		models:          models,
		messengerClient: messengerClient,
		monitorService:  monitorService,
	}, nil
}

// SplitReward computes the platform fee and the worker share of a gross
// amount. The fee is 20% floored to the cent, so worker + fee == total.
func SplitReward(total decimal.Decimal) (workerAmount, platformFee decimal.Decimal) {
	platformFee = total.Mul(platformFeeRate).RoundDown(2)
	workerAmount = total.Sub(platformFee)
	return workerAmount, platformFee
}

// SettleSubmission pays out a submission that just turned Approved. The
// payout percent comes from dispute resolutions; regular approvals pay 100.
// Settlement is idempotent: the paid flag is written at most once and a
// replayed event is a no-op.
func (s *PaymentService) SettleSubmission(ctx context.Context, submissionID string, payoutPercent int) error {
	dbConnectionPool := s.models.DBConnectionPool

	submission, err := s.models.Submissions.Get(ctx, dbConnectionPool, submissionID)
	if err != nil {
		return fmt.Errorf("loading submission %s: %w", submissionID, err)
	}
	task, err := s.models.Tasks.Get(ctx, dbConnectionPool, submission.TaskID)
	if err != nil {
		return fmt.Errorf("loading task %s: %w", submission.TaskID, err)
	}

	reward, ok := task.Payload.Reward()
	if !ok {
		reward = DefaultTaskReward
	}
	if payoutPercent < 0 || payoutPercent > 100 {
		return fmt.Errorf("invalid payout percent %d for submission %s", payoutPercent, submissionID)
	}
	total := reward.Mul(decimal.NewFromInt(int64(payoutPercent))).Div(decimal.NewFromInt(100)).RoundDown(2)
	if total.IsZero() {
		logger.Ctx(ctx).Infof("Submission %s has a zero payout, skipping settlement", submissionID)
		return nil
	}
	workerAmount, platformFee := SplitReward(total)

	err = db.RunInTransaction(ctx, dbConnectionPool, nil, func(dbTx db.DBTransaction) error {
		// Paid-flag is the settlement lock: the conditional write fires once.
		if innerErr := s.models.Submissions.MarkPaid(ctx, dbTx, submissionID); innerErr != nil {
			return innerErr
		}

		if _, innerErr := s.models.Wallets.Debit(ctx, dbTx, task.RequesterID, total); innerErr != nil {
			return innerErr
		}
		if _, innerErr := s.models.Wallets.Credit(ctx, dbTx, submission.WorkerID, workerAmount); innerErr != nil {
			return innerErr
		}
		if _, innerErr := s.models.Wallets.Credit(ctx, dbTx, data.PlatformWalletID, platformFee); innerErr != nil {
			return innerErr
		}

		paymentTxn := &data.Transaction{
			ID:           uuid.NewString(),
			Type:         data.TaskPaymentTransactionType,
			Amount:       workerAmount,
			GrossAmount:  &total,
			PlatformFee:  &platformFee,
			FromWalletID: &task.RequesterID,
			ToWalletID:   &submission.WorkerID,
			ReferenceID:  &submission.ID,
			TaskID:       &task.ID,
			Status:       data.CompletedTransactionStatus,
		}
		if innerErr := s.models.Transactions.Insert(ctx, dbTx, paymentTxn); innerErr != nil {
			return innerErr
		}

		feeTxn := &data.Transaction{
			ID:           uuid.NewString(),
			Type:         data.PlatformFeeTransactionType,
			Amount:       platformFee,
			FromWalletID: &task.RequesterID,
			ToWalletID:   utils.StringPtr(data.PlatformWalletID),
			ReferenceID:  &submission.ID,
			TaskID:       &task.ID,
			Status:       data.CompletedTransactionStatus,
		}
		return s.models.Transactions.Insert(ctx, dbTx, feeTxn)
	})

	switch {
	case err == nil:
		s.monitorSettlement("success")
		logger.Ctx(ctx).Infof("Settled submission %s: worker %s +%s, platform fee %s", submissionID, submission.WorkerID, workerAmount, platformFee)
		s.notifyWorker(ctx, submission.WorkerID, workerAmount)
		return nil

	case errors.Is(err, data.ErrRecordAlreadyExists):
		logger.Ctx(ctx).Infof("Submission %s is already settled, skipping", submissionID)
		return nil

	case errors.Is(err, data.ErrInsufficientBalance):
		// Not retryable: record the failure and move on.
		s.monitorSettlement("insufficient_funds")
		if failErr := s.models.Submissions.MarkPaymentFailed(ctx, dbConnectionPool, submissionID, insufficientFundsReason); failErr != nil {
			return fmt.Errorf("marking submission %s payment failed: %w", submissionID, failErr)
		}
		logger.Ctx(ctx).Warnf("Settlement of submission %s failed: %s", submissionID, insufficientFundsReason)
		return nil

	default:
		s.monitorSettlement("error")
		return fmt.Errorf("settling submission %s: %w", submissionID, err)
	}
}

func (s *PaymentService) monitorSettlement(outcome string) {
	if s.monitorService == nil {
		return
	}
	if err := s.monitorService.MonitorCounters(monitor.PaymentsSettledCounterTag, map[string]string{"outcome": outcome}); err != nil {
		logger.Errorf("monitoring settlement outcome: %v", err)
	}
}

// notifyWorker sends a best-effort payout email. Failure is never fatal.
func (s *PaymentService) notifyWorker(ctx context.Context, workerID string, amount decimal.Decimal) {
	if s.messengerClient == nil {
		return
	}
	if err := utils.ValidateEmail(workerID); err != nil {
		// worker IDs are not guaranteed to be email addresses
		return
	}
	msg := message.Message{
		ToEmail: workerID,
		Title:   "You've been paid!",
		Body:    fmt.Sprintf("Your submission was approved and $%s was credited to your wallet.", amount.StringFixed(2)),
	}
	if err := s.messengerClient.SendMessage(msg); err != nil {
		logger.Ctx(ctx).Warnf("sending payout notification to worker %s: %v", workerID, err)
	}
}
