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

func Test_SplitReward(t *testing.T) {
	testCases := []struct {
		total      string
		wantWorker string
		wantFee    string
	}{
		{"0.50", "0.40", "0.10"},
		{"0.99", "0.80", "0.19"}, // fee floors to the cent
		{"1.00", "0.80", "0.20"},
		{"0.01", "0.01", "0.00"},
		{"2.37", "1.90", "0.47"},
	}
	for _, tc := range testCases {
		total := decimal.RequireFromString(tc.total)
		worker, fee := SplitReward(total)
		assert.Equalf(t, tc.wantWorker, worker.StringFixed(2), "worker share of %s", tc.total)
		assert.Equalf(t, tc.wantFee, fee.StringFixed(2), "fee of %s", tc.total)
		assert.Truef(t, worker.Add(fee).Equal(total), "worker + fee must equal total for %s", tc.total)
	}
}

func Test_PaymentService_SettleSubmission(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewPaymentService(models, nil, nil)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
		RequesterID: "requester-1",
		Status:      data.ReviewTaskStatus,
		Payload:     data.TaskPayload{"question": "q", "reward": "1.00"},
	})
	assignment := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{TaskID: task.ID, WorkerID: "worker-1"})
	submission := data.CreateSubmissionFixture(t, ctx, dbt, &data.Submission{
		TaskID:       task.ID,
		WorkerID:     "worker-1",
		AssignmentID: assignment.ID,
		Answer:       "yes",
	})
	data.CreateWalletFixture(t, ctx, dbt, "requester-1", decimal.NewFromInt(10))

	require.NoError(t, service.SettleSubmission(ctx, submission.ID, 100))

	requesterWallet, err := models.Wallets.Get(ctx, dbt, "requester-1")
	require.NoError(t, err)
	assert.Equal(t, "9.00", requesterWallet.Balance.StringFixed(2))

	workerWallet, err := models.Wallets.Get(ctx, dbt, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "0.80", workerWallet.Balance.StringFixed(2))

	platformWallet, err := models.Wallets.Get(ctx, dbt, data.PlatformWalletID)
	require.NoError(t, err)
	assert.Equal(t, "0.20", platformWallet.Balance.StringFixed(2))

	txns, err := models.Transactions.GetByWallet(ctx, dbt, "worker-1", 10)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, data.TaskPaymentTransactionType, txns[0].Type)
	assert.Equal(t, "0.80", txns[0].Amount.StringFixed(2))

	// a replayed Approved edge must not settle twice
	require.NoError(t, service.SettleSubmission(ctx, submission.ID, 100))
	workerWallet, err = models.Wallets.Get(ctx, dbt, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "0.80", workerWallet.Balance.StringFixed(2))
}

func Test_PaymentService_SettleSubmission_insufficientFunds(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewPaymentService(models, nil, nil)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
		RequesterID: "broke-requester",
		Status:      data.ReviewTaskStatus,
		Payload:     data.TaskPayload{"reward": "5.00"},
	})
	assignment := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{TaskID: task.ID, WorkerID: "worker-2"})
	submission := data.CreateSubmissionFixture(t, ctx, dbt, &data.Submission{
		TaskID:       task.ID,
		WorkerID:     "worker-2",
		AssignmentID: assignment.ID,
		Answer:       "yes",
	})
	data.CreateWalletFixture(t, ctx, dbt, "broke-requester", decimal.NewFromInt(1))

	// not retryable: the failure is recorded and the call succeeds
	require.NoError(t, service.SettleSubmission(ctx, submission.ID, 100))

	settled, err := models.Submissions.Get(ctx, dbt, submission.ID)
	require.NoError(t, err)
	require.NotNil(t, settled.PaymentStatus)
	assert.Equal(t, data.PaymentStatusFailed, *settled.PaymentStatus)
	require.NotNil(t, settled.PaymentFailureReason)
	assert.Equal(t, "Insufficient funds in requester wallet", *settled.PaymentFailureReason)

	// the worker got nothing and the rollback kept the requester whole
	requesterWallet, err := models.Wallets.Get(ctx, dbt, "broke-requester")
	require.NoError(t, err)
	assert.Equal(t, "1.00", requesterWallet.Balance.StringFixed(2))
}

func Test_PaymentService_SettleSubmission_partialPayout(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	service, err := NewPaymentService(models, nil, nil)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
		RequesterID: "requester-3",
		Status:      data.ReviewTaskStatus,
		Payload:     data.TaskPayload{"reward": "1.00"},
	})
	assignment := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{TaskID: task.ID, WorkerID: "worker-3"})
	submission := data.CreateSubmissionFixture(t, ctx, dbt, &data.Submission{
		TaskID:       task.ID,
		WorkerID:     "worker-3",
		AssignmentID: assignment.ID,
		Answer:       "yes",
	})
	data.CreateWalletFixture(t, ctx, dbt, "requester-3", decimal.NewFromInt(10))

	// PARTIAL dispute decision pays half the task price
	require.NoError(t, service.SettleSubmission(ctx, submission.ID, 50))

	workerWallet, err := models.Wallets.Get(ctx, dbt, "worker-3")
	require.NoError(t, err)
	assert.Equal(t, "0.40", workerWallet.Balance.StringFixed(2))

	requesterWallet, err := models.Wallets.Get(ctx, dbt, "requester-3")
	require.NoError(t, err)
	assert.Equal(t, "9.50", requesterWallet.Balance.StringFixed(2))
}
