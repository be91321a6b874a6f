package data

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/internal/db"
)

// Fixtures for DB-backed tests. Each helper inserts a row and returns the
// persisted record.

func CreateTaskFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, task *Task) *Task {
	t.Helper()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.RequesterID == "" {
		task.RequesterID = "requester-" + uuid.NewString()
	}
	if task.BatchID == "" {
		task.BatchID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = PublishedTaskStatus
	}
	if task.Type == "" {
		task.Type = "text-classification"
	}
	if task.Payload == nil {
		task.Payload = TaskPayload{"question": "Is this spam?", "reward": 0.50}
	}
	if task.RequiredLevel == nil {
		level := string(NoviceWorkerLevel)
		task.RequiredLevel = &level
	}

	const q = `
		INSERT INTO tasks
			(id, requester_id, batch_id, status, task_type, payload, is_gold, gold_answer, publish_at, assigned_to, assigned_at, required_level)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := sqlExec.ExecContext(ctx, q,
		task.ID, task.RequesterID, task.BatchID, task.Status, task.Type, task.Payload,
		task.IsGold, task.GoldAnswer, task.PublishAt, task.AssignedTo, task.AssignedAt, task.RequiredLevel)
	require.NoError(t, err)

	created, err := (&TaskModel{}).Get(ctx, sqlExec, task.ID)
	require.NoError(t, err)
	return created
}

func CreateAssignmentFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, assignment *Assignment) *Assignment {
	t.Helper()

	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.WorkerID == "" {
		assignment.WorkerID = "worker-" + uuid.NewString()
	}
	if assignment.Status == "" {
		assignment.Status = AssignedAssignmentStatus
	}
	if assignment.ExpiresAt.IsZero() {
		assignment.ExpiresAt = time.Now().Add(10 * time.Minute)
	}

	err := (&AssignmentModel{}).Insert(ctx, sqlExec, assignment)
	require.NoError(t, err)

	created, err := (&AssignmentModel{}).Get(ctx, sqlExec, assignment.ID)
	require.NoError(t, err)
	return created
}

func CreateSubmissionFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, submission *Submission) *Submission {
	t.Helper()

	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.WorkerID == "" {
		submission.WorkerID = "worker-" + uuid.NewString()
	}
	if submission.Status == "" {
		submission.Status = PendingSubmissionStatus
	}

	err := (&SubmissionModel{}).Insert(ctx, sqlExec, submission)
	require.NoError(t, err)

	created, err := (&SubmissionModel{}).Get(ctx, sqlExec, submission.ID)
	require.NoError(t, err)
	return created
}

func CreateDisputeFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, dispute *Dispute) *Dispute {
	t.Helper()

	if dispute.ID == "" {
		dispute.ID = uuid.NewString()
	}
	if dispute.WorkerID == "" {
		dispute.WorkerID = "worker-" + uuid.NewString()
	}
	if dispute.Status == "" {
		dispute.Status = OpenDisputeStatus
	}
	if dispute.Reason == "" {
		dispute.Reason = "I believe my answer was correct"
	}

	err := (&DisputeModel{}).Insert(ctx, sqlExec, dispute)
	require.NoError(t, err)

	created, err := (&DisputeModel{}).Get(ctx, sqlExec, dispute.ID)
	require.NoError(t, err)
	return created
}

func CreateWalletFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, walletID string, balance decimal.Decimal) *Wallet {
	t.Helper()

	_, err := (&WalletModel{}).Credit(ctx, sqlExec, walletID, balance)
	require.NoError(t, err)

	created, err := (&WalletModel{}).Get(ctx, sqlExec, walletID)
	require.NoError(t, err)
	return created
}
