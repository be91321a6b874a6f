package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/db/dbtest"
	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/events"
)

func Test_DisputeService_OpenDispute(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	mockProducer := &events.MockProducer{}
	service, err := NewDisputeService(models, mockProducer, nil, 0)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{Status: data.ReviewTaskStatus})
	assignment := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{TaskID: task.ID, WorkerID: "worker-1"})
	submission := data.CreateSubmissionFixture(t, ctx, dbt, &data.Submission{
		TaskID:       task.ID,
		WorkerID:     "worker-1",
		AssignmentID: assignment.ID,
		Answer:       "cat",
		Status:       data.RejectedSubmissionStatus,
	})

	t.Run("another worker cannot dispute it", func(t *testing.T) {
		_, err := service.OpenDispute(ctx, submission.ID, "intruder", "that answer was mine")
		assert.ErrorIs(t, err, ErrSubmissionNotOwned)
	})

	t.Run("owner opens the dispute", func(t *testing.T) {
		dispute, err := service.OpenDispute(ctx, submission.ID, "worker-1", "the gold answer is wrong")
		require.NoError(t, err)
		assert.Equal(t, data.OpenDisputeStatus, dispute.Status)

		disputed, err := models.Submissions.Get(ctx, dbt, submission.ID)
		require.NoError(t, err)
		assert.Equal(t, data.DisputedSubmissionStatus, disputed.Status)
	})

	t.Run("a Disputed submission cannot be disputed again", func(t *testing.T) {
		_, err := service.OpenDispute(ctx, submission.ID, "worker-1", "again")
		assert.ErrorIs(t, err, ErrSubmissionNotDisputable)
	})
}

func Test_DisputeService_ResolveDispute(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)

	setup := func(t *testing.T, workerID string) (*DisputeService, *events.MockProducer, *data.Dispute, *data.Submission) {
		t.Helper()
		mockProducer := &events.MockProducer{}
		service, err := NewDisputeService(models, mockProducer, nil, 0)
		require.NoError(t, err)

		task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{Status: data.ReviewTaskStatus})
		assignment := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{TaskID: task.ID, WorkerID: workerID})
		submission := data.CreateSubmissionFixture(t, ctx, dbt, &data.Submission{
			TaskID:       task.ID,
			WorkerID:     workerID,
			AssignmentID: assignment.ID,
			Answer:       "cat",
			Status:       data.RejectedSubmissionStatus,
		})
		dispute, err := service.OpenDispute(ctx, submission.ID, workerID, "please re-check")
		require.NoError(t, err)
		return service, mockProducer, dispute, submission
	}

	t.Run("PARTIAL approves with half payout", func(t *testing.T) {
		service, mockProducer, dispute, submission := setup(t, "worker-partial")
		mockProducer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []events.Message) bool {
			return len(msgs) == 1 && msgs[0].Topic == events.SubmissionStatusTopic
		})).Return(nil).Once()

		require.NoError(t, service.ResolveDispute(ctx, dispute.ID, data.PartialDisputeDecision, "half credit"))

		resolved, err := models.Disputes.Get(ctx, dbt, dispute.ID)
		require.NoError(t, err)
		assert.Equal(t, data.ResolvedDisputeStatus, resolved.Status)
		require.NotNil(t, resolved.PayoutPercent)
		assert.Equal(t, 50, *resolved.PayoutPercent)

		approved, err := models.Submissions.Get(ctx, dbt, submission.ID)
		require.NoError(t, err)
		assert.Equal(t, data.ApprovedSubmissionStatus, approved.Status)
		require.NotNil(t, approved.DisputeResolution)
		assert.Equal(t, data.PartialDisputeDecision, approved.DisputeResolution.Decision)
		assert.Equal(t, 50, approved.DisputeResolution.PayoutPercent)

		mockProducer.AssertExpectations(t)
	})

	t.Run("REJECT is final and emits nothing", func(t *testing.T) {
		service, mockProducer, dispute, submission := setup(t, "worker-reject")

		require.NoError(t, service.ResolveDispute(ctx, dispute.ID, data.RejectDisputeDecision, "answer is plainly wrong"))

		final, err := models.Submissions.Get(ctx, dbt, submission.ID)
		require.NoError(t, err)
		assert.Equal(t, data.RejectedFinalSubmissionStatus, final.Status)

		mockProducer.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})

	t.Run("a resolved dispute cannot be resolved again", func(t *testing.T) {
		service, mockProducer, dispute, _ := setup(t, "worker-twice")
		mockProducer.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, service.ResolveDispute(ctx, dispute.ID, data.ApproveDisputeDecision, "ok"))
		err := service.ResolveDispute(ctx, dispute.ID, data.ApproveDisputeDecision, "ok again")
		assert.ErrorIs(t, err, ErrDisputeNotOpen)
	})

	t.Run("invalid decision", func(t *testing.T) {
		service, _, dispute, _ := setup(t, "worker-bogus")
		err := service.ResolveDispute(ctx, dispute.ID, data.DisputeDecision("MAYBE"), "")
		assert.ErrorIs(t, err, ErrInvalidDisputeDecision)
	})
}

func Test_DisputeService_AutoResolveOpenDisputes(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	mockProducer := &events.MockProducer{}
	mockProducer.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
	service, err := NewDisputeService(models, mockProducer, nil, time.Hour)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{Status: data.ReviewTaskStatus})
	assignment := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{TaskID: task.ID, WorkerID: "worker-1"})
	submission := data.CreateSubmissionFixture(t, ctx, dbt, &data.Submission{
		TaskID:       task.ID,
		WorkerID:     "worker-1",
		AssignmentID: assignment.ID,
		Answer:       "cat",
		Status:       data.DisputedSubmissionStatus,
	})
	lapsed := data.CreateDisputeFixture(t, ctx, dbt, &data.Dispute{
		SubmissionID: submission.ID,
		WorkerID:     "worker-1",
	})
	// age the dispute past the window
	_, err = dbt.ExecContext(ctx, `UPDATE disputes SET created_at = NOW() - INTERVAL '2 hours' WHERE id = $1`, lapsed.ID)
	require.NoError(t, err)

	resolved, err := service.AutoResolveOpenDisputes(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	autoApproved, err := models.Disputes.Get(ctx, dbt, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, data.AutoApprovedDisputeStatus, autoApproved.Status)
	require.NotNil(t, autoApproved.Decision)
	assert.Equal(t, data.AutoApproveDisputeDecision, *autoApproved.Decision)

	approved, err := models.Submissions.Get(ctx, dbt, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, data.ApprovedSubmissionStatus, approved.Status)

	// a second sweep finds nothing
	resolved, err = service.AutoResolveOpenDisputes(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, resolved)
}
