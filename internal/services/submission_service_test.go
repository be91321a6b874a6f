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
	"github.com/crowdtask/platform-backend/internal/utils"
)

func Test_SubmissionService_SubmitAnswer(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	mockProducer := &events.MockProducer{}
	mockProducer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []events.Message) bool {
		return len(msgs) == 1 &&
			msgs[0].Topic == events.SubmissionReceivedTopic &&
			msgs[0].Type == events.SubmissionReceivedType
	})).Return(nil).Once()

	service, err := NewSubmissionService(models, mockProducer)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
		Status:     data.AssignedTaskStatus,
		AssignedTo: utils.StringPtr("worker-1"),
	})
	assignment := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{
		TaskID:   task.ID,
		WorkerID: "worker-1",
	})

	submission, err := service.SubmitAnswer(ctx, task.ID, "worker-1", assignment.ID, "cat")
	require.NoError(t, err)
	assert.Equal(t, data.PendingSubmissionStatus, submission.Status)
	assert.Equal(t, "cat", submission.Answer)

	updatedAssignment, err := models.Assignments.Get(ctx, dbt, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, data.SubmittedAssignmentStatus, updatedAssignment.Status)

	updatedTask, err := models.Tasks.Get(ctx, dbt, task.ID)
	require.NoError(t, err)
	assert.Equal(t, data.ReviewTaskStatus, updatedTask.Status)

	mockProducer.AssertExpectations(t)
}

func Test_SubmissionService_SubmitAnswer_validations(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)
	mockProducer := &events.MockProducer{}
	service, err := NewSubmissionService(models, mockProducer)
	require.NoError(t, err)

	task := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
		Status:     data.AssignedTaskStatus,
		AssignedTo: utils.StringPtr("worker-1"),
	})
	assignment := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{
		TaskID:   task.ID,
		WorkerID: "worker-1",
	})

	t.Run("unknown assignment", func(t *testing.T) {
		_, err := service.SubmitAnswer(ctx, task.ID, "worker-1", "no-such-assignment", "cat")
		assert.ErrorIs(t, err, ErrAssignmentNotFound)
	})

	t.Run("wrong worker", func(t *testing.T) {
		_, err := service.SubmitAnswer(ctx, task.ID, "intruder", assignment.ID, "cat")
		assert.ErrorIs(t, err, ErrAssignmentNotOwned)
	})

	t.Run("wrong task", func(t *testing.T) {
		otherTask := data.CreateTaskFixture(t, ctx, dbt, &data.Task{})
		_, err := service.SubmitAnswer(ctx, otherTask.ID, "worker-1", assignment.ID, "cat")
		assert.ErrorIs(t, err, ErrAssignmentTaskMismatch)
	})

	t.Run("expired assignment", func(t *testing.T) {
		lapsedTask := data.CreateTaskFixture(t, ctx, dbt, &data.Task{
			Status:     data.AssignedTaskStatus,
			AssignedTo: utils.StringPtr("worker-2"),
		})
		lapsed := data.CreateAssignmentFixture(t, ctx, dbt, &data.Assignment{
			TaskID:    lapsedTask.ID,
			WorkerID:  "worker-2",
			ExpiresAt: time.Now().Add(-time.Second),
		})
		_, err := service.SubmitAnswer(ctx, lapsedTask.ID, "worker-2", lapsed.ID, "cat")
		assert.ErrorIs(t, err, ErrAssignmentExpired)
	})

	t.Run("already submitted", func(t *testing.T) {
		require.NoError(t, models.Assignments.UpdateStatus(ctx, dbt, assignment.ID, data.SubmittedAssignmentStatus))
		_, err := service.SubmitAnswer(ctx, task.ID, "worker-1", assignment.ID, "cat")
		assert.ErrorIs(t, err, ErrAssignmentNotActive)
	})

	mockProducer.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}
