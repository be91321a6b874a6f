package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/db/dbtest"
	"github.com/crowdtask/platform-backend/internal/aiservices"
	"github.com/crowdtask/platform-backend/internal/data"
)

func Test_TranscriptionService_SyncPendingTranscriptions(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()
	ctx := context.Background()

	models := newTestModels(t, dbt)

	completedTask := data.CreateTaskFixture(t, ctx, dbt, &data.Task{Type: data.AudioTranscriptionTaskType})
	require.NoError(t, models.Tasks.SetTranscriptionJob(ctx, dbt, completedTask.ID, "job-done", data.TranscriptionInProgress))

	failedTask := data.CreateTaskFixture(t, ctx, dbt, &data.Task{Type: data.AudioTranscriptionTaskType})
	require.NoError(t, models.Tasks.SetTranscriptionJob(ctx, dbt, failedTask.ID, "job-broken", data.TranscriptionInProgress))

	runningTask := data.CreateTaskFixture(t, ctx, dbt, &data.Task{Type: data.AudioTranscriptionTaskType})
	require.NoError(t, models.Tasks.SetTranscriptionJob(ctx, dbt, runningTask.ID, "job-running", data.TranscriptionInProgress))

	mockTranscriber := &aiservices.MockTranscriber{}
	mockTranscriber.On("GetTranscriptionJob", mock.Anything, "job-done").
		Return(&aiservices.TranscriptionJob{JobName: "job-done", Status: "COMPLETED", Transcript: "hello world"}, nil).Once()
	mockTranscriber.On("GetTranscriptionJob", mock.Anything, "job-broken").
		Return(&aiservices.TranscriptionJob{JobName: "job-broken", Status: "FAILED", FailureReason: "unsupported codec"}, nil).Once()
	mockTranscriber.On("GetTranscriptionJob", mock.Anything, "job-running").
		Return(&aiservices.TranscriptionJob{JobName: "job-running", Status: "IN_PROGRESS"}, nil).Once()

	service, err := NewTranscriptionService(models, mockTranscriber)
	require.NoError(t, err)

	completed, err := service.SyncPendingTranscriptions(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	done, err := models.Tasks.Get(ctx, dbt, completedTask.ID)
	require.NoError(t, err)
	require.NotNil(t, done.AITranscription)
	assert.Equal(t, "hello world", *done.AITranscription)

	failed, err := models.Tasks.Get(ctx, dbt, failedTask.ID)
	require.NoError(t, err)
	require.NotNil(t, failed.TranscriptionStatus)
	assert.Equal(t, data.TranscriptionFailed, *failed.TranscriptionStatus)

	// still-running jobs stay IN_PROGRESS for the next sweep
	running, err := models.Tasks.Get(ctx, dbt, runningTask.ID)
	require.NoError(t, err)
	require.NotNil(t, running.TranscriptionStatus)
	assert.Equal(t, data.TranscriptionInProgress, *running.TranscriptionStatus)

	mockTranscriber.AssertExpectations(t)
}
