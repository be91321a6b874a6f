package eventhandlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/events/schemas"
)

func Test_WorkerStatsEventHandler_Handle(t *testing.T) {
	ctx := context.Background()

	message := func(oldStatus, newStatus string) *events.Message {
		return &events.Message{
			Topic: events.SubmissionStatusTopic,
			Key:   "submission-1",
			Type:  events.SubmissionStatusChangedType,
			Data: schemas.EventSubmissionStatusChangedData{
				SubmissionID: "submission-1",
				TaskID:       "task-1",
				WorkerID:     "worker-1",
				OldStatus:    oldStatus,
				NewStatus:    newStatus,
			},
		}
	}

	t.Run("approval counts as approved", func(t *testing.T) {
		mockService := &MockOutcomeRecorder{}
		mockService.On("RecordOutcome", ctx, "worker-1", "task-1", true).Return(nil).Once()

		handler := NewWorkerStatsEventHandler(mockService)
		require.NoError(t, handler.Handle(ctx, message("Pending", "Approved")))
		mockService.AssertExpectations(t)
	})

	t.Run("rejection counts against accuracy", func(t *testing.T) {
		mockService := &MockOutcomeRecorder{}
		mockService.On("RecordOutcome", ctx, "worker-1", "task-1", false).Return(nil).Once()

		handler := NewWorkerStatsEventHandler(mockService)
		require.NoError(t, handler.Handle(ctx, message("PendingConsensus", "Rejected")))
		mockService.AssertExpectations(t)
	})

	t.Run("intermediate transitions are ignored", func(t *testing.T) {
		mockService := &MockOutcomeRecorder{}
		handler := NewWorkerStatsEventHandler(mockService)

		require.NoError(t, handler.Handle(ctx, message("Pending", "PendingConsensus")))
		require.NoError(t, handler.Handle(ctx, message("Rejected", "Disputed")))
		mockService.AssertNotCalled(t, "RecordOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("dispute reversals do not double-count", func(t *testing.T) {
		mockService := &MockOutcomeRecorder{}
		handler := NewWorkerStatsEventHandler(mockService)

		require.NoError(t, handler.Handle(ctx, message("Disputed", "Approved")))
		mockService.AssertNotCalled(t, "RecordOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
