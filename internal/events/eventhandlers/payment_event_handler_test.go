package eventhandlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/events/schemas"
)

func statusChangedMessage(oldStatus, newStatus string, payoutPercent int) *events.Message {
	return &events.Message{
		Topic: events.SubmissionStatusTopic,
		Key:   "submission-1",
		Type:  events.SubmissionStatusChangedType,
		Data: schemas.EventSubmissionStatusChangedData{
			SubmissionID:  "submission-1",
			TaskID:        "task-1",
			WorkerID:      "worker-1",
			OldStatus:     oldStatus,
			NewStatus:     newStatus,
			PayoutPercent: payoutPercent,
		},
	}
}

func Test_PaymentEventHandler_CanHandleMessage(t *testing.T) {
	ctx := context.Background()
	handler := NewPaymentEventHandler(&MockSubmissionSettler{})

	assert.True(t, handler.CanHandleMessage(ctx, statusChangedMessage("Pending", "Approved", 100)))
	assert.False(t, handler.CanHandleMessage(ctx, &events.Message{
		Topic: events.SubmissionReceivedTopic,
		Type:  events.SubmissionReceivedType,
	}))
}

func Test_PaymentEventHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("settles on the Approved edge", func(t *testing.T) {
		mockService := &MockSubmissionSettler{}
		mockService.On("SettleSubmission", ctx, "submission-1", 100).Return(nil).Once()

		handler := NewPaymentEventHandler(mockService)
		require.NoError(t, handler.Handle(ctx, statusChangedMessage("Pending", "Approved", 100)))
		mockService.AssertExpectations(t)
	})

	t.Run("carries the dispute payout percent", func(t *testing.T) {
		mockService := &MockSubmissionSettler{}
		mockService.On("SettleSubmission", ctx, "submission-1", 50).Return(nil).Once()

		handler := NewPaymentEventHandler(mockService)
		require.NoError(t, handler.Handle(ctx, statusChangedMessage("Disputed", "Approved", 50)))
		mockService.AssertExpectations(t)
	})

	t.Run("skips non-Approved transitions", func(t *testing.T) {
		mockService := &MockSubmissionSettler{}
		handler := NewPaymentEventHandler(mockService)

		require.NoError(t, handler.Handle(ctx, statusChangedMessage("Pending", "Rejected", 100)))
		require.NoError(t, handler.Handle(ctx, statusChangedMessage("Pending", "PendingConsensus", 100)))
		mockService.AssertNotCalled(t, "SettleSubmission", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("skips Approved-to-Approved replays", func(t *testing.T) {
		mockService := &MockSubmissionSettler{}
		handler := NewPaymentEventHandler(mockService)

		require.NoError(t, handler.Handle(ctx, statusChangedMessage("Approved", "Approved", 100)))
		mockService.AssertNotCalled(t, "SettleSubmission", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("surfaces settlement errors for redelivery", func(t *testing.T) {
		mockService := &MockSubmissionSettler{}
		mockService.On("SettleSubmission", ctx, "submission-1", 100).Return(errors.New("db down")).Once()

		handler := NewPaymentEventHandler(mockService)
		err := handler.Handle(ctx, statusChangedMessage("Pending", "Approved", 100))
		assert.ErrorContains(t, err, "settling submission submission-1")
		mockService.AssertExpectations(t)
	})
}
