package eventhandlers

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockQCProcessor struct {
	mock.Mock
}

func (m *MockQCProcessor) ProcessSubmission(ctx context.Context, submissionID string) error {
	args := m.Called(ctx, submissionID)
	return args.Error(0)
}

var _ QCProcessor = new(MockQCProcessor)

type MockSubmissionSettler struct {
	mock.Mock
}

func (m *MockSubmissionSettler) SettleSubmission(ctx context.Context, submissionID string, payoutPercent int) error {
	args := m.Called(ctx, submissionID, payoutPercent)
	return args.Error(0)
}

var _ SubmissionSettler = new(MockSubmissionSettler)

type MockOutcomeRecorder struct {
	mock.Mock
}

func (m *MockOutcomeRecorder) RecordOutcome(ctx context.Context, workerID, taskID string, approved bool) error {
	args := m.Called(ctx, workerID, taskID, approved)
	return args.Error(0)
}

var _ OutcomeRecorder = new(MockOutcomeRecorder)
