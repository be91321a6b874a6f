package aiservices

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockLabelDetector struct {
	mock.Mock
}

func (m *MockLabelDetector) DetectLabels(ctx context.Context, mediaKey string) ([]Label, error) {
	args := m.Called(ctx, mediaKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Label), args.Error(1)
}

var _ LabelDetector = (*MockLabelDetector)(nil)

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) StartTranscriptionJob(ctx context.Context, mediaKey string) (string, error) {
	args := m.Called(ctx, mediaKey)
	return args.String(0), args.Error(1)
}

func (m *MockTranscriber) GetTranscriptionJob(ctx context.Context, jobName string) (*TranscriptionJob, error) {
	args := m.Called(ctx, jobName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TranscriptionJob), args.Error(1)
}

var _ Transcriber = (*MockTranscriber)(nil)

type MockModelInvoker struct {
	mock.Mock
}

func (m *MockModelInvoker) InvokeModel(ctx context.Context, payload []byte) ([]byte, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

var _ ModelInvoker = (*MockModelInvoker)(nil)
