package jobs

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockJob struct {
	mock.Mock
}

func (m *MockJob) Execute(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockJob) GetInterval() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockJob) GetName() string {
	args := m.Called()
	return args.String(0)
}

var _ Job = new(MockJob)
