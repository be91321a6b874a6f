package events

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) WriteMessages(ctx context.Context, messages ...Message) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ Producer = new(MockProducer)

type MockConsumer struct {
	mock.Mock
}

func (m *MockConsumer) ReadMessage(ctx context.Context) (*Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Message), args.Error(1)
}

func (m *MockConsumer) Topic() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConsumer) Handlers() []EventHandler {
	args := m.Called()
	return args.Get(0).([]EventHandler)
}

func (m *MockConsumer) RegisterEventHandler(ctx context.Context, handlers ...EventHandler) error {
	args := m.Called(ctx, handlers)
	return args.Error(0)
}

func (m *MockConsumer) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ Consumer = new(MockConsumer)

type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockEventHandler) CanHandleMessage(ctx context.Context, message *Message) bool {
	args := m.Called(ctx, message)
	return args.Bool(0)
}

func (m *MockEventHandler) Handle(ctx context.Context, message *Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

var _ EventHandler = new(MockEventHandler)
