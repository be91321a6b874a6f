package message

import (
	"github.com/stretchr/testify/mock"
)

type MessengerClientMock struct {
	mock.Mock
}

func (m *MessengerClientMock) SendMessage(message Message) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MessengerClientMock) MessengerType() MessengerType {
	args := m.Called()
	return args.Get(0).(MessengerType)
}

var _ MessengerClient = (*MessengerClientMock)(nil)
