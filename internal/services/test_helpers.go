package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a mock for the EventPublisher interface
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Broadcast(ctx context.Context, messageType string, data interface{}) {
	m.Called(ctx, messageType, data)
}
