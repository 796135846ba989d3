package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyteller-server/internal/messaging"
)

// MockTurnEventPublisher is a mock type for the TurnEventPublisher type
type MockTurnEventPublisher struct {
	mock.Mock
}

// PublishTurnEvent provides a mock function with given fields: ctx, payload
func (_m *MockTurnEventPublisher) PublishTurnEvent(ctx context.Context, payload messaging.TurnEventPayload) error {
	ret := _m.Called(ctx, payload)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, messaging.TurnEventPayload) error); ok {
		r0 = rf(ctx, payload)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockTurnEventPublisher creates a new instance of MockTurnEventPublisher. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTurnEventPublisher(t interface {
	mock.TestingT
	Helper()
}) *MockTurnEventPublisher {
	m := &MockTurnEventPublisher{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ messaging.TurnEventPublisher = (*MockTurnEventPublisher)(nil)
