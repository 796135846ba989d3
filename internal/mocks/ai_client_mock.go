package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyteller-server/internal/clients"
)

// MockAIClient is a mock type for the AIClient type
type MockAIClient struct {
	mock.Mock
}

// GenerateText provides a mock function with given fields: ctx, kind, prompt, params
func (_m *MockAIClient) GenerateText(ctx context.Context, kind string, prompt string, params clients.GenerationParams) (string, clients.UsageInfo, error) {
	ret := _m.Called(ctx, kind, prompt, params)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string, clients.GenerationParams) string); ok {
		r0 = rf(ctx, kind, prompt, params)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	var r1 clients.UsageInfo
	if rf, ok := ret.Get(1).(func(context.Context, string, string, clients.GenerationParams) clients.UsageInfo); ok {
		r1 = rf(ctx, kind, prompt, params)
	} else {
		if ret.Get(1) != nil {
			r1 = ret.Get(1).(clients.UsageInfo)
		}
	}

	var r2 error
	if rf, ok := ret.Get(2).(func(context.Context, string, string, clients.GenerationParams) error); ok {
		r2 = rf(ctx, kind, prompt, params)
	} else {
		r2 = ret.Error(2)
	}

	return r0, r1, r2
}

// NewMockAIClient creates a new instance of MockAIClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockAIClient(t interface {
	mock.TestingT
	Helper()
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ clients.AIClient = (*MockAIClient)(nil)
