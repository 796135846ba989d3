package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyteller-server/internal/clients"
)

// MockTTSClient is a mock type for the TTSClient type
type MockTTSClient struct {
	mock.Mock
}

// Synthesize provides a mock function with given fields: ctx, text
func (_m *MockTTSClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ret := _m.Called(ctx, text)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, string) []byte); ok {
		r0 = rf(ctx, text)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]byte)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, text)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// VoiceID provides a mock function with no fields
func (_m *MockTTSClient) VoiceID() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	return r0
}

// NewMockTTSClient creates a new instance of MockTTSClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockTTSClient(t interface {
	mock.TestingT
	Helper()
}) *MockTTSClient {
	m := &MockTTSClient{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ clients.TTSClient = (*MockTTSClient)(nil)
