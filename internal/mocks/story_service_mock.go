package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyteller-server/internal/models"
	"storyteller-server/internal/service"
)

// MockStoryService is a mock type for the StoryService type
type MockStoryService struct {
	mock.Mock
}

// StartStory provides a mock function with given fields: ctx, params
func (_m *MockStoryService) StartStory(ctx context.Context, params service.StartStoryParams) (*models.StorySegmentResponse, error) {
	ret := _m.Called(ctx, params)

	var r0 *models.StorySegmentResponse
	if rf, ok := ret.Get(0).(func(context.Context, service.StartStoryParams) *models.StorySegmentResponse); ok {
		r0 = rf(ctx, params)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.StorySegmentResponse)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, service.StartStoryParams) error); ok {
		r1 = rf(ctx, params)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ContinueStory provides a mock function with given fields: ctx, params
func (_m *MockStoryService) ContinueStory(ctx context.Context, params service.ContinueStoryParams) (*models.StorySegmentResponse, error) {
	ret := _m.Called(ctx, params)

	var r0 *models.StorySegmentResponse
	if rf, ok := ret.Get(0).(func(context.Context, service.ContinueStoryParams) *models.StorySegmentResponse); ok {
		r0 = rf(ctx, params)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.StorySegmentResponse)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, service.ContinueStoryParams) error); ok {
		r1 = rf(ctx, params)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetAudio provides a mock function with given fields: ctx, key
func (_m *MockStoryService) GetAudio(ctx context.Context, key string) ([]byte, error) {
	ret := _m.Called(ctx, key)

	var r0 []byte
	if rf, ok := ret.Get(0).(func(context.Context, string) []byte); ok {
		r0 = rf(ctx, key)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]byte)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, key)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetStoryHistory provides a mock function with given fields: ctx, storyID
func (_m *MockStoryService) GetStoryHistory(ctx context.Context, storyID int64) (*service.StoryHistory, error) {
	ret := _m.Called(ctx, storyID)

	var r0 *service.StoryHistory
	if rf, ok := ret.Get(0).(func(context.Context, int64) *service.StoryHistory); ok {
		r0 = rf(ctx, storyID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*service.StoryHistory)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, int64) error); ok {
		r1 = rf(ctx, storyID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockStoryService creates a new instance of MockStoryService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStoryService(t interface {
	mock.TestingT
	Helper()
}) *MockStoryService {
	m := &MockStoryService{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.StoryService = (*MockStoryService)(nil)
