package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyteller-server/internal/models"
	"storyteller-server/internal/repository"
)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// CreateStory provides a mock function with given fields: ctx, story
func (_m *MockStoryRepository) CreateStory(ctx context.Context, story *models.Story) (int64, error) {
	ret := _m.Called(ctx, story)

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, *models.Story) int64); ok {
		r0 = rf(ctx, story)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(int64)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, *models.Story) error); ok {
		r1 = rf(ctx, story)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetStory provides a mock function with given fields: ctx, storyID
func (_m *MockStoryRepository) GetStory(ctx context.Context, storyID int64) (*models.Story, error) {
	ret := _m.Called(ctx, storyID)

	var r0 *models.Story
	if rf, ok := ret.Get(0).(func(context.Context, int64) *models.Story); ok {
		r0 = rf(ctx, storyID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.Story)
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

// CreateSegment provides a mock function with given fields: ctx, segment
func (_m *MockStoryRepository) CreateSegment(ctx context.Context, segment *models.StorySegment) (int64, error) {
	ret := _m.Called(ctx, segment)

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context, *models.StorySegment) int64); ok {
		r0 = rf(ctx, segment)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(int64)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, *models.StorySegment) error); ok {
		r1 = rf(ctx, segment)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetSegment provides a mock function with given fields: ctx, segmentID
func (_m *MockStoryRepository) GetSegment(ctx context.Context, segmentID int64) (*models.StorySegment, error) {
	ret := _m.Called(ctx, segmentID)

	var r0 *models.StorySegment
	if rf, ok := ret.Get(0).(func(context.Context, int64) *models.StorySegment); ok {
		r0 = rf(ctx, segmentID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.StorySegment)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, int64) error); ok {
		r1 = rf(ctx, segmentID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// UpdateSegmentChoice provides a mock function with given fields: ctx, storyID, segmentOrder, choice
func (_m *MockStoryRepository) UpdateSegmentChoice(ctx context.Context, storyID int64, segmentOrder int, choice string) error {
	ret := _m.Called(ctx, storyID, segmentOrder, choice)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, int64, int, string) error); ok {
		r0 = rf(ctx, storyID, segmentOrder, choice)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// MarkStoryCompleted provides a mock function with given fields: ctx, storyID
func (_m *MockStoryRepository) MarkStoryCompleted(ctx context.Context, storyID int64) error {
	ret := _m.Called(ctx, storyID)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, int64) error); ok {
		r0 = rf(ctx, storyID)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetStoryHistory provides a mock function with given fields: ctx, storyID
func (_m *MockStoryRepository) GetStoryHistory(ctx context.Context, storyID int64) (*models.Story, []*models.StorySegment, error) {
	ret := _m.Called(ctx, storyID)

	var r0 *models.Story
	if rf, ok := ret.Get(0).(func(context.Context, int64) *models.Story); ok {
		r0 = rf(ctx, storyID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*models.Story)
		}
	}

	var r1 []*models.StorySegment
	if rf, ok := ret.Get(1).(func(context.Context, int64) []*models.StorySegment); ok {
		r1 = rf(ctx, storyID)
	} else {
		if ret.Get(1) != nil {
			r1 = ret.Get(1).([]*models.StorySegment)
		}
	}

	var r2 error
	if rf, ok := ret.Get(2).(func(context.Context, int64) error); ok {
		r2 = rf(ctx, storyID)
	} else {
		r2 = ret.Error(2)
	}

	return r0, r1, r2
}

// NewMockStoryRepository creates a new instance of MockStoryRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Helper()
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)
