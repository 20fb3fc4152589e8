package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"brandstory-server/internal/model"
)

// MockStoryRepository is a mock type for the StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

// CreateStory provides a mock function with given fields: ctx, title, body, transcript
func (_m *MockStoryRepository) CreateStory(ctx context.Context, title string, body string, transcript string) (string, error) {
	ret := _m.Called(ctx, title, body, transcript)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string) string); ok {
		r0 = rf(ctx, title, body, transcript)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(string)
		}
	}

	return r0, ret.Error(1)
}

// UpdateStory provides a mock function with given fields: ctx, id, title, body, transcript
func (_m *MockStoryRepository) UpdateStory(ctx context.Context, id string, title string, body string, transcript string) (bool, error) {
	ret := _m.Called(ctx, id, title, body, transcript)

	var r0 bool
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string, string) bool); ok {
		r0 = rf(ctx, id, title, body, transcript)
	} else {
		r0 = ret.Get(0).(bool)
	}

	return r0, ret.Error(1)
}

// GetStory provides a mock function with given fields: ctx, id
func (_m *MockStoryRepository) GetStory(ctx context.Context, id string) (*model.Story, error) {
	ret := _m.Called(ctx, id)

	var r0 *model.Story
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Story); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Story)
		}
	}

	return r0, ret.Error(1)
}

// ListStories provides a mock function with given fields: ctx
func (_m *MockStoryRepository) ListStories(ctx context.Context) ([]model.Story, error) {
	ret := _m.Called(ctx)

	var r0 []model.Story
	if rf, ok := ret.Get(0).(func(context.Context) []model.Story); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Story)
		}
	}

	return r0, ret.Error(1)
}

// NewMockStoryRepository creates a new instance of MockStoryRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Cleanup(func())
	Helper()
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Helper()
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
