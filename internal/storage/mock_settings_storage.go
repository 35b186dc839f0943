package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/samims/notifyhub/internal/model"
)

// MockSettingsStorage is a testify mock of SettingsStorage.
type MockSettingsStorage struct {
	mock.Mock
}

// Get provides a mock function with given fields: ctx, key
func (_m *MockSettingsStorage) Get(ctx context.Context, key string) (*model.SystemSettings, error) {
	ret := _m.Called(ctx, key)

	if len(ret) == 0 {
		panic("no return value specified for Get")
	}

	var r0 *model.SystemSettings
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.SystemSettings, error)); ok {
		return rf(ctx, key)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.SystemSettings); ok {
		r0 = rf(ctx, key)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.SystemSettings)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, key)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// CreateIfAbsent provides a mock function with given fields: ctx, s
func (_m *MockSettingsStorage) CreateIfAbsent(ctx context.Context, s *model.SystemSettings) error {
	ret := _m.Called(ctx, s)

	if len(ret) == 0 {
		panic("no return value specified for CreateIfAbsent")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.SystemSettings) error); ok {
		r0 = rf(ctx, s)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Update provides a mock function with given fields: ctx, s
func (_m *MockSettingsStorage) Update(ctx context.Context, s *model.SystemSettings) error {
	ret := _m.Called(ctx, s)

	if len(ret) == 0 {
		panic("no return value specified for Update")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.SystemSettings) error); ok {
		r0 = rf(ctx, s)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockSettingsStorage creates a new instance of MockSettingsStorage. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockSettingsStorage(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSettingsStorage {
	mock := &MockSettingsStorage{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
