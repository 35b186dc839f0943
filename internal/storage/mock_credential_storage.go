package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/samims/notifyhub/internal/model"
)

// MockCredentialStorage is a testify mock of CredentialStorage.
type MockCredentialStorage struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, key
func (_m *MockCredentialStorage) Create(ctx context.Context, key *model.APIKey) error {
	ret := _m.Called(ctx, key)

	if len(ret) == 0 {
		panic("no return value specified for Create")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.APIKey) error); ok {
		r0 = rf(ctx, key)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// FindByKey provides a mock function with given fields: ctx, apiKey
func (_m *MockCredentialStorage) FindByKey(ctx context.Context, apiKey string) (*model.APIKey, error) {
	ret := _m.Called(ctx, apiKey)

	if len(ret) == 0 {
		panic("no return value specified for FindByKey")
	}

	var r0 *model.APIKey
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.APIKey, error)); ok {
		return rf(ctx, apiKey)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.APIKey); ok {
		r0 = rf(ctx, apiKey)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.APIKey)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, apiKey)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// FindByID provides a mock function with given fields: ctx, id
func (_m *MockCredentialStorage) FindByID(ctx context.Context, id uuid.UUID) (*model.APIKey, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for FindByID")
	}

	var r0 *model.APIKey
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) (*model.APIKey, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *model.APIKey); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.APIKey)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SystemNameTaken provides a mock function with given fields: ctx, systemName, excludeID
func (_m *MockCredentialStorage) SystemNameTaken(ctx context.Context, systemName string, excludeID uuid.UUID) (bool, error) {
	ret := _m.Called(ctx, systemName, excludeID)

	if len(ret) == 0 {
		panic("no return value specified for SystemNameTaken")
	}

	var r0 bool
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, uuid.UUID) (bool, error)); ok {
		return rf(ctx, systemName, excludeID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, uuid.UUID) bool); ok {
		r0 = rf(ctx, systemName, excludeID)
	} else {
		r0 = ret.Get(0).(bool)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, uuid.UUID) error); ok {
		r1 = rf(ctx, systemName, excludeID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// List provides a mock function with given fields: ctx, page
func (_m *MockCredentialStorage) List(ctx context.Context, page model.Page) ([]model.APIKey, int, error) {
	ret := _m.Called(ctx, page)

	if len(ret) == 0 {
		panic("no return value specified for List")
	}

	var r0 []model.APIKey
	var r1 int
	var r2 error
	if rf, ok := ret.Get(0).(func(context.Context, model.Page) ([]model.APIKey, int, error)); ok {
		return rf(ctx, page)
	}
	if rf, ok := ret.Get(0).(func(context.Context, model.Page) []model.APIKey); ok {
		r0 = rf(ctx, page)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.APIKey)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, model.Page) int); ok {
		r1 = rf(ctx, page)
	} else {
		r1 = ret.Get(1).(int)
	}

	if rf, ok := ret.Get(2).(func(context.Context, model.Page) error); ok {
		r2 = rf(ctx, page)
	} else {
		r2 = ret.Error(2)
	}

	return r0, r1, r2
}

// Update provides a mock function with given fields: ctx, key
func (_m *MockCredentialStorage) Update(ctx context.Context, key *model.APIKey) error {
	ret := _m.Called(ctx, key)

	if len(ret) == 0 {
		panic("no return value specified for Update")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.APIKey) error); ok {
		r0 = rf(ctx, key)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// SoftDelete provides a mock function with given fields: ctx, id
func (_m *MockCredentialStorage) SoftDelete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for SoftDelete")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) error); ok {
		r0 = rf(ctx, id)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// IncrementUsage provides a mock function with given fields: ctx, id, n
func (_m *MockCredentialStorage) IncrementUsage(ctx context.Context, id uuid.UUID, n int) error {
	ret := _m.Called(ctx, id, n)

	if len(ret) == 0 {
		panic("no return value specified for IncrementUsage")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, int) error); ok {
		r0 = rf(ctx, id, n)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// FindDueForReset provides a mock function with given fields: ctx, now
func (_m *MockCredentialStorage) FindDueForReset(ctx context.Context, now time.Time) ([]model.APIKey, error) {
	ret := _m.Called(ctx, now)

	if len(ret) == 0 {
		panic("no return value specified for FindDueForReset")
	}

	var r0 []model.APIKey
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) ([]model.APIKey, error)); ok {
		return rf(ctx, now)
	}
	if rf, ok := ret.Get(0).(func(context.Context, time.Time) []model.APIKey); ok {
		r0 = rf(ctx, now)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.APIKey)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, time.Time) error); ok {
		r1 = rf(ctx, now)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ResetUsage provides a mock function with given fields: ctx, id, prev, next
func (_m *MockCredentialStorage) ResetUsage(ctx context.Context, id uuid.UUID, prev time.Time, next time.Time) (bool, error) {
	ret := _m.Called(ctx, id, prev, next)

	if len(ret) == 0 {
		panic("no return value specified for ResetUsage")
	}

	var r0 bool
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, time.Time, time.Time) (bool, error)); ok {
		return rf(ctx, id, prev, next)
	}
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, time.Time, time.Time) bool); ok {
		r0 = rf(ctx, id, prev, next)
	} else {
		r0 = ret.Get(0).(bool)
	}

	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID, time.Time, time.Time) error); ok {
		r1 = rf(ctx, id, prev, next)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockCredentialStorage creates a new instance of MockCredentialStorage. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockCredentialStorage(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCredentialStorage {
	mock := &MockCredentialStorage{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
