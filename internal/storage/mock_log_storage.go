package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/samims/notifyhub/internal/model"
)

// MockLogStorage is a testify mock of LogStorage.
type MockLogStorage struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, l
func (_m *MockLogStorage) Create(ctx context.Context, l *model.NotificationLog) error {
	ret := _m.Called(ctx, l)

	if len(ret) == 0 {
		panic("no return value specified for Create")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.NotificationLog) error); ok {
		r0 = rf(ctx, l)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// FindByID provides a mock function with given fields: ctx, id
func (_m *MockLogStorage) FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationLog, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for FindByID")
	}

	var r0 *model.NotificationLog
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) (*model.NotificationLog, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *model.NotificationLog); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.NotificationLog)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListByAPIKey provides a mock function with given fields: ctx, apiKeyID, page
func (_m *MockLogStorage) ListByAPIKey(ctx context.Context, apiKeyID uuid.UUID, page model.Page) ([]model.NotificationLog, int, error) {
	ret := _m.Called(ctx, apiKeyID, page)

	if len(ret) == 0 {
		panic("no return value specified for ListByAPIKey")
	}

	var r0 []model.NotificationLog
	var r1 int
	var r2 error
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, model.Page) ([]model.NotificationLog, int, error)); ok {
		return rf(ctx, apiKeyID, page)
	}
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, model.Page) []model.NotificationLog); ok {
		r0 = rf(ctx, apiKeyID, page)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.NotificationLog)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID, model.Page) int); ok {
		r1 = rf(ctx, apiKeyID, page)
	} else {
		r1 = ret.Get(1).(int)
	}

	if rf, ok := ret.Get(2).(func(context.Context, uuid.UUID, model.Page) error); ok {
		r2 = rf(ctx, apiKeyID, page)
	} else {
		r2 = ret.Error(2)
	}

	return r0, r1, r2
}

// ListByBatch provides a mock function with given fields: ctx, apiKeyID, batchID, page
func (_m *MockLogStorage) ListByBatch(ctx context.Context, apiKeyID uuid.UUID, batchID uuid.UUID, page model.Page) ([]model.NotificationLog, int, error) {
	ret := _m.Called(ctx, apiKeyID, batchID, page)

	if len(ret) == 0 {
		panic("no return value specified for ListByBatch")
	}

	var r0 []model.NotificationLog
	var r1 int
	var r2 error
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, uuid.UUID, model.Page) ([]model.NotificationLog, int, error)); ok {
		return rf(ctx, apiKeyID, batchID, page)
	}
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, uuid.UUID, model.Page) []model.NotificationLog); ok {
		r0 = rf(ctx, apiKeyID, batchID, page)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.NotificationLog)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID, uuid.UUID, model.Page) int); ok {
		r1 = rf(ctx, apiKeyID, batchID, page)
	} else {
		r1 = ret.Get(1).(int)
	}

	if rf, ok := ret.Get(2).(func(context.Context, uuid.UUID, uuid.UUID, model.Page) error); ok {
		r2 = rf(ctx, apiKeyID, batchID, page)
	} else {
		r2 = ret.Error(2)
	}

	return r0, r1, r2
}

// Update provides a mock function with given fields: ctx, l
func (_m *MockLogStorage) Update(ctx context.Context, l *model.NotificationLog) error {
	ret := _m.Called(ctx, l)

	if len(ret) == 0 {
		panic("no return value specified for Update")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.NotificationLog) error); ok {
		r0 = rf(ctx, l)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ForceFail provides a mock function with given fields: ctx, id, reason
func (_m *MockLogStorage) ForceFail(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	ret := _m.Called(ctx, id, reason)

	if len(ret) == 0 {
		panic("no return value specified for ForceFail")
	}

	var r0 bool
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, string) (bool, error)); ok {
		return rf(ctx, id, reason)
	}
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, string) bool); ok {
		r0 = rf(ctx, id, reason)
	} else {
		r0 = ret.Get(0).(bool)
	}

	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID, string) error); ok {
		r1 = rf(ctx, id, reason)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// FailIfPending provides a mock function with given fields: ctx, id, reason
func (_m *MockLogStorage) FailIfPending(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	ret := _m.Called(ctx, id, reason)

	if len(ret) == 0 {
		panic("no return value specified for FailIfPending")
	}

	var r0 bool
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, string) (bool, error)); ok {
		return rf(ctx, id, reason)
	}
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, string) bool); ok {
		r0 = rf(ctx, id, reason)
	} else {
		r0 = ret.Get(0).(bool)
	}

	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID, string) error); ok {
		r1 = rf(ctx, id, reason)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// FailStale provides a mock function with given fields: ctx, olderThan, reason
func (_m *MockLogStorage) FailStale(ctx context.Context, olderThan time.Time, reason string) (int64, error) {
	ret := _m.Called(ctx, olderThan, reason)

	if len(ret) == 0 {
		panic("no return value specified for FailStale")
	}

	var r0 int64
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, time.Time, string) (int64, error)); ok {
		return rf(ctx, olderThan, reason)
	}
	if rf, ok := ret.Get(0).(func(context.Context, time.Time, string) int64); ok {
		r0 = rf(ctx, olderThan, reason)
	} else {
		r0 = ret.Get(0).(int64)
	}

	if rf, ok := ret.Get(1).(func(context.Context, time.Time, string) error); ok {
		r1 = rf(ctx, olderThan, reason)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Ping provides a mock function with given fields: ctx
func (_m *MockLogStorage) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockLogStorage creates a new instance of MockLogStorage. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockLogStorage(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLogStorage {
	mock := &MockLogStorage{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
