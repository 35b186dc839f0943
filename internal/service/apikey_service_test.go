package service

import (
	"context"
	"encoding/base64"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/storage"
)

func boolPtr(b bool) *bool { return &b }

func newTestAPIKeyService(store storage.CredentialStorage, now time.Time) *apiKeyService {
	svc := NewAPIKeyService(store, slog.Default()).(*apiKeyService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestGenerateAPIKey(t *testing.T) {
	k1, err := GenerateAPIKey()
	require.NoError(t, err)
	k2, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.Len(t, k1, 43, "32 bytes of unpadded base64")
	raw, err := base64.RawURLEncoding.DecodeString(k1)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func Test_apiKeyService_Create(t *testing.T) {
	now := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	end := model.NewDate(2024, time.December, 31)
	start := model.NewDate(2024, time.January, 1)

	tests := []struct {
		name    string
		req     model.CreateAPIKeyRequest
		setup   func(s *storage.MockCredentialStorage)
		wantErr func(error) bool
	}{
		{
			name: "success",
			req:  model.CreateAPIKeyRequest{SystemName: " billing ", StartDate: &start, EndDate: &end},
			setup: func(s *storage.MockCredentialStorage) {
				s.On("SystemNameTaken", mock.Anything, "billing", uuid.Nil).Return(false, nil)
				s.On("Create", mock.Anything, mock.AnythingOfType("*model.APIKey")).Return(nil)
			},
		},
		{
			name:    "missing system name",
			req:     model.CreateAPIKeyRequest{NeverExpires: boolPtr(true)},
			wantErr: appErr.IsValidation,
		},
		{
			name:    "end date required unless never expires",
			req:     model.CreateAPIKeyRequest{SystemName: "billing"},
			wantErr: appErr.IsValidation,
		},
		{
			name:    "end before start",
			req:     model.CreateAPIKeyRequest{SystemName: "billing", StartDate: &end, EndDate: &start},
			wantErr: appErr.IsValidation,
		},
		{
			name: "duplicate system name",
			req:  model.CreateAPIKeyRequest{SystemName: "billing", NeverExpires: boolPtr(true)},
			setup: func(s *storage.MockCredentialStorage) {
				s.On("SystemNameTaken", mock.Anything, "billing", uuid.Nil).Return(true, nil)
			},
			wantErr: appErr.IsConflict,
		},
		{
			name: "unique index race",
			req:  model.CreateAPIKeyRequest{SystemName: "billing", NeverExpires: boolPtr(true)},
			setup: func(s *storage.MockCredentialStorage) {
				s.On("SystemNameTaken", mock.Anything, "billing", uuid.Nil).Return(false, nil)
				s.On("Create", mock.Anything, mock.Anything).Return(appErr.ErrConflict)
			},
			wantErr: appErr.IsConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMockCredentialStorage(t)
			if tt.setup != nil {
				tt.setup(store)
			}
			svc := newTestAPIKeyService(store, now)

			key, err := svc.Create(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "billing", key.SystemName)
			assert.True(t, key.Active)
			assert.Zero(t, key.CurrentUsage)
			assert.Len(t, key.Key, 43)
			assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), key.UsageResetAt)
		})
	}
}

func Test_apiKeyService_Update(t *testing.T) {
	now := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	id := uuid.New()

	t.Run("turning off never expires requires end date", func(t *testing.T) {
		store := storage.NewMockCredentialStorage(t)
		store.On("FindByID", mock.Anything, id).
			Return(&model.APIKey{ID: id, SystemName: "billing", NeverExpires: true}, nil)

		_, err := newTestAPIKeyService(store, now).Update(context.Background(), id,
			model.UpdateAPIKeyRequest{NeverExpires: boolPtr(false)})
		assert.True(t, appErr.IsValidation(err))
	})

	t.Run("rename checks uniqueness", func(t *testing.T) {
		store := storage.NewMockCredentialStorage(t)
		store.On("FindByID", mock.Anything, id).
			Return(&model.APIKey{ID: id, SystemName: "billing", NeverExpires: true}, nil)
		store.On("SystemNameTaken", mock.Anything, "payments", id).Return(true, nil)

		name := "payments"
		_, err := newTestAPIKeyService(store, now).Update(context.Background(), id,
			model.UpdateAPIKeyRequest{SystemName: &name})
		assert.True(t, appErr.IsConflict(err))
	})

	t.Run("deactivate", func(t *testing.T) {
		store := storage.NewMockCredentialStorage(t)
		store.On("FindByID", mock.Anything, id).
			Return(&model.APIKey{ID: id, SystemName: "billing", NeverExpires: true, Active: true}, nil)
		store.On("Update", mock.Anything, mock.MatchedBy(func(k *model.APIKey) bool { return !k.Active })).Return(nil)

		key, err := newTestAPIKeyService(store, now).Update(context.Background(), id,
			model.UpdateAPIKeyRequest{Active: boolPtr(false)})
		require.NoError(t, err)
		assert.False(t, key.Active)
		assert.Equal(t, now, key.UpdatedAt)
	})

	t.Run("missing key", func(t *testing.T) {
		store := storage.NewMockCredentialStorage(t)
		store.On("FindByID", mock.Anything, id).Return(nil, appErr.ErrNotFound)

		_, err := newTestAPIKeyService(store, now).Update(context.Background(), id, model.UpdateAPIKeyRequest{})
		assert.True(t, appErr.IsNotFound(err))
	})
}

func Test_apiKeyService_ResetDueUsage(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 5, 0, time.UTC)
	due := model.APIKey{ID: uuid.New(), SystemName: "due", CurrentUsage: 40,
		UsageResetAt: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)}
	missed := model.APIKey{ID: uuid.New(), SystemName: "missed", CurrentUsage: 7,
		UsageResetAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}
	raced := model.APIKey{ID: uuid.New(), SystemName: "raced", CurrentUsage: 3,
		UsageResetAt: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)}

	store := storage.NewMockCredentialStorage(t)
	store.On("FindDueForReset", mock.Anything, now).Return([]model.APIKey{due, missed, raced}, nil)
	store.On("ResetUsage", mock.Anything, due.ID, due.UsageResetAt,
		time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)).Return(true, nil)
	store.On("ResetUsage", mock.Anything, missed.ID, missed.UsageResetAt,
		time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)).Return(true, nil)
	store.On("ResetUsage", mock.Anything, raced.ID, raced.UsageResetAt, mock.Anything).Return(false, nil)

	n, err := newTestAPIKeyService(store, now).ResetDueUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func Test_apiKeyService_ResetDueUsage_SkipsNotYetDue(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 5, 0, time.UTC)
	future := model.APIKey{ID: uuid.New(), UsageResetAt: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)}

	store := storage.NewMockCredentialStorage(t)
	store.On("FindDueForReset", mock.Anything, now).Return([]model.APIKey{future}, nil)

	n, err := newTestAPIKeyService(store, now).ResetDueUsage(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func Test_apiKeyService_UsageStats(t *testing.T) {
	limit := 100
	svc := newTestAPIKeyService(storage.NewMockCredentialStorage(t), time.Now())
	st := svc.UsageStats(&model.APIKey{NeverExpires: true, MonthlyLimit: &limit, CurrentUsage: 120})
	assert.Zero(t, st.RemainingQuota)
	assert.InDelta(t, 120.0, st.UsagePercentage, 0.001)
}
