package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/storage"
)

func Test_quotaGuard_Validate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limit := 10
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	past := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		stored    *model.APIKey
		lookupErr error
		wantErr   func(error) bool
	}{
		{"valid unlimited", &model.APIKey{Active: true, NeverExpires: true, CurrentUsage: 9999}, nil, nil},
		{"valid below limit", &model.APIKey{Active: true, EndDate: &end, MonthlyLimit: &limit, CurrentUsage: 9}, nil, nil},
		{"unknown key", nil, appErr.ErrNotFound, appErr.IsUnauthorized},
		{"inactive", &model.APIKey{Active: false, NeverExpires: true}, nil, appErr.IsUnauthorized},
		{"expired", &model.APIKey{Active: true, EndDate: &past}, nil, appErr.IsUnauthorized},
		{"exhausted", &model.APIKey{Active: true, NeverExpires: true, MonthlyLimit: &limit, CurrentUsage: 10}, nil, appErr.IsUnauthorized},
		{"store failure", nil, errors.New("conn reset"), appErr.IsInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMockCredentialStorage(t)
			store.On("FindByKey", mock.Anything, "secret").Return(tt.stored, tt.lookupErr)

			g := NewQuotaGuard(store, slog.Default()).(*quotaGuard)
			g.now = func() time.Time { return now }

			got, err := g.Validate(context.Background(), "secret")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				assert.Equal(t, tt.stored, got)
				return
			}
			assert.Nil(t, got)
			assert.True(t, tt.wantErr(err), "unexpected error class: %v", err)
		})
	}
}

func Test_quotaGuard_EmptyKeySkipsLookup(t *testing.T) {
	store := storage.NewMockCredentialStorage(t)
	_, err := NewQuotaGuard(store, slog.Default()).Validate(context.Background(), "  ")
	assert.True(t, appErr.IsUnauthorized(err))
}

func Test_quotaGuard_IdentifyAllowsExhaustedKey(t *testing.T) {
	limit := 1
	key := &model.APIKey{Active: true, NeverExpires: true, MonthlyLimit: &limit, CurrentUsage: 1}
	store := storage.NewMockCredentialStorage(t)
	store.On("FindByKey", mock.Anything, "secret").Return(key, nil)

	got, err := NewQuotaGuard(store, slog.Default()).Identify(context.Background(), "secret")
	assert.NoError(t, err)
	assert.Equal(t, key, got)
}
