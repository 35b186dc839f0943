package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/samims/notifyhub/internal/model"
)

// CredentialStorage persists API keys. Lookups ignore soft-deleted rows.
type CredentialStorage interface {
	Create(ctx context.Context, key *model.APIKey) error
	FindByKey(ctx context.Context, apiKey string) (*model.APIKey, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.APIKey, error)
	SystemNameTaken(ctx context.Context, systemName string, excludeID uuid.UUID) (bool, error)
	List(ctx context.Context, page model.Page) ([]model.APIKey, int, error)
	Update(ctx context.Context, key *model.APIKey) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	IncrementUsage(ctx context.Context, id uuid.UUID, n int) error
	FindDueForReset(ctx context.Context, now time.Time) ([]model.APIKey, error)
	// ResetUsage zeroes the counter only if usage_reset_at still equals prev,
	// so two schedulers racing on the same key reset it once.
	ResetUsage(ctx context.Context, id uuid.UUID, prev, next time.Time) (bool, error)
}

// LogStorage persists notification logs. Update is guarded by the row version
// and returns appErr.ErrVersionConflict when the row changed underneath.
type LogStorage interface {
	Create(ctx context.Context, l *model.NotificationLog) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationLog, error)
	ListByAPIKey(ctx context.Context, apiKeyID uuid.UUID, page model.Page) ([]model.NotificationLog, int, error)
	ListByBatch(ctx context.Context, apiKeyID, batchID uuid.UUID, page model.Page) ([]model.NotificationLog, int, error)
	Update(ctx context.Context, l *model.NotificationLog) error
	ForceFail(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	FailIfPending(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	FailStale(ctx context.Context, olderThan time.Time, reason string) (int64, error)
	Ping(ctx context.Context) error
}

type SettingsStorage interface {
	Get(ctx context.Context, key string) (*model.SystemSettings, error)
	// CreateIfAbsent inserts s unless a row with the same key exists.
	CreateIfAbsent(ctx context.Context, s *model.SystemSettings) error
	Update(ctx context.Context, s *model.SystemSettings) error
}
