package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/model"
)

type logStorage struct {
	db *sqlx.DB
}

func NewLogStorage(db *sqlx.DB) LogStorage {
	return &logStorage{db: db}
}

// Create inserts a new log row; the caller sets ID, BatchID and Status.
func (s *logStorage) Create(ctx context.Context, l *model.NotificationLog) error {
	if l == nil {
		return fmt.Errorf("notification log cannot be nil")
	}
	query := `INSERT INTO notification_logs
		(id, batch_id, api_key_id, system_name, channel, type, status, recipient, subject, message,
		 retry_count, version, created_at, updated_at)
		VALUES (:id, :batch_id, :api_key_id, :system_name, :channel, :type, :status, :recipient, :subject,
		 :message, :retry_count, :version, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}

func (s *logStorage) FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationLog, error) {
	var l model.NotificationLog
	err := s.db.GetContext(ctx, &l, `SELECT * FROM notification_logs WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, fmt.Errorf("get notification log: %w", err)
	}
	return &l, nil
}

func (s *logStorage) ListByAPIKey(ctx context.Context, apiKeyID uuid.UUID, page model.Page) ([]model.NotificationLog, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT count(*) FROM notification_logs WHERE api_key_id = $1 AND NOT deleted`, apiKeyID); err != nil {
		return nil, 0, fmt.Errorf("count notification logs: %w", err)
	}

	var logs []model.NotificationLog
	query := `SELECT * FROM notification_logs WHERE api_key_id = $1 AND NOT deleted
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	if err := s.db.SelectContext(ctx, &logs, query, apiKeyID, page.Size, page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list notification logs: %w", err)
	}
	return logs, total, nil
}

func (s *logStorage) ListByBatch(ctx context.Context, apiKeyID, batchID uuid.UUID, page model.Page) ([]model.NotificationLog, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT count(*) FROM notification_logs WHERE api_key_id = $1 AND batch_id = $2 AND NOT deleted`,
		apiKeyID, batchID); err != nil {
		return nil, 0, fmt.Errorf("count batch logs: %w", err)
	}

	var logs []model.NotificationLog
	query := `SELECT * FROM notification_logs WHERE api_key_id = $1 AND batch_id = $2 AND NOT deleted
		ORDER BY created_at ASC, id LIMIT $3 OFFSET $4`
	if err := s.db.SelectContext(ctx, &logs, query, apiKeyID, batchID, page.Size, page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list batch logs: %w", err)
	}
	return logs, total, nil
}

// Update writes the mutable delivery fields when the stored version still
// matches l.Version, then bumps l.Version.
func (s *logStorage) Update(ctx context.Context, l *model.NotificationLog) error {
	now := time.Now().UTC()
	query := `UPDATE notification_logs
		SET status = $3, response = $4, error_message = $5, sent_at = $6, retry_count = $7,
			version = version + 1, updated_at = $8
		WHERE id = $1 AND version = $2`

	res, err := s.db.ExecContext(ctx, query, l.ID, l.Version, l.Status, l.Response, l.ErrorMessage,
		l.SentAt, l.RetryCount, now)
	if err != nil {
		return fmt.Errorf("update notification log: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return appErr.ErrVersionConflict
	}
	l.Version++
	l.UpdatedAt = now
	return nil
}

func (s *logStorage) ForceFail(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	query := `UPDATE notification_logs
		SET status = $2, error_message = $3, retry_count = retry_count + 1, version = version + 1, updated_at = now()
		WHERE id = $1 AND status NOT IN ($4, $5)`
	return s.execOne(ctx, query, id, model.StatusFailed, reason, model.StatusSent, model.StatusFailed)
}

func (s *logStorage) FailIfPending(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	query := `UPDATE notification_logs
		SET status = $2, error_message = $3, retry_count = retry_count + 1, version = version + 1, updated_at = now()
		WHERE id = $1 AND status = $4`
	return s.execOne(ctx, query, id, model.StatusFailed, reason, model.StatusPending)
}

func (s *logStorage) FailStale(ctx context.Context, olderThan time.Time, reason string) (int64, error) {
	query := `UPDATE notification_logs
		SET status = $1, error_message = $2, retry_count = retry_count + 1, version = version + 1, updated_at = now()
		WHERE status = $3 AND updated_at < $4`
	res, err := s.db.ExecContext(ctx, query, model.StatusFailed, reason, model.StatusProcessing, olderThan)
	if err != nil {
		return 0, fmt.Errorf("fail stale logs: %w", err)
	}
	return res.RowsAffected()
}

func (s *logStorage) execOne(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update notification log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *logStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
