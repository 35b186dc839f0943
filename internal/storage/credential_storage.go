package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/model"
)

const pgUniqueViolation = "23505"

const apiKeyColumns = `id, api_key, system_name, company_name, contact_email, contact_phone, description,
	active, start_date, end_date, never_expires, monthly_limit, current_usage, usage_reset_at,
	deleted, created_at, updated_at`

type credentialStorage struct {
	db *pgxpool.Pool
}

func NewCredentialStorage(pool *pgxpool.Pool) CredentialStorage {
	return &credentialStorage{db: pool}
}

func scanAPIKey(row pgx.Row) (*model.APIKey, error) {
	var k model.APIKey
	err := row.Scan(&k.ID, &k.Key, &k.SystemName, &k.CompanyName, &k.ContactEmail, &k.ContactPhone,
		&k.Description, &k.Active, &k.StartDate, &k.EndDate, &k.NeverExpires, &k.MonthlyLimit,
		&k.CurrentUsage, &k.UsageResetAt, &k.Deleted, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &k, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (s *credentialStorage) Create(ctx context.Context, k *model.APIKey) error {
	query := `
		INSERT INTO api_keys (id, api_key, system_name, company_name, contact_email, contact_phone,
			description, active, start_date, end_date, never_expires, monthly_limit, current_usage,
			usage_reset_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := s.db.Exec(ctx, query, k.ID, k.Key, k.SystemName, k.CompanyName, k.ContactEmail,
		k.ContactPhone, k.Description, k.Active, k.StartDate, k.EndDate, k.NeverExpires, k.MonthlyLimit,
		k.CurrentUsage, k.UsageResetAt, k.CreatedAt, k.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return appErr.ErrConflict
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

func (s *credentialStorage) FindByKey(ctx context.Context, apiKey string) (*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE api_key = $1 AND NOT deleted`
	return scanAPIKey(s.db.QueryRow(ctx, query, apiKey))
}

func (s *credentialStorage) FindByID(ctx context.Context, id uuid.UUID) (*model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1 AND NOT deleted`
	return scanAPIKey(s.db.QueryRow(ctx, query, id))
}

func (s *credentialStorage) SystemNameTaken(ctx context.Context, systemName string, excludeID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM api_keys WHERE system_name = $1 AND id <> $2 AND NOT deleted)`
	var taken bool
	if err := s.db.QueryRow(ctx, query, systemName, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("check system name: %w", err)
	}
	return taken, nil
}

func (s *credentialStorage) List(ctx context.Context, page model.Page) ([]model.APIKey, int, error) {
	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM api_keys WHERE NOT deleted`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count api keys: %w", err)
	}

	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE NOT deleted
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.db.Query(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]model.APIKey, 0, page.Size)
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, 0, err
		}
		keys = append(keys, *k)
	}
	return keys, total, rows.Err()
}

func (s *credentialStorage) Update(ctx context.Context, k *model.APIKey) error {
	query := `
		UPDATE api_keys SET system_name = $2, company_name = $3, contact_email = $4, contact_phone = $5,
			description = $6, active = $7, start_date = $8, end_date = $9, never_expires = $10,
			monthly_limit = $11, updated_at = $12
		WHERE id = $1 AND NOT deleted`

	tag, err := s.db.Exec(ctx, query, k.ID, k.SystemName, k.CompanyName, k.ContactEmail, k.ContactPhone,
		k.Description, k.Active, k.StartDate, k.EndDate, k.NeverExpires, k.MonthlyLimit, k.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return appErr.ErrConflict
		}
		return fmt.Errorf("update api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (s *credentialStorage) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE api_keys SET deleted = TRUE, active = FALSE, updated_at = now() WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (s *credentialStorage) IncrementUsage(ctx context.Context, id uuid.UUID, n int) error {
	_, err := s.db.Exec(ctx,
		`UPDATE api_keys SET current_usage = current_usage + $2, updated_at = now() WHERE id = $1`, id, n)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

func (s *credentialStorage) FindDueForReset(ctx context.Context, now time.Time) ([]model.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE NOT deleted AND usage_reset_at <= $1`
	rows, err := s.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("find keys due for reset: %w", err)
	}
	defer rows.Close()

	var keys []model.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}

func (s *credentialStorage) ResetUsage(ctx context.Context, id uuid.UUID, prev, next time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE api_keys SET current_usage = 0, usage_reset_at = $3, updated_at = now()
		WHERE id = $1 AND usage_reset_at = $2 AND NOT deleted`, id, prev, next)
	if err != nil {
		return false, fmt.Errorf("reset usage: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
