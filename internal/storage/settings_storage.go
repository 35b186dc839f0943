package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/model"
)

type settingsStorage struct {
	db *pgxpool.Pool
}

func NewSettingsStorage(pool *pgxpool.Pool) SettingsStorage {
	return &settingsStorage{db: pool}
}

func (s *settingsStorage) Get(ctx context.Context, key string) (*model.SystemSettings, error) {
	query := `
		SELECT setting_key, chat_bot_enabled, bot_token, email_enabled, email_from, smtp_host, smtp_port,
			smtp_username, smtp_password, use_ssl, use_tls, created_at, updated_at
		FROM system_settings WHERE setting_key = $1`

	var st model.SystemSettings
	err := s.db.QueryRow(ctx, query, key).Scan(&st.SettingKey, &st.ChatBotEnabled, &st.BotToken,
		&st.EmailEnabled, &st.EmailFrom, &st.SMTPHost, &st.SMTPPort, &st.SMTPUsername, &st.SMTPPassword,
		&st.UseSSL, &st.UseTLS, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, fmt.Errorf("get system settings: %w", err)
	}
	return &st, nil
}

func (s *settingsStorage) CreateIfAbsent(ctx context.Context, st *model.SystemSettings) error {
	query := `
		INSERT INTO system_settings (setting_key, chat_bot_enabled, bot_token, email_enabled, email_from,
			smtp_host, smtp_port, smtp_username, smtp_password, use_ssl, use_tls)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (setting_key) DO NOTHING`

	_, err := s.db.Exec(ctx, query, st.SettingKey, st.ChatBotEnabled, st.BotToken, st.EmailEnabled,
		st.EmailFrom, st.SMTPHost, st.SMTPPort, st.SMTPUsername, st.SMTPPassword, st.UseSSL, st.UseTLS)
	if err != nil {
		return fmt.Errorf("create system settings: %w", err)
	}
	return nil
}

func (s *settingsStorage) Update(ctx context.Context, st *model.SystemSettings) error {
	query := `
		UPDATE system_settings SET chat_bot_enabled = $2, bot_token = $3, email_enabled = $4, email_from = $5,
			smtp_host = $6, smtp_port = $7, smtp_username = $8, smtp_password = $9, use_ssl = $10,
			use_tls = $11, updated_at = now()
		WHERE setting_key = $1
		RETURNING updated_at`

	err := s.db.QueryRow(ctx, query, st.SettingKey, st.ChatBotEnabled, st.BotToken, st.EmailEnabled,
		st.EmailFrom, st.SMTPHost, st.SMTPPort, st.SMTPUsername, st.SMTPPassword, st.UseSSL, st.UseTLS).
		Scan(&st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return appErr.ErrNotFound
		}
		return fmt.Errorf("update system settings: %w", err)
	}
	return nil
}
