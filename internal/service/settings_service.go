package service

import (
	"context"
	"errors"
	"log/slog"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/storage"
)

// SettingsService manages the singleton transport settings used for system
// notifications. The row is created with defaults on first read.
type SettingsService interface {
	Get(ctx context.Context) (*model.SystemSettings, error)
	Update(ctx context.Context, req model.UpdateSettingsRequest) (*model.SystemSettings, error)
}

type settingsService struct {
	store  storage.SettingsStorage
	logger *slog.Logger
}

func NewSettingsService(store storage.SettingsStorage, logger *slog.Logger) SettingsService {
	return &settingsService{
		store:  store,
		logger: logger.With("layer", "service", "component", "settingsService"),
	}
}

func (s *settingsService) Get(ctx context.Context) (*model.SystemSettings, error) {
	st, err := s.store.Get(ctx, model.DefaultSettingKey)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, appErr.ErrNotFound) {
		s.logger.Error("failed to load system settings", slog.Any("error", err))
		return nil, appErr.NewInternal("failed to load system settings: %v", err)
	}

	defaults := model.DefaultSystemSettings()
	if err := s.store.CreateIfAbsent(ctx, &defaults); err != nil {
		s.logger.Error("failed to create default system settings", slog.Any("error", err))
		return nil, appErr.NewInternal("failed to create system settings: %v", err)
	}
	s.logger.Info("default system settings created")

	// re-read so a concurrent creator's row wins
	st, err = s.store.Get(ctx, model.DefaultSettingKey)
	if err != nil {
		return nil, appErr.NewInternal("failed to load system settings: %v", err)
	}
	return st, nil
}

func (s *settingsService) Update(ctx context.Context, req model.UpdateSettingsRequest) (*model.SystemSettings, error) {
	if req.SMTPPort != nil && (*req.SMTPPort < 1 || *req.SMTPPort > 65535) {
		return nil, appErr.NewValidation("smtpPort must be between 1 and 65535")
	}

	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	req.Apply(st)

	if err := s.store.Update(ctx, st); err != nil {
		s.logger.Error("failed to update system settings", slog.Any("error", err))
		return nil, appErr.NewInternal("failed to update system settings: %v", err)
	}

	s.logger.Info("system settings updated",
		slog.Bool("chat_bot_enabled", st.ChatBotEnabled),
		slog.Bool("email_enabled", st.EmailEnabled))
	return st, nil
}
