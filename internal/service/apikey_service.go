package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/metrics"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/storage"
)

const apiKeyBytes = 32

type APIKeyService interface {
	Create(ctx context.Context, req model.CreateAPIKeyRequest) (*model.APIKey, error)
	List(ctx context.Context, page model.Page) ([]model.APIKey, int, error)
	Get(ctx context.Context, id uuid.UUID) (*model.APIKey, error)
	Update(ctx context.Context, id uuid.UUID, req model.UpdateAPIKeyRequest) (*model.APIKey, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UsageStats(key *model.APIKey) model.UsageStats
	// ResetDueUsage zeroes the counters of every key whose reset time has
	// passed and returns how many were reset.
	ResetDueUsage(ctx context.Context) (int, error)
}

type apiKeyService struct {
	store  storage.CredentialStorage
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewAPIKeyService(store storage.CredentialStorage, logger *slog.Logger) APIKeyService {
	return &apiKeyService{
		store:  store,
		logger: logger.With("layer", "service", "component", "apiKeyService"),
		tracer: otel.Tracer("apikey-service"),
		now:    time.Now,
	}
}

// GenerateAPIKey returns 32 random bytes encoded as unpadded base64url.
func GenerateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func validateWindow(neverExpires bool, start, end *time.Time) error {
	if neverExpires {
		return nil
	}
	if end == nil {
		return appErr.NewValidation("endDate is required unless neverExpires is true")
	}
	if start != nil && end.Before(*start) {
		return appErr.NewValidation("endDate must not be before startDate")
	}
	return nil
}

func validateLimit(limit *int) error {
	if limit != nil && *limit < 0 {
		return appErr.NewValidation("monthlyLimit must not be negative")
	}
	return nil
}

func (s *apiKeyService) Create(ctx context.Context, req model.CreateAPIKeyRequest) (*model.APIKey, error) {
	ctx, span := s.tracer.Start(ctx, "Create")
	defer span.End()

	name := strings.TrimSpace(req.SystemName)
	if name == "" {
		return nil, appErr.NewValidation("systemName is required")
	}
	neverExpires := req.NeverExpires != nil && *req.NeverExpires
	if err := validateWindow(neverExpires, req.StartDate.Ptr(), req.EndDate.Ptr()); err != nil {
		return nil, err
	}
	if err := validateLimit(req.MonthlyLimit); err != nil {
		return nil, err
	}

	taken, err := s.store.SystemNameTaken(ctx, name, uuid.Nil)
	if err != nil {
		s.logger.Error("failed to check system name", slog.String("system", name), slog.Any("error", err))
		return nil, appErr.NewInternal("failed to check system name: %v", err)
	}
	if taken {
		return nil, appErr.NewConflict("system name %s already exists", name)
	}

	secret, err := GenerateAPIKey()
	if err != nil {
		return nil, appErr.NewInternal("failed to generate API key: %v", err)
	}

	now := s.now().UTC()
	key := &model.APIKey{
		ID:           uuid.New(),
		Key:          secret,
		SystemName:   name,
		CompanyName:  req.CompanyName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Description:  req.Description,
		Active:       true,
		StartDate:    req.StartDate.Ptr(),
		EndDate:      req.EndDate.Ptr(),
		NeverExpires: neverExpires,
		MonthlyLimit: req.MonthlyLimit,
		UsageResetAt: model.FirstOfNextMonth(now),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, key); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, appErr.ErrConflict) {
			return nil, appErr.NewConflict("system name %s already exists", name)
		}
		s.logger.Error("failed to create api key", slog.String("system", name), slog.Any("error", err))
		return nil, appErr.NewInternal("failed to create API key: %v", err)
	}

	span.SetAttributes(attribute.String("apikey.id", key.ID.String()))
	s.logger.Info("api key created",
		slog.String("id", key.ID.String()),
		slog.String("system", name),
		slog.String("key_prefix", model.KeyPrefix(key.Key)))
	return key, nil
}

func (s *apiKeyService) List(ctx context.Context, page model.Page) ([]model.APIKey, int, error) {
	keys, total, err := s.store.List(ctx, page)
	if err != nil {
		s.logger.Error("failed to list api keys", slog.Any("error", err))
		return nil, 0, appErr.NewInternal("failed to list API keys: %v", err)
	}
	return keys, total, nil
}

func (s *apiKeyService) Get(ctx context.Context, id uuid.UUID) (*model.APIKey, error) {
	key, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, appErr.NewNotFound("API key %s not found", id)
		}
		s.logger.Error("failed to get api key", slog.String("id", id.String()), slog.Any("error", err))
		return nil, appErr.NewInternal("failed to get API key: %v", err)
	}
	return key, nil
}

func (s *apiKeyService) Update(ctx context.Context, id uuid.UUID, req model.UpdateAPIKeyRequest) (*model.APIKey, error) {
	ctx, span := s.tracer.Start(ctx, "Update")
	defer span.End()
	span.SetAttributes(attribute.String("apikey.id", id.String()))

	key, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.SystemName != nil {
		name := strings.TrimSpace(*req.SystemName)
		if name == "" {
			return nil, appErr.NewValidation("systemName must not be empty")
		}
		if name != key.SystemName {
			taken, err := s.store.SystemNameTaken(ctx, name, key.ID)
			if err != nil {
				return nil, appErr.NewInternal("failed to check system name: %v", err)
			}
			if taken {
				return nil, appErr.NewConflict("system name %s already exists", name)
			}
		}
		key.SystemName = name
	}
	if req.CompanyName != nil {
		key.CompanyName = *req.CompanyName
	}
	if req.ContactEmail != nil {
		key.ContactEmail = *req.ContactEmail
	}
	if req.ContactPhone != nil {
		key.ContactPhone = *req.ContactPhone
	}
	if req.Description != nil {
		key.Description = *req.Description
	}
	if req.Active != nil {
		key.Active = *req.Active
	}
	if req.StartDate != nil {
		key.StartDate = req.StartDate.Ptr()
	}
	if req.EndDate != nil {
		key.EndDate = req.EndDate.Ptr()
	}
	if req.NeverExpires != nil {
		key.NeverExpires = *req.NeverExpires
	}
	if req.MonthlyLimit != nil {
		key.MonthlyLimit = req.MonthlyLimit
	}

	if err := validateWindow(key.NeverExpires, key.StartDate, key.EndDate); err != nil {
		return nil, err
	}
	if err := validateLimit(key.MonthlyLimit); err != nil {
		return nil, err
	}

	key.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, key); err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, appErr.ErrConflict):
			return nil, appErr.NewConflict("system name %s already exists", key.SystemName)
		case errors.Is(err, appErr.ErrNotFound):
			return nil, appErr.NewNotFound("API key %s not found", id)
		}
		s.logger.Error("failed to update api key", slog.String("id", id.String()), slog.Any("error", err))
		return nil, appErr.NewInternal("failed to update API key: %v", err)
	}

	s.logger.Info("api key updated", slog.String("id", id.String()), slog.String("system", key.SystemName))
	return key, nil
}

func (s *apiKeyService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return appErr.NewNotFound("API key %s not found", id)
		}
		s.logger.Error("failed to delete api key", slog.String("id", id.String()), slog.Any("error", err))
		return appErr.NewInternal("failed to delete API key: %v", err)
	}
	s.logger.Info("api key deleted", slog.String("id", id.String()))
	return nil
}

func (s *apiKeyService) UsageStats(key *model.APIKey) model.UsageStats {
	return key.Stats(s.now())
}

func (s *apiKeyService) ResetDueUsage(ctx context.Context) (int, error) {
	now := s.now()
	keys, err := s.store.FindDueForReset(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find keys due for reset: %w", err)
	}

	reset := 0
	for _, k := range keys {
		if !k.UsageResetDue(now) {
			continue
		}
		next := model.NextUsageReset(k.UsageResetAt, now)
		ok, err := s.store.ResetUsage(ctx, k.ID, k.UsageResetAt, next)
		if err != nil {
			s.logger.Error("usage reset failed", slog.String("id", k.ID.String()), slog.Any("error", err))
			continue
		}
		if !ok {
			// another instance got there first
			continue
		}
		reset++
		s.logger.Info("usage reset",
			slog.String("system", k.SystemName),
			slog.Int("previous_usage", k.CurrentUsage),
			slog.Time("next_reset_at", next))
	}
	metrics.UsageResets.Add(float64(reset))
	return reset, nil
}
