package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/storage"
)

// QuotaGuard authenticates API keys presented by client systems.
type QuotaGuard interface {
	// Validate admits a key that is known, active, inside its validity
	// window and below its monthly limit.
	Validate(ctx context.Context, apiKey string) (*model.APIKey, error)
	// Identify only checks that the key is known and active, for read-only
	// endpoints an exhausted or expired client may still call.
	Identify(ctx context.Context, apiKey string) (*model.APIKey, error)
}

type quotaGuard struct {
	store  storage.CredentialStorage
	logger *slog.Logger
	now    func() time.Time
}

func NewQuotaGuard(store storage.CredentialStorage, logger *slog.Logger) QuotaGuard {
	return &quotaGuard{
		store:  store,
		logger: logger.With("layer", "service", "component", "quotaGuard"),
		now:    time.Now,
	}
}

func (g *quotaGuard) Identify(ctx context.Context, apiKey string) (*model.APIKey, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, appErr.NewUnauthorized("API key is required")
	}

	key, err := g.store.FindByKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			g.logger.Warn("unknown api key", slog.String("key_prefix", model.KeyPrefix(apiKey)))
			return nil, appErr.NewUnauthorized("invalid API key")
		}
		g.logger.Error("api key lookup failed", slog.Any("error", err))
		return nil, appErr.NewInternal("failed to look up API key: %v", err)
	}

	if !key.Active {
		g.logger.Warn("inactive api key used", slog.String("system", key.SystemName))
		return nil, appErr.NewUnauthorized("API key is inactive")
	}
	return key, nil
}

func (g *quotaGuard) Validate(ctx context.Context, apiKey string) (*model.APIKey, error) {
	key, err := g.Identify(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	if key.IsExpiredAt(g.now()) {
		g.logger.Warn("expired api key used", slog.String("system", key.SystemName))
		return nil, appErr.NewUnauthorized("API key has expired")
	}
	if key.HasReachedLimit() {
		g.logger.Warn("monthly limit reached",
			slog.String("system", key.SystemName),
			slog.Int("usage", key.CurrentUsage),
			slog.Int("limit", *key.MonthlyLimit))
		return nil, appErr.NewUnauthorized("monthly usage limit exceeded")
	}
	return key, nil
}
