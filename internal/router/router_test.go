package router

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/handler"
	"github.com/samims/notifyhub/internal/middleware"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/service"
)

type rejectAll struct{}

func (rejectAll) Validate(context.Context, string) (*model.APIKey, error) {
	return nil, appErr.NewUnauthorized("invalid api key")
}

func (rejectAll) Identify(context.Context, string) (*model.APIKey, error) {
	return nil, appErr.NewUnauthorized("invalid api key")
}

type okHealth struct{}

func (okHealth) Check(context.Context) map[string]string { return map[string]string{"postgres": "ok"} }

type emptyKeys struct {
	service.APIKeyService
}

func (emptyKeys) List(context.Context, model.Page) ([]model.APIKey, int, error) { return nil, 0, nil }

func TestNewRouter(t *testing.T) {
	const secret = "s3cret"
	l := slog.Default()
	h := Handlers{
		Notification: handler.NewNotificationHandler(rejectAll{}, nil, nil, l),
		Admin:        handler.NewAdminHandler(emptyKeys{}, nil, l),
		Health:       handler.NewHealthHandler(okHealth{}, l),
	}
	r := NewRouter(h, middleware.NewJWTValidator(secret))

	admin, err := middleware.SignToken(secret, &middleware.Claims{
		Role:             middleware.RolePlatformOwner,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		bearer string
		want   int
	}{
		{name: "liveness", method: http.MethodGet, path: "/healthz", want: http.StatusOK},
		{name: "readiness", method: http.MethodGet, path: "/readyz", want: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
		{name: "send without key", method: http.MethodPost, path: "/api/v1/public/notifications/send", want: http.StatusUnauthorized},
		{name: "usage without key", method: http.MethodGet, path: "/api/v1/public/notifications/usage", want: http.StatusUnauthorized},
		{name: "api keys without token", method: http.MethodGet, path: "/api/v1/notification/api-keys", want: http.StatusUnauthorized},
		{name: "api keys as admin", method: http.MethodGet, path: "/api/v1/notification/api-keys", bearer: admin, want: http.StatusOK},
		{name: "settings without token", method: http.MethodGet, path: "/api/v1/public/system-notifications/settings", want: http.StatusUnauthorized},
		{name: "unknown route", method: http.MethodGet, path: "/nope", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
