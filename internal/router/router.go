package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samims/notifyhub/internal/handler"
	"github.com/samims/notifyhub/internal/middleware"
)

const requestTimeout = 30 * time.Second

type Handlers struct {
	Notification *handler.NotificationHandler
	Admin        *handler.AdminHandler
	Health       *handler.HealthHandler
}

func NewRouter(h Handlers, tokens middleware.TokenValidator) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.MetricsMiddleware)

	r.Get("/healthz", h.Health.Liveness)
	r.Get("/readyz", h.Health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	admin := func(r chi.Router) {
		r.Use(middleware.AdminAuth(tokens))
		r.Use(middleware.RequireRole(middleware.RolePlatformOwner, middleware.RolePlatformAdmin))
	}

	r.Route("/api/v1/public", func(r chi.Router) {
		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.APIKey)
			r.Post("/send", h.Notification.Send)
			r.Get("/logs", h.Notification.MyLogs)
			r.Get("/logs/batch/{batchId}", h.Notification.BatchLogs)
			r.Get("/logs/{logId}", h.Notification.Log)
			r.Get("/usage", h.Notification.Usage)
		})

		r.Route("/system-notifications", func(r chi.Router) {
			r.With(middleware.APIKey).Post("/send", h.Notification.SendSystem)
			r.Group(func(r chi.Router) {
				admin(r)
				r.Get("/settings", h.Admin.GetSettings)
				r.Put("/settings", h.Admin.UpdateSettings)
			})
		})
	})

	r.Route("/api/v1/notification/api-keys", func(r chi.Router) {
		admin(r)
		r.Post("/", h.Admin.CreateKey)
		r.Get("/", h.Admin.ListKeys)
		r.Get("/{id}", h.Admin.GetKey)
		r.Put("/{id}", h.Admin.UpdateKey)
		r.Delete("/{id}", h.Admin.DeleteKey)
	})

	return r
}
