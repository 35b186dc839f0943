package service

import (
	"context"
	"fmt"
	"time"
)

// Pinger is any dependency whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService defines the interface for checking application health
type HealthService interface {
	Check(ctx context.Context) map[string]string
}

type healthService struct {
	deps map[string]Pinger
}

// NewHealthService checks each named dependency on every call.
func NewHealthService(deps map[string]Pinger) HealthService {
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) map[string]string {
	healthStatus := make(map[string]string, len(s.deps))

	for name, dep := range s.deps {
		// Use a timeout to prevent the health check from hanging
		depCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := dep.Ping(depCtx); err != nil {
			healthStatus[name] = fmt.Sprintf("error: %s", err.Error())
		} else {
			healthStatus[name] = "ok"
		}
		cancel()
	}
	return healthStatus
}

// Healthy reports whether every entry of a Check result is ok.
func Healthy(status map[string]string) bool {
	for _, v := range status {
		if v != "ok" {
			return false
		}
	}
	return true
}
