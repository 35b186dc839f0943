// Package scheduler runs the periodic maintenance jobs: the monthly usage
// reset and the stale PROCESSING sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/samims/notifyhub/internal/metrics"
	"github.com/samims/notifyhub/internal/service"
	"github.com/samims/notifyhub/internal/storage"
)

const (
	jobUsageReset = "usage-reset"
	jobStaleSweep = "stale-sweep"

	staleReason = "delivery stalled in PROCESSING"
	jobTimeout  = 5 * time.Minute
)

type Config struct {
	UsageResetSchedule   string
	StaleSweepSchedule   string
	StaleProcessingAfter time.Duration
	Location             *time.Location
}

type Scheduler struct {
	cfg     Config
	apiKeys service.APIKeyService
	logs    storage.LogStorage
	locker  Locker
	log     *slog.Logger
	now     func() time.Time

	c *cron.Cron
}

func New(cfg Config, apiKeys service.APIKeyService, logs storage.LogStorage, locker Locker, log *slog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Scheduler{
		cfg:     cfg,
		apiKeys: apiKeys,
		logs:    logs,
		locker:  locker,
		log:     log.With("layer", "scheduler", "component", "scheduler"),
		now:     time.Now,
	}
}

// Start registers the jobs and runs the cron loop until ctx is done, then
// waits for running jobs to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s.c = cron.New(cron.WithParser(parser), cron.WithLocation(s.cfg.Location))

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{jobUsageReset, s.cfg.UsageResetSchedule, s.ResetUsage},
		{jobStaleSweep, s.cfg.StaleSweepSchedule, s.SweepStale},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		name, run := j.name, j.run
		if _, err := s.c.AddFunc(j.spec, func() { s.runLocked(ctx, name, run) }); err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", j.spec, name, err)
		}
		s.log.Info("job registered", slog.String("job", name), slog.String("spec", j.spec))
	}

	s.c.Start()
	s.log.Info("scheduler started", slog.String("tz", s.cfg.Location.String()))

	<-ctx.Done()
	<-s.c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) runLocked(ctx context.Context, name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	ok, err := s.locker.Acquire(ctx, name, jobTimeout)
	if err != nil {
		s.log.Error("failed to acquire job lock", slog.String("job", name), slog.Any("error", err))
		return
	}
	if !ok {
		s.log.Debug("job is running elsewhere", slog.String("job", name))
		return
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), name); err != nil {
			s.log.Warn("failed to release job lock", slog.String("job", name), slog.Any("error", err))
		}
	}()

	start := time.Now()
	if err := run(ctx); err != nil {
		s.log.Error("job failed", slog.String("job", name), slog.Any("error", err))
		return
	}
	s.log.Debug("job finished", slog.String("job", name), slog.Duration("took", time.Since(start)))
}

// ResetUsage zeroes the counters of every credential whose reset is due.
func (s *Scheduler) ResetUsage(ctx context.Context) error {
	n, err := s.apiKeys.ResetDueUsage(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("monthly usage reset", slog.Int("keys", n))
	}
	return nil
}

// SweepStale fails logs stuck in PROCESSING longer than StaleProcessingAfter.
func (s *Scheduler) SweepStale(ctx context.Context) error {
	if s.cfg.StaleProcessingAfter <= 0 {
		return nil
	}
	cutoff := s.now().UTC().Add(-s.cfg.StaleProcessingAfter)
	n, err := s.logs.FailStale(ctx, cutoff, staleReason)
	if err != nil {
		return fmt.Errorf("stale sweep: %w", err)
	}
	if n > 0 {
		metrics.StaleLogsFailed.Add(float64(n))
		s.log.Warn("stale logs failed", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	}
	return nil
}
