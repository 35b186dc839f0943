// Package worker implements the delivery state machine shared by every
// channel: PENDING -> PROCESSING -> SENT | FAILED.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samims/notifyhub/internal/delivery"
	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/metrics"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/storage"
	"github.com/samims/notifyhub/pkg/tracing"
)

const (
	resultSent      = "sent"
	resultFailed    = "failed"
	resultDuplicate = "duplicate"
	resultMissing   = "missing"
	resultConflict  = "conflict"
	resultSkipped   = "skipped"
	resultError     = "error"
)

type Config struct {
	LookupAttempts   int
	LookupBackoff    time.Duration
	ConflictAttempts int
	ConflictBackoff  time.Duration
	DeliveryTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		LookupAttempts:   5,
		LookupBackoff:    200 * time.Millisecond,
		ConflictAttempts: 3,
		ConflictBackoff:  100 * time.Millisecond,
		DeliveryTimeout:  10 * time.Second,
	}
}

// Worker consumes queue messages for one channel. It implements queue.Handler.
type Worker struct {
	logs   storage.LogStorage
	sender delivery.Sender
	cfg    Config
	logger *slog.Logger
	tracer *tracing.Tracer
	now    func() time.Time
}

func New(logs storage.LogStorage, sender delivery.Sender, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{
		logs:   logs,
		sender: sender,
		cfg:    cfg,
		logger: logger.With("layer", "worker", "component", "worker", "channel", string(sender.Channel())),
		tracer: tracing.NewTracer(tracing.GetTracer("notification-worker")),
		now:    time.Now,
	}
}

type outcome int

const (
	applied outcome = iota
	// skipped means the row was not in the state the transition requires.
	skipped
	exhausted
)

// Handle runs the full delivery algorithm for one message. The returned error
// is informational; the caller acknowledges the message either way.
func (w *Worker) Handle(ctx context.Context, msg *model.QueueMessage) error {
	channel := string(w.sender.Channel())
	ctx, span := w.tracer.StartConsumerSpan(ctx, "Deliver",
		attribute.String(tracing.AttrNotificationLogID, msg.LogID.String()),
		attribute.String(tracing.AttrNotificationBatchID, msg.BatchID.String()),
		attribute.String(tracing.AttrNotificationChannel, channel),
	)
	defer span.End()

	log := w.logger.With(slog.String("log_id", msg.LogID.String()), slog.String("batch_id", msg.BatchID.String()))

	entry, err := w.lookup(ctx, msg)
	if err != nil {
		w.tracer.RecordError(span, err)
		metrics.DeliveryResults.WithLabelValues(channel, resultMissing).Inc()
		log.Error("notification log not found, dropping message", slog.Any("error", err))
		return err
	}

	res, err := w.transition(ctx, msg.LogID, entry, func(l *model.NotificationLog) bool { return l.MarkProcessing() })
	switch {
	case err != nil:
		w.tracer.RecordError(span, err)
		metrics.DeliveryResults.WithLabelValues(channel, resultError).Inc()
		log.Error("failed to claim notification", slog.Any("error", err))
		return err
	case res == skipped:
		metrics.DeliveryResults.WithLabelValues(channel, resultDuplicate).Inc()
		log.Info("duplicate message, log already claimed")
		return nil
	case res == exhausted:
		return w.forceFail(ctx, msg, log)
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.cfg.DeliveryTimeout)
	start := time.Now()
	response, sendErr := w.sender.Send(sendCtx, msg)
	cancel()
	metrics.DeliveryDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())

	// the row is PROCESSING now; finish it even if shutdown cancelled ctx
	finishCtx := context.WithoutCancel(ctx)
	sentAt := w.now().UTC()
	mutate := func(l *model.NotificationLog) bool { return l.MarkSent(response, sentAt) }
	result := resultSent
	if sendErr != nil {
		w.tracer.RecordError(span, sendErr)
		reason := sendErr.Error()
		mutate = func(l *model.NotificationLog) bool { return l.MarkFailed(reason) }
		result = resultFailed
		log.Warn("delivery failed", slog.Any("error", sendErr))
	}

	res, err = w.transition(finishCtx, msg.LogID, nil, mutate)
	switch {
	case err != nil:
		w.tracer.RecordError(span, err)
		metrics.DeliveryResults.WithLabelValues(channel, resultError).Inc()
		log.Error("failed to record delivery result", slog.String("result", result), slog.Any("error", err))
		return err
	case res == skipped:
		metrics.DeliveryResults.WithLabelValues(channel, resultSkipped).Inc()
		log.Warn("log left PROCESSING before the result was recorded", slog.String("result", result))
		return nil
	case res == exhausted:
		return w.forceFail(finishCtx, msg, log)
	}

	metrics.DeliveryResults.WithLabelValues(channel, result).Inc()
	log.Info("delivery recorded", slog.String("result", result))
	return sendErr
}

// lookup tolerates rows that are not visible yet by retrying with
// exponential backoff.
func (w *Worker) lookup(ctx context.Context, msg *model.QueueMessage) (*model.NotificationLog, error) {
	backoff := w.cfg.LookupBackoff
	var lastErr error
	for attempt := 1; attempt <= w.cfg.LookupAttempts; attempt++ {
		entry, err := w.logs.FindByID(ctx, msg.LogID)
		if err == nil {
			return entry, nil
		}
		lastErr = err
		if attempt == w.cfg.LookupAttempts {
			break
		}
		w.logger.Debug("log lookup retry",
			slog.String("log_id", msg.LogID.String()),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff))
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("log %s not found after %d attempts: %w", msg.LogID, w.cfg.LookupAttempts, lastErr)
}

// transition applies mutate with optimistic concurrency. When first is nil,
// or after a version conflict, the row is re-read from the store.
func (w *Worker) transition(ctx context.Context, id uuid.UUID, first *model.NotificationLog, mutate func(*model.NotificationLog) bool) (outcome, error) {
	entry := first
	for attempt := 1; attempt <= w.cfg.ConflictAttempts; attempt++ {
		if entry == nil {
			var err error
			if entry, err = w.logs.FindByID(ctx, id); err != nil {
				return 0, fmt.Errorf("reload log %s: %w", id, err)
			}
		}
		if !mutate(entry) {
			return skipped, nil
		}

		err := w.logs.Update(ctx, entry)
		if err == nil {
			return applied, nil
		}
		if !errors.Is(err, appErr.ErrVersionConflict) {
			return 0, err
		}

		w.logger.Debug("version conflict, retrying",
			slog.String("log_id", id.String()),
			slog.Int("attempt", attempt))
		entry = nil
		if attempt < w.cfg.ConflictAttempts {
			if err := sleep(ctx, w.cfg.ConflictBackoff*time.Duration(attempt)); err != nil {
				return 0, err
			}
		}
	}
	return exhausted, nil
}

// forceFail closes a row after repeated version conflicts. The store refuses
// to overwrite a terminal state.
func (w *Worker) forceFail(ctx context.Context, msg *model.QueueMessage, log *slog.Logger) error {
	channel := string(w.sender.Channel())
	reason := fmt.Sprintf("optimistic locking conflict after %d attempts", w.cfg.ConflictAttempts)
	metrics.DeliveryResults.WithLabelValues(channel, resultConflict).Inc()

	ok, err := w.logs.ForceFail(ctx, msg.LogID, reason)
	if err != nil {
		log.Error("failed to force-fail log", slog.Any("error", err))
		return err
	}
	if !ok {
		log.Info("log reached a terminal state during conflict retries")
		return nil
	}
	log.Error("log marked failed after version conflicts", slog.Int("attempts", w.cfg.ConflictAttempts))
	return errors.New(reason)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
