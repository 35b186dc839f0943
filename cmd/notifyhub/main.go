package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/samims/notifyhub/internal/config"
	"github.com/samims/notifyhub/internal/delivery"
	"github.com/samims/notifyhub/internal/handler"
	"github.com/samims/notifyhub/internal/logger"
	"github.com/samims/notifyhub/internal/metrics"
	"github.com/samims/notifyhub/internal/middleware"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/queue"
	"github.com/samims/notifyhub/internal/queue/kafka"
	"github.com/samims/notifyhub/internal/queue/memory"
	"github.com/samims/notifyhub/internal/router"
	"github.com/samims/notifyhub/internal/scheduler"
	"github.com/samims/notifyhub/internal/service"
	"github.com/samims/notifyhub/internal/storage"
	"github.com/samims/notifyhub/internal/worker"
	"github.com/samims/notifyhub/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("notifyhub exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	l := logger.NewLogger(cfg.LogLevel)
	slog.SetDefault(l)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracing, err := tracing.SetupTracing(ctx, tracing.NewConfig(), l)
		if err != nil {
			return fmt.Errorf("tracing setup: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				l.Warn("tracer shutdown failed", slog.Any("error", err))
			}
		}()
	}

	pool, err := storage.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		return err
	}

	credentials := storage.NewCredentialStorage(pool)
	logs := storage.NewLogStorage(storage.NewSQLX(pool))
	settingsStore := storage.NewSettingsStorage(pool)

	apiKeySvc := service.NewAPIKeyService(credentials, l)
	settingsSvc := service.NewSettingsService(settingsStore, l)

	// a row whose message never reached the broker would stay PENDING forever
	onPublishFailure := func(ctx context.Context, msg *model.QueueMessage, err error) {
		ok, ferr := logs.FailIfPending(ctx, msg.LogID, "queue publish failed: "+err.Error())
		if ferr != nil {
			l.Error("failed to mark unpublished log", slog.String("log_id", msg.LogID.String()), slog.Any("error", ferr))
			return
		}
		if ok {
			l.Warn("log failed after publish error", slog.String("log_id", msg.LogID.String()))
		}
	}

	publisher, consumers, err := newQueue(cfg, logs, l, onPublishFailure)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			l.Warn("queue publisher close failed", slog.Any("error", err))
		}
	}()

	notificationSvc := service.NewNotificationService(logs, credentials, settingsSvc, publisher, cfg.MaxRecipients, l)
	healthSvc := service.NewHealthService(map[string]service.Pinger{"postgres": logs})

	// everything that can fail is built before the first goroutine starts
	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		locker := scheduler.NewLocalLocker()
		if cfg.RedisURL != "" {
			rdb, err := scheduler.NewRedisClient(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()
			locker = scheduler.NewRedisLocker(rdb, "notifyhub")
			healthSvc = service.NewHealthService(map[string]service.Pinger{
				"postgres": logs,
				"redis":    redisPinger{client: rdb},
			})
		}
		sched = scheduler.New(scheduler.Config{
			UsageResetSchedule:   cfg.Scheduler.UsageResetSchedule,
			StaleSweepSchedule:   cfg.Scheduler.StaleSweepSchedule,
			StaleProcessingAfter: cfg.Scheduler.StaleProcessingAfter,
			Location:             cfg.Location(),
		}, apiKeySvc, logs, locker, l)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.WorkersEnabled {
		for _, c := range consumers {
			c := c
			g.Go(func() error { return c.Start(gctx) })
		}
	}

	if sched != nil {
		g.Go(func() error { return sched.Start(gctx) })
	}

	if cfg.APIEnabled {
		h := router.Handlers{
			Notification: handler.NewNotificationHandler(service.NewQuotaGuard(credentials, l), notificationSvc, apiKeySvc, l),
			Admin:        handler.NewAdminHandler(apiKeySvc, settingsSvc, l),
			Health:       handler.NewHealthHandler(healthSvc, l),
		}
		server := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router.NewRouter(h, middleware.NewJWTValidator(cfg.AdminJWTSecret)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			l.Info("Server started", slog.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			l.Info("Shutting down server...")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(sctx)
		})
	}

	err = g.Wait()
	l.Info("notifyhub stopped")
	return err
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// newQueue builds the publisher and one consumer per channel for the
// configured driver.
func newQueue(cfg *config.Config, logs storage.LogStorage, l *slog.Logger, onFailure queue.FailureFunc) (queue.Publisher, []queue.Consumer, error) {
	wcfg := worker.Config{
		LookupAttempts:   cfg.Delivery.LookupAttempts,
		LookupBackoff:    cfg.Delivery.LookupBackoff,
		ConflictAttempts: cfg.Delivery.ConflictAttempts,
		ConflictBackoff:  cfg.Delivery.ConflictBackoff,
		DeliveryTimeout:  cfg.Delivery.Timeout,
	}
	workers := []*worker.Worker{
		worker.New(logs, delivery.NewEmailSender(cfg.Delivery.Timeout, l), wcfg, l),
		worker.New(logs, delivery.NewChatBotSender(cfg.Delivery.ChatBotAPIURL, cfg.Delivery.Timeout, cfg.Delivery.ChatBotRate, l), wcfg, l),
	}
	channels := []model.Channel{model.ChannelEmail, model.ChannelChatBot}

	switch cfg.Queue.Driver {
	case config.QueueDriverMemory:
		broker := memory.NewBroker(cfg.Queue.TopicPrefix, 0, l)
		consumers := make([]queue.Consumer, 0, len(workers))
		for i, w := range workers {
			c, err := broker.Consumer(channels[i], w)
			if err != nil {
				_ = broker.Close()
				return nil, nil, err
			}
			consumers = append(consumers, c)
		}
		return broker, consumers, nil

	case config.QueueDriverKafka:
		saramaConfig := kafka.NewSaramaConfig(cfg.Queue.ClientID)
		asyncProducer, err := sarama.NewAsyncProducer(cfg.Queue.Brokers, saramaConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create sarama producer: %w", err)
		}
		producer := kafka.NewProducer(asyncProducer, cfg.Queue.TopicPrefix, onFailure, l)
		producer.Start()

		var consumers []queue.Consumer
		if cfg.WorkersEnabled {
			for i, w := range workers {
				topic := queue.Topic(cfg.Queue.TopicPrefix, channels[i])
				group, err := sarama.NewConsumerGroup(cfg.Queue.Brokers, cfg.Queue.ConsumerGroup+"-"+topic, saramaConfig)
				if err != nil {
					_ = producer.Close()
					return nil, nil, fmt.Errorf("failed to create consumer group for %s: %w", topic, err)
				}
				consumers = append(consumers, kafka.NewConsumer(topic, group, w, l))
			}
		}
		return producer, consumers, nil
	}
	return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
}
