package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samims/notifyhub/internal/metrics"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/queue"
	"github.com/samims/notifyhub/pkg/tracing"
)

var errProducerClosed = errors.New("kafka producer is closed")

// Producer publishes queue messages to one Kafka topic per channel.
type Producer interface {
	queue.Publisher
	Start()
}

type producer struct {
	asyncProducer sarama.AsyncProducer
	topicPrefix   string
	onFailure     queue.FailureFunc
	log           *slog.Logger
	tracer        *tracing.Tracer

	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewProducer wraps an AsyncProducer. Start must be called before Publish so
// the success and error channels are drained. onFailure may be nil.
func NewProducer(asyncProducer sarama.AsyncProducer, topicPrefix string, onFailure queue.FailureFunc, log *slog.Logger) Producer {
	if asyncProducer == nil || log == nil {
		panic("NewProducer: nil dependencies provided")
	}
	return &producer{
		asyncProducer: asyncProducer,
		topicPrefix:   topicPrefix,
		onFailure:     onFailure,
		log:           log.With("layer", "queue", "component", "kafka_producer"),
		tracer:        tracing.NewTracer(tracing.GetTracer("notifyhub-producer")),
	}
}

// NewSaramaConfig returns the producer settings the async producer expects:
// both result channels enabled, all in-sync replicas acknowledging.
func NewSaramaConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	return cfg
}

// Start launches the background handlers for the success and error channels.
// They run until the producer is closed.
func (p *producer) Start() {
	p.log.Info("Starting Kafka producer handlers")
	p.wg.Add(2)
	go p.handleSuccess()
	go p.handleErrors()
}

func (p *producer) handleSuccess() {
	defer p.wg.Done()
	for msg := range p.asyncProducer.Successes() {
		key, _ := msg.Key.Encode()
		p.log.Debug("Message delivered",
			slog.String("topic", msg.Topic),
			slog.Int("partition", int(msg.Partition)),
			slog.Int64("offset", msg.Offset),
			slog.String("key", string(key)))
	}
	p.log.Info("Kafka successes channel closed")
}

// handleErrors reports messages the broker refused after sarama's own retries.
func (p *producer) handleErrors() {
	defer p.wg.Done()
	for perr := range p.asyncProducer.Errors() {
		qm, _ := perr.Msg.Metadata.(*model.QueueMessage)
		channel := ""
		if qm != nil {
			channel = string(qm.Channel)
		}
		metrics.PublishFailures.WithLabelValues(channel).Inc()
		p.log.Error("Message delivery failed",
			slog.String("topic", perr.Msg.Topic),
			slog.Any("message", qm),
			slog.Any("error", perr.Err))

		if qm != nil && p.onFailure != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			p.onFailure(ctx, qm, perr.Err)
			cancel()
		}
	}
	p.log.Info("Kafka errors channel closed")
}

// Publish hands msg to the async producer. The message is keyed by batch id
// so one batch stays in one partition.
func (p *producer) Publish(ctx context.Context, msg *model.QueueMessage) error {
	topic := queue.Topic(p.topicPrefix, msg.Channel)
	ctx, span := p.tracer.StartProducerSpan(ctx, "KafkaPublish",
		attribute.String(tracing.AttrNotificationLogID, msg.LogID.String()),
		attribute.String(tracing.AttrNotificationBatchID, msg.BatchID.String()),
	)
	defer span.End()
	p.tracer.AddMessagingAttributes(span, "kafka", topic, "publish")

	data, err := queue.Encode(msg)
	if err != nil {
		p.tracer.RecordError(span, err)
		return err
	}

	pm := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(msg.BatchID.String()),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
		Headers:   tracing.InjectTraceContext(ctx, nil),
		Metadata:  msg,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.tracer.RecordError(span, errProducerClosed)
		return errProducerClosed
	}

	select {
	case p.asyncProducer.Input() <- pm:
		p.log.Debug("Message queued to Kafka",
			slog.String("topic", topic),
			slog.Any("message", msg))
		return nil
	case <-ctx.Done():
		err := fmt.Errorf("publish cancelled: %w", ctx.Err())
		p.tracer.RecordError(span, err)
		p.log.Warn("Publish cancelled by context", slog.String("log_id", msg.LogID.String()))
		return err
	}
}

// Close flushes buffered messages and waits for the handlers to drain.
func (p *producer) Close() error {
	p.closeOnce.Do(func() {
		p.log.Info("Closing Kafka producer...")
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.asyncProducer.AsyncClose()
		p.wg.Wait()
		p.log.Info("Kafka producer closed")
	})
	return nil
}
