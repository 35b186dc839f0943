package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/samims/notifyhub/internal/queue"
	"github.com/samims/notifyhub/pkg/tracing"
)

const maxConsumeBackoff = 30 * time.Second

// Consumer reads one channel topic through a consumer group and hands every
// message to a queue.Handler.
type Consumer struct {
	topic         string
	consumerGroup sarama.ConsumerGroup
	handler       queue.Handler
	log           *slog.Logger
	tracer        *tracing.Tracer
}

// NewConsumer receives its consumer group via dependency injection.
func NewConsumer(topic string, consumerGroup sarama.ConsumerGroup, handler queue.Handler, log *slog.Logger) *Consumer {
	return &Consumer{
		topic:         topic,
		consumerGroup: consumerGroup,
		handler:       handler,
		log:           log.With("layer", "queue", "component", "kafka_consumer", "topic", topic),
		tracer:        tracing.NewTracer(tracing.GetTracer("notifyhub-consumer")),
	}
}

// Start blocks until ctx is cancelled or the consumer group is closed.
func (c *Consumer) Start(ctx context.Context) error {
	defer func() {
		if err := c.consumerGroup.Close(); err != nil {
			c.log.Warn("Failed to close consumer group", slog.Any("error", err))
		}
	}()

	c.log.Info("Kafka consumer started")

	backoff := time.Second
	for {
		// Consume returns on every rebalance; loop to rejoin.
		err := c.consumerGroup.Consume(ctx, []string{c.topic}, c)
		if ctx.Err() != nil {
			c.log.Info("Context cancelled, stopping consumer")
			return nil
		}
		if err == nil {
			backoff = time.Second
			continue
		}
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return err
		}

		c.log.Error("Error consuming messages", slog.Any("error", err), slog.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < maxConsumeBackoff {
			backoff *= 2
		}
	}
}

func (c *Consumer) Setup(session sarama.ConsumerGroupSession) error {
	for topic, partitions := range session.Claims() {
		c.log.Info("Partition assignment",
			slog.String("topic", topic),
			slog.Any("partitions", partitions),
		)
	}
	return nil
}

func (c *Consumer) Cleanup(_ sarama.ConsumerGroupSession) error {
	c.log.Info("Kafka session cleanup complete")
	return nil
}

// ConsumeClaim handles one partition. A handled message is marked whatever
// the handler returns: delivery outcomes live in the log store, not in
// offsets. A message interrupted by session shutdown is left unmarked so the
// next session redelivers it; the worker skips rows it already claimed.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			c.process(session.Context(), message)
			if session.Context().Err() != nil {
				c.log.Info("Session ended while handling message, leaving it unmarked",
					slog.Int("partition", int(message.Partition)),
					slog.Int64("offset", message.Offset))
				return nil
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) {
	ctx = tracing.ExtractTraceContext(ctx, message.Headers)
	ctx, span := c.tracer.StartConsumerSpan(ctx, "KafkaConsume")
	defer span.End()
	c.tracer.AddKafkaAttributes(span, message.Topic, "process", message.Partition, message.Offset)

	log := c.log.With(
		slog.Int("partition", int(message.Partition)),
		slog.Int64("offset", message.Offset),
	)
	log.Debug("Message received")

	msg, err := queue.Decode(message.Value)
	if err != nil {
		c.tracer.RecordError(span, err)
		// skip the gibberish messages
		log.Error("Failed to decode message", slog.Any("error", err))
		return
	}

	if err := c.handler.Handle(ctx, msg); err != nil {
		log.Debug("Message handled with error", slog.Any("message", msg), slog.Any("error", err))
	}
}
