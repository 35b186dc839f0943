// Package memory is the in-process queue driver used for local runs and tests.
// Messages live only in memory and are gone once acknowledged or on restart.
package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/samims/notifyhub/internal/metrics"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/queue"
	"github.com/samims/notifyhub/pkg/tracing"
)

const defaultBuffer = 256

// Broker owns a watermill GoChannel shared by the publisher and every consumer.
// The GoChannel drops messages published to a topic nobody subscribes to, so
// consumers subscribe when they are created, before any publish can happen.
type Broker struct {
	pubSub      *gochannel.GoChannel
	topicPrefix string
	log         *slog.Logger

	// subscriptions live until Close
	ctx    context.Context
	cancel context.CancelFunc
}

func NewBroker(topicPrefix string, bufferSize int, log *slog.Logger) *Broker {
	if bufferSize <= 0 {
		bufferSize = defaultBuffer
	}
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            int64(bufferSize),
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewSlogLogger(log),
	)
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		pubSub:      pubSub,
		topicPrefix: topicPrefix,
		log:         log.With("layer", "queue", "component", "memory_broker"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Publish implements queue.Publisher.
func (b *Broker) Publish(ctx context.Context, msg *model.QueueMessage) error {
	data, err := queue.Encode(msg)
	if err != nil {
		return err
	}

	wm := message.NewMessage(msg.LogID.String(), data)
	wm.Metadata.Set("batch_id", msg.BatchID.String())
	tracing.InjectMetadata(ctx, wm.Metadata)

	topic := queue.Topic(b.topicPrefix, msg.Channel)
	if err := b.pubSub.Publish(topic, wm); err != nil {
		metrics.PublishFailures.WithLabelValues(string(msg.Channel)).Inc()
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	b.log.Debug("Message queued", slog.String("topic", topic), slog.Any("message", msg))
	return nil
}

func (b *Broker) Close() error {
	b.cancel()
	return b.pubSub.Close()
}

// Consumer subscribes to one channel topic and returns a queue.Consumer that
// drains the subscription.
func (b *Broker) Consumer(ch model.Channel, handler queue.Handler) (queue.Consumer, error) {
	topic := queue.Topic(b.topicPrefix, ch)
	msgs, err := b.pubSub.Subscribe(b.ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return &consumer{
		topic:   topic,
		msgs:    msgs,
		handler: handler,
		log:     b.log.With("component", "memory_consumer", "channel", string(ch)),
	}, nil
}

type consumer struct {
	topic   string
	msgs    <-chan *message.Message
	handler queue.Handler
	log     *slog.Logger
}

// Start processes messages one at a time until ctx is done.
func (c *consumer) Start(ctx context.Context) error {
	c.log.Info("Memory consumer started", slog.String("topic", c.topic))

	for {
		select {
		case <-ctx.Done():
			return nil
		case wm, ok := <-c.msgs:
			if !ok {
				return nil
			}
			if !c.process(ctx, wm) {
				return nil
			}
		}
	}
}

// process acks a handled message whatever the handler returns. A message
// interrupted by shutdown is nacked instead and process reports false.
func (c *consumer) process(ctx context.Context, wm *message.Message) bool {
	msgCtx := tracing.ExtractMetadata(ctx, wm.Metadata)
	msg, err := queue.Decode(wm.Payload)
	if err != nil {
		c.log.Error("Failed to decode message", slog.String("uuid", wm.UUID), slog.Any("error", err))
		wm.Ack()
		return true
	}
	if err := c.handler.Handle(msgCtx, msg); err != nil {
		c.log.Debug("Message handled with error", slog.Any("message", msg), slog.Any("error", err))
	}
	if ctx.Err() != nil {
		c.log.Info("Consumer stopped while handling message, leaving it unacked", slog.String("uuid", wm.UUID))
		wm.Nack()
		return false
	}
	wm.Ack()
	return true
}
