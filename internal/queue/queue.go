// Package queue moves notification messages from ingestion to the delivery
// workers. Each channel has its own topic.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samims/notifyhub/internal/model"
)

// Publisher hands a message to the transport. A nil error means the transport
// accepted the message, not that it reached a worker.
type Publisher interface {
	Publish(ctx context.Context, msg *model.QueueMessage) error
	Close() error
}

// Handler processes one delivered message. The transport acknowledges the
// message whatever Handle returns.
type Handler interface {
	Handle(ctx context.Context, msg *model.QueueMessage) error
}

type HandlerFunc func(ctx context.Context, msg *model.QueueMessage) error

func (f HandlerFunc) Handle(ctx context.Context, msg *model.QueueMessage) error {
	return f(ctx, msg)
}

// Consumer runs until ctx is cancelled or the transport fails for good.
type Consumer interface {
	Start(ctx context.Context) error
}

// FailureFunc is called when a message the publisher accepted could not be
// written to the transport.
type FailureFunc func(ctx context.Context, msg *model.QueueMessage, err error)

// Topic returns the topic name for a channel, e.g. "notifyhub.email".
func Topic(prefix string, ch model.Channel) string {
	name := strings.ToLower(strings.ReplaceAll(string(ch), "_", "-"))
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func Encode(msg *model.QueueMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue message: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (*model.QueueMessage, error) {
	var msg model.QueueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode queue message: %w", err)
	}
	return &msg, nil
}
