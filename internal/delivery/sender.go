// Package delivery talks to the external transports: SMTP servers and the
// chat-bot HTTP API.
package delivery

import (
	"context"

	"github.com/samims/notifyhub/internal/model"
)

// Sender performs exactly one delivery attempt for a queue message and
// returns a short transport response to store on the log row.
type Sender interface {
	Channel() model.Channel
	Send(ctx context.Context, msg *model.QueueMessage) (string, error)
}
