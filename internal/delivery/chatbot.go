package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/samims/notifyhub/internal/model"
)

// chatRecipient accepts numeric ids and @channel names alike.
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

// ChatBotSender posts messages through the Telegram bot API. The token comes
// with each message, so a bot handle is built per send without a getMe call.
type ChatBotSender struct {
	apiURL  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewChatBotSender(apiURL string, timeout time.Duration, ratePerSec float64, logger *slog.Logger) *ChatBotSender {
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &ChatBotSender{
		apiURL:  apiURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		logger:  logger.With("layer", "delivery", "component", "chatBotSender"),
	}
}

func (s *ChatBotSender) Channel() model.Channel { return model.ChannelChatBot }

func (s *ChatBotSender) Send(ctx context.Context, msg *model.QueueMessage) (string, error) {
	if msg.ChatBot == nil || msg.ChatBot.BotToken == "" {
		return "", errors.New("chat bot token missing from message")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	bot, err := tele.NewBot(tele.Settings{
		URL:     s.apiURL,
		Token:   msg.ChatBot.BotToken,
		Client:  s.client,
		Offline: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create bot client: %w", err)
	}

	sent, err := bot.Send(chatRecipient(msg.Recipient), ChatText(msg), &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return "", fmt.Errorf("bot api: %w", err)
	}

	s.logger.Debug("chat message sent", slog.String("log_id", msg.LogID.String()), slog.Int("message_id", sent.ID))
	return fmt.Sprintf("message_id=%d", sent.ID), nil
}
