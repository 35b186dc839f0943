package model

import (
	"log/slog"

	"github.com/google/uuid"
)

// QueueMessage travels from ingestion to a delivery worker. It carries a
// snapshot of the transport credentials so workers never read settings.
type QueueMessage struct {
	LogID      uuid.UUID         `json:"logId"`
	BatchID    uuid.UUID         `json:"batchId"`
	SystemName string            `json:"systemName"`
	Channel    Channel           `json:"channel"`
	Type       NotificationType  `json:"type"`
	Recipient  string            `json:"recipient"`
	Subject    string            `json:"subject"`
	Message    string            `json:"message"`
	RetryCount int               `json:"retryCount"`
	ChatBot    *ChatBotTransport `json:"chatBot,omitempty"`
	Email      *EmailTransport   `json:"email,omitempty"`
}

type ChatBotTransport struct {
	BotToken string `json:"botToken"`
}

type EmailTransport struct {
	From     string `json:"from"`
	SMTPHost string `json:"smtpHost"`
	SMTPPort int    `json:"smtpPort"`
	Username string `json:"username"`
	Password string `json:"password"`
	UseSSL   bool   `json:"useSSL"`
	UseTLS   bool   `json:"useTLS"`
}

// LogValue keeps credentials out of log output.
func (m *QueueMessage) LogValue() slog.Value {
	if m == nil {
		return slog.StringValue("<nil>")
	}
	attrs := []slog.Attr{
		slog.String("log_id", m.LogID.String()),
		slog.String("batch_id", m.BatchID.String()),
		slog.String("system", m.SystemName),
		slog.String("channel", string(m.Channel)),
		slog.String("type", string(m.Type)),
		slog.String("recipient", m.Recipient),
	}
	if m.Email != nil {
		attrs = append(attrs,
			slog.String("smtp_host", m.Email.SMTPHost),
			slog.Int("smtp_port", m.Email.SMTPPort),
			slog.String("smtp_password", redact(m.Email.Password)),
		)
	}
	if m.ChatBot != nil {
		attrs = append(attrs, slog.String("bot_token", redact(m.ChatBot.BotToken)))
	}
	return slog.GroupValue(attrs...)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "[REDACTED]"
}

// KeyPrefix returns a short, log-safe form of an API key.
func KeyPrefix(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "..."
}
