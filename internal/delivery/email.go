package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/samims/notifyhub/internal/model"
)

type EmailSender struct {
	timeout time.Duration
	logger  *slog.Logger
}

func NewEmailSender(timeout time.Duration, logger *slog.Logger) *EmailSender {
	return &EmailSender{
		timeout: timeout,
		logger:  logger.With("layer", "delivery", "component", "emailSender"),
	}
}

func (s *EmailSender) Channel() model.Channel { return model.ChannelEmail }

// buildMessage assembles the MIME message for one recipient.
func buildMessage(msg *model.QueueMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.Email.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.Recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(EmailSubject(msg))
	m.SetBodyString(mail.TypeTextHTML, EmailHTML(msg))
	return m, nil
}

func clientOptions(tr *model.EmailTransport, timeout time.Duration) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(tr.SMTPPort),
		mail.WithTimeout(timeout),
	}
	switch {
	case tr.UseSSL:
		opts = append(opts, mail.WithSSL())
	case tr.UseTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if tr.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(tr.Username),
			mail.WithPassword(tr.Password),
		)
	}
	return opts
}

func (s *EmailSender) Send(ctx context.Context, msg *model.QueueMessage) (string, error) {
	if msg.Email == nil {
		return "", errors.New("email transport configuration missing from message")
	}

	m, err := buildMessage(msg)
	if err != nil {
		return "", err
	}

	client, err := mail.NewClient(msg.Email.SMTPHost, clientOptions(msg.Email, s.timeout)...)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug("email sent", slog.String("log_id", msg.LogID.String()), slog.String("smtp_host", msg.Email.SMTPHost))
	return fmt.Sprintf("accepted by %s:%d", msg.Email.SMTPHost, msg.Email.SMTPPort), nil
}
