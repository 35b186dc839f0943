package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/metrics"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/queue"
	"github.com/samims/notifyhub/internal/storage"
)

// NotificationService accepts notification requests from client systems and
// serves their delivery logs.
type NotificationService interface {
	Send(ctx context.Context, key *model.APIKey, req model.SendRequest) (*model.SendResponse, error)
	// SendSystem delivers through the transport stored in the system settings.
	SendSystem(ctx context.Context, key *model.APIKey, req model.SystemSendRequest) (*model.SendResponse, error)
	GetMyLogs(ctx context.Context, key *model.APIKey, page model.Page) (*model.PageResult[model.NotificationLog], error)
	GetBatchLogs(ctx context.Context, key *model.APIKey, batchID uuid.UUID, page model.Page) (*model.PageResult[model.NotificationLog], error)
	GetLog(ctx context.Context, key *model.APIKey, logID uuid.UUID) (*model.NotificationLog, error)
}

type notificationService struct {
	logs          storage.LogStorage
	credentials   storage.CredentialStorage
	settings      SettingsService
	publisher     queue.Publisher
	maxRecipients int
	logger        *slog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

func NewNotificationService(
	logs storage.LogStorage,
	credentials storage.CredentialStorage,
	settings SettingsService,
	publisher queue.Publisher,
	maxRecipients int,
	logger *slog.Logger,
) NotificationService {
	return &notificationService{
		logs:          logs,
		credentials:   credentials,
		settings:      settings,
		publisher:     publisher,
		maxRecipients: maxRecipients,
		logger:        logger.With("layer", "service", "component", "notificationService"),
		tracer:        otel.Tracer("notification-service"),
		now:           time.Now,
	}
}

// dispatch is a fully validated fan-out request.
type dispatch struct {
	channel    model.Channel
	typ        model.NotificationType
	subject    string
	message    string
	recipients []string
	chatBot    *model.ChatBotTransport
	email      *model.EmailTransport
}

func (s *notificationService) Send(ctx context.Context, key *model.APIKey, req model.SendRequest) (*model.SendResponse, error) {
	ctx, span := s.tracer.Start(ctx, "Send")
	defer span.End()

	d, err := s.buildDispatch(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.fanOut(ctx, span, key, d)
}

func (s *notificationService) SendSystem(ctx context.Context, key *model.APIKey, req model.SystemSendRequest) (*model.SendResponse, error) {
	ctx, span := s.tracer.Start(ctx, "SendSystem")
	defer span.End()

	channel, typ, err := parseKinds(req.Channel, req.Type)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, appErr.NewValidation("message is required")
	}

	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	d := &dispatch{channel: channel, typ: typ, subject: req.Subject, message: req.Message}
	switch channel {
	case model.ChannelChatBot:
		if !st.ChatBotEnabled {
			return nil, appErr.NewValidation("system chat bot notifications are disabled")
		}
		if !st.ChatBotConfigured() {
			return nil, appErr.NewValidation("system chat bot is not configured")
		}
		d.chatBot = &model.ChatBotTransport{BotToken: st.BotToken}
		d.recipients = cleanRecipients(req.ChatIDs)
	case model.ChannelEmail:
		if !st.EmailEnabled {
			return nil, appErr.NewValidation("system email notifications are disabled")
		}
		if !st.EmailConfigured() {
			return nil, appErr.NewValidation("system email is not configured")
		}
		d.email = st.EmailTransport()
		d.recipients = cleanRecipients(req.EmailRecipients)
	}

	if err := s.checkRecipients(channel, d.recipients); err != nil {
		return nil, err
	}
	return s.fanOut(ctx, span, key, d)
}

func parseKinds(rawChannel, rawType string) (model.Channel, model.NotificationType, error) {
	channel, ok := model.ParseChannel(rawChannel)
	if !ok {
		return "", "", appErr.NewValidation("unsupported channel %q", rawChannel)
	}
	typ, ok := model.ParseNotificationType(rawType)
	if !ok {
		return "", "", appErr.NewValidation("unsupported notification type %q", rawType)
	}
	return channel, typ, nil
}

func (s *notificationService) buildDispatch(req model.SendRequest) (*dispatch, error) {
	channel, typ, err := parseKinds(req.Channel, req.Type)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, appErr.NewValidation("message is required")
	}

	d := &dispatch{channel: channel, typ: typ, subject: req.Subject, message: req.Message}
	switch channel {
	case model.ChannelChatBot:
		if req.ChatBot == nil {
			return nil, appErr.NewValidation("chatBot configuration is required for channel %s", channel)
		}
		if strings.TrimSpace(req.ChatBot.BotToken) == "" {
			return nil, appErr.NewValidation("chatBot.botToken is required")
		}
		d.chatBot = &model.ChatBotTransport{BotToken: strings.TrimSpace(req.ChatBot.BotToken)}
		d.recipients = cleanRecipients(req.ChatBot.ChatIDs)
	case model.ChannelEmail:
		cfg := req.Email
		if cfg == nil {
			return nil, appErr.NewValidation("email configuration is required for channel %s", channel)
		}
		if strings.TrimSpace(cfg.SMTPHost) == "" {
			return nil, appErr.NewValidation("email.smtpHost is required")
		}
		if strings.TrimSpace(cfg.From) == "" {
			return nil, appErr.NewValidation("email.from is required")
		}
		port := cfg.SMTPPort
		if port == 0 {
			port = model.DefaultSMTPPort
		}
		if port < 1 || port > 65535 {
			return nil, appErr.NewValidation("email.smtpPort must be between 1 and 65535")
		}
		useTLS := true
		if cfg.UseTLS != nil {
			useTLS = *cfg.UseTLS
		}
		d.email = &model.EmailTransport{
			From:     strings.TrimSpace(cfg.From),
			SMTPHost: strings.TrimSpace(cfg.SMTPHost),
			SMTPPort: port,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			UseSSL:   cfg.UseSSL,
			UseTLS:   useTLS,
		}
		d.recipients = cleanRecipients(cfg.To)
	}

	if err := s.checkRecipients(channel, d.recipients); err != nil {
		return nil, err
	}
	return d, nil
}

func cleanRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (s *notificationService) checkRecipients(channel model.Channel, recipients []string) error {
	if len(recipients) == 0 {
		return appErr.NewValidation("at least one recipient is required")
	}
	if len(recipients) > s.maxRecipients {
		return appErr.NewValidation("too many recipients: %d (max %d)", len(recipients), s.maxRecipients)
	}
	if channel == model.ChannelEmail {
		for _, r := range recipients {
			if _, err := mail.ParseAddress(r); err != nil {
				return appErr.NewValidation("invalid email recipient %q", r)
			}
		}
	}
	return nil
}

// fanOut persists one PENDING row per recipient, publishes it and counts one
// unit of usage. A failure stops the batch; rows already queued stay queued.
func (s *notificationService) fanOut(ctx context.Context, span trace.Span, key *model.APIKey, d *dispatch) (*model.SendResponse, error) {
	batchID := uuid.New()
	span.SetAttributes(
		attribute.String("notification.batch_id", batchID.String()),
		attribute.String("notification.channel", string(d.channel)),
		attribute.Int("notification.recipients", len(d.recipients)),
	)

	logIDs := make([]uuid.UUID, 0, len(d.recipients))
	for _, recipient := range d.recipients {
		now := s.now().UTC()
		entry := &model.NotificationLog{
			ID:         uuid.New(),
			BatchID:    batchID,
			APIKeyID:   key.ID,
			SystemName: key.SystemName,
			Channel:    d.channel,
			Type:       d.typ,
			Status:     model.StatusPending,
			Recipient:  recipient,
			Subject:    d.subject,
			Message:    d.message,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.logs.Create(ctx, entry); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("failed to persist notification log",
				slog.String("batch_id", batchID.String()), slog.Any("error", err))
			return nil, appErr.NewInternal("failed to persist notification: %v", err)
		}

		msg := &model.QueueMessage{
			LogID:      entry.ID,
			BatchID:    batchID,
			SystemName: key.SystemName,
			Channel:    d.channel,
			Type:       d.typ,
			Recipient:  recipient,
			Subject:    d.subject,
			Message:    d.message,
			ChatBot:    d.chatBot,
			Email:      d.email,
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.PublishFailures.WithLabelValues(string(d.channel)).Inc()
			s.logger.Error("failed to publish notification", slog.Any("message", msg), slog.Any("error", err))
			// the request context may be the reason publishing failed
			if _, ferr := s.logs.FailIfPending(context.WithoutCancel(ctx), entry.ID, "queue publish failed: "+err.Error()); ferr != nil {
				s.logger.Error("failed to mark unpublished log", slog.String("log_id", entry.ID.String()), slog.Any("error", ferr))
			}
			return nil, appErr.NewInternal("failed to queue notification: %v", err)
		}

		if err := s.credentials.IncrementUsage(ctx, key.ID, 1); err != nil {
			// the message is already queued, so the request still succeeds
			s.logger.Error("failed to increment usage",
				slog.String("system", key.SystemName), slog.Any("error", err))
		}
		logIDs = append(logIDs, entry.ID)
	}

	metrics.NotificationsQueued.WithLabelValues(string(d.channel)).Add(float64(len(logIDs)))
	s.logger.Info("notification batch queued",
		slog.String("batch_id", batchID.String()),
		slog.String("system", key.SystemName),
		slog.String("channel", string(d.channel)),
		slog.Int("recipients", len(logIDs)))

	return &model.SendResponse{
		BatchID:         batchID,
		LogIDs:          logIDs,
		Channel:         d.channel,
		Status:          model.StatusPending,
		TotalRecipients: len(logIDs),
	}, nil
}

func (s *notificationService) GetMyLogs(ctx context.Context, key *model.APIKey, page model.Page) (*model.PageResult[model.NotificationLog], error) {
	items, total, err := s.logs.ListByAPIKey(ctx, key.ID, page)
	if err != nil {
		s.logger.Error("failed to list logs", slog.String("system", key.SystemName), slog.Any("error", err))
		return nil, appErr.NewInternal("failed to list notification logs: %v", err)
	}
	return model.NewPageResult(items, page, total), nil
}

func (s *notificationService) GetBatchLogs(ctx context.Context, key *model.APIKey, batchID uuid.UUID, page model.Page) (*model.PageResult[model.NotificationLog], error) {
	items, total, err := s.logs.ListByBatch(ctx, key.ID, batchID, page)
	if err != nil {
		s.logger.Error("failed to list batch logs", slog.String("batch_id", batchID.String()), slog.Any("error", err))
		return nil, appErr.NewInternal("failed to list batch logs: %v", err)
	}
	return model.NewPageResult(items, page, total), nil
}

// GetLog hides rows owned by other keys behind a not-found error.
func (s *notificationService) GetLog(ctx context.Context, key *model.APIKey, logID uuid.UUID) (*model.NotificationLog, error) {
	entry, err := s.logs.FindByID(ctx, logID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, appErr.NewNotFound("notification log %s not found", logID)
		}
		s.logger.Error("failed to get log", slog.String("log_id", logID.String()), slog.Any("error", err))
		return nil, appErr.NewInternal("failed to get notification log: %v", err)
	}
	if entry.APIKeyID != key.ID {
		s.logger.Warn("log access denied",
			slog.String("log_id", logID.String()),
			slog.String("requested_by", key.SystemName))
		return nil, appErr.NewNotFound("notification log %s not found", logID)
	}
	return entry, nil
}
