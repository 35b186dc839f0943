package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/model"
	"github.com/samims/notifyhub/internal/storage"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*model.QueueMessage
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, msg *model.QueueMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type stubSettings struct {
	st  *model.SystemSettings
	err error
}

func (s stubSettings) Get(context.Context) (*model.SystemSettings, error) { return s.st, s.err }

func (s stubSettings) Update(context.Context, model.UpdateSettingsRequest) (*model.SystemSettings, error) {
	return s.st, s.err
}

func testKey() *model.APIKey {
	return &model.APIKey{ID: uuid.New(), SystemName: "billing", Active: true, NeverExpires: true}
}

func newTestNotificationService(
	logs storage.LogStorage,
	creds storage.CredentialStorage,
	settings SettingsService,
	pub *fakePublisher,
) NotificationService {
	return NewNotificationService(logs, creds, settings, pub, 100, slog.Default())
}

func Test_notificationService_Send_FanOut(t *testing.T) {
	key := testKey()
	logs := storage.NewMockLogStorage(t)
	creds := storage.NewMockCredentialStorage(t)
	pub := &fakePublisher{}

	var created []*model.NotificationLog
	logs.On("Create", mock.Anything, mock.AnythingOfType("*model.NotificationLog")).
		Run(func(args mock.Arguments) {
			created = append(created, args.Get(1).(*model.NotificationLog))
		}).
		Return(nil).Times(3)
	creds.On("IncrementUsage", mock.Anything, key.ID, 1).Return(nil).Times(3)

	svc := newTestNotificationService(logs, creds, stubSettings{}, pub)
	res, err := svc.Send(context.Background(), key, model.SendRequest{
		Channel: "CHAT_BOT",
		Type:    "ALERT",
		Subject: "Disk usage",
		Message: "disk at 91%",
		ChatBot: &model.ChatBotConfig{BotToken: "123:abc", ChatIDs: []string{"100", " 200 ", "300"}},
	})
	require.NoError(t, err)

	assert.Equal(t, model.ChannelChatBot, res.Channel)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, 3, res.TotalRecipients)
	require.Len(t, res.LogIDs, 3)
	require.Len(t, created, 3)
	require.Len(t, pub.msgs, 3)

	for i, l := range created {
		assert.Equal(t, res.BatchID, l.BatchID)
		assert.Equal(t, model.StatusPending, l.Status)
		assert.Equal(t, key.ID, l.APIKeyID)
		assert.Equal(t, res.LogIDs[i], l.ID)
		assert.Equal(t, l.ID, pub.msgs[i].LogID)
		assert.Equal(t, res.BatchID, pub.msgs[i].BatchID)
		assert.Equal(t, "123:abc", pub.msgs[i].ChatBot.BotToken)
	}
	assert.Equal(t, []string{"100", "200", "300"},
		[]string{pub.msgs[0].Recipient, pub.msgs[1].Recipient, pub.msgs[2].Recipient})
}

func Test_notificationService_Send_EmailDefaults(t *testing.T) {
	key := testKey()
	logs := storage.NewMockLogStorage(t)
	creds := storage.NewMockCredentialStorage(t)
	pub := &fakePublisher{}

	logs.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	creds.On("IncrementUsage", mock.Anything, key.ID, 1).Return(nil).Once()

	svc := newTestNotificationService(logs, creds, stubSettings{}, pub)
	_, err := svc.Send(context.Background(), key, model.SendRequest{
		Channel: "EMAIL",
		Type:    "info",
		Subject: "Invoice",
		Message: "Your invoice is ready",
		Email:   &model.EmailConfig{From: "noreply@example.com", To: []string{"a@example.com"}, SMTPHost: "smtp.example.com"},
	})
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)

	tr := pub.msgs[0].Email
	assert.Equal(t, 587, tr.SMTPPort)
	assert.True(t, tr.UseTLS)
	assert.False(t, tr.UseSSL)
	assert.Equal(t, model.TypeInfo, pub.msgs[0].Type)
}

func Test_notificationService_Send_ValidationHasNoSideEffects(t *testing.T) {
	tooMany := make([]string, 101)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("%d", i+1)
	}
	bot := func(ids ...string) *model.ChatBotConfig { return &model.ChatBotConfig{BotToken: "t", ChatIDs: ids} }

	tests := []struct {
		name string
		req  model.SendRequest
	}{
		{"unknown channel", model.SendRequest{Channel: "SMS", Type: "INFO", Message: "m"}},
		{"unknown type", model.SendRequest{Channel: "CHAT_BOT", Type: "DEBUG", Message: "m", ChatBot: bot("1")}},
		{"empty message", model.SendRequest{Channel: "CHAT_BOT", Type: "INFO", Message: "  ", ChatBot: bot("1")}},
		{"missing chat bot config", model.SendRequest{Channel: "CHAT_BOT", Type: "INFO", Message: "m"}},
		{"missing bot token", model.SendRequest{Channel: "CHAT_BOT", Type: "INFO", Message: "m",
			ChatBot: &model.ChatBotConfig{ChatIDs: []string{"1"}}}},
		{"no recipients", model.SendRequest{Channel: "CHAT_BOT", Type: "INFO", Message: "m", ChatBot: bot(" ")}},
		{"too many recipients", model.SendRequest{Channel: "CHAT_BOT", Type: "INFO", Message: "m", ChatBot: bot(tooMany...)}},
		{"missing email config", model.SendRequest{Channel: "EMAIL", Type: "INFO", Message: "m"}},
		{"missing smtp host", model.SendRequest{Channel: "EMAIL", Type: "INFO", Message: "m",
			Email: &model.EmailConfig{From: "a@example.com", To: []string{"b@example.com"}}}},
		{"missing from", model.SendRequest{Channel: "EMAIL", Type: "INFO", Message: "m",
			Email: &model.EmailConfig{SMTPHost: "smtp", To: []string{"b@example.com"}}}},
		{"invalid email recipient", model.SendRequest{Channel: "EMAIL", Type: "INFO", Message: "m",
			Email: &model.EmailConfig{From: "a@example.com", SMTPHost: "smtp", To: []string{"not-an-address"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// mocks without expectations fail the test on any call
			logs := storage.NewMockLogStorage(t)
			creds := storage.NewMockCredentialStorage(t)
			pub := &fakePublisher{}

			svc := newTestNotificationService(logs, creds, stubSettings{}, pub)
			res, err := svc.Send(context.Background(), testKey(), tt.req)

			assert.Nil(t, res)
			assert.True(t, appErr.IsValidation(err), "want validation error, got %v", err)
			assert.Empty(t, pub.msgs)
		})
	}
}

func Test_notificationService_Send_PublishFailureMarksRowFailed(t *testing.T) {
	key := testKey()
	logs := storage.NewMockLogStorage(t)
	creds := storage.NewMockCredentialStorage(t)
	pub := &fakePublisher{err: errors.New("broker unavailable")}

	var logID uuid.UUID
	logs.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { logID = args.Get(1).(*model.NotificationLog).ID }).
		Return(nil).Once()
	logs.On("FailIfPending", mock.Anything, mock.AnythingOfType("uuid.UUID"), "queue publish failed: broker unavailable").
		Run(func(args mock.Arguments) { assert.Equal(t, logID, args.Get(1).(uuid.UUID)) }).
		Return(true, nil).Once()

	svc := newTestNotificationService(logs, creds, stubSettings{}, pub)
	_, err := svc.Send(context.Background(), key, model.SendRequest{
		Channel: "CHAT_BOT", Type: "ERROR", Message: "m",
		ChatBot: &model.ChatBotConfig{BotToken: "t", ChatIDs: []string{"1", "2"}},
	})

	require.Error(t, err)
	assert.True(t, appErr.IsInternal(err))
	creds.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything, mock.Anything)
}

func Test_notificationService_SendSystem(t *testing.T) {
	configured := &model.SystemSettings{
		ChatBotEnabled: true, BotToken: "sys-token",
		EmailEnabled: false, EmailFrom: "ops@example.com", SMTPHost: "smtp", SMTPPort: 587,
	}

	t.Run("uses stored bot token", func(t *testing.T) {
		key := testKey()
		logs := storage.NewMockLogStorage(t)
		creds := storage.NewMockCredentialStorage(t)
		pub := &fakePublisher{}
		logs.On("Create", mock.Anything, mock.Anything).Return(nil).Twice()
		creds.On("IncrementUsage", mock.Anything, key.ID, 1).Return(nil).Twice()

		svc := newTestNotificationService(logs, creds, stubSettings{st: configured}, pub)
		res, err := svc.SendSystem(context.Background(), key, model.SystemSendRequest{
			Channel: "CHAT_BOT", Type: "SUCCESS", Message: "deploy finished", ChatIDs: []string{"1", "2"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, res.TotalRecipients)
		assert.Equal(t, "sys-token", pub.msgs[0].ChatBot.BotToken)
	})

	t.Run("disabled channel is rejected", func(t *testing.T) {
		svc := newTestNotificationService(storage.NewMockLogStorage(t), storage.NewMockCredentialStorage(t),
			stubSettings{st: configured}, &fakePublisher{})
		_, err := svc.SendSystem(context.Background(), testKey(), model.SystemSendRequest{
			Channel: "EMAIL", Type: "INFO", Message: "m", EmailRecipients: []string{"a@example.com"},
		})
		assert.True(t, appErr.IsValidation(err))
	})

	t.Run("enabled but unconfigured is rejected", func(t *testing.T) {
		st := &model.SystemSettings{ChatBotEnabled: true}
		svc := newTestNotificationService(storage.NewMockLogStorage(t), storage.NewMockCredentialStorage(t),
			stubSettings{st: st}, &fakePublisher{})
		_, err := svc.SendSystem(context.Background(), testKey(), model.SystemSendRequest{
			Channel: "CHAT_BOT", Type: "INFO", Message: "m", ChatIDs: []string{"1"},
		})
		assert.True(t, appErr.IsValidation(err))
	})
}

func Test_notificationService_GetLog(t *testing.T) {
	key := testKey()
	own := &model.NotificationLog{ID: uuid.New(), APIKeyID: key.ID}
	foreign := &model.NotificationLog{ID: uuid.New(), APIKeyID: uuid.New()}
	missing := uuid.New()

	logs := storage.NewMockLogStorage(t)
	logs.On("FindByID", mock.Anything, own.ID).Return(own, nil)
	logs.On("FindByID", mock.Anything, foreign.ID).Return(foreign, nil)
	logs.On("FindByID", mock.Anything, missing).Return(nil, appErr.ErrNotFound)

	svc := newTestNotificationService(logs, storage.NewMockCredentialStorage(t), stubSettings{}, &fakePublisher{})

	got, err := svc.GetLog(context.Background(), key, own.ID)
	require.NoError(t, err)
	assert.Equal(t, own, got)

	_, err = svc.GetLog(context.Background(), key, foreign.ID)
	assert.True(t, appErr.IsNotFound(err))

	_, err = svc.GetLog(context.Background(), key, missing)
	assert.True(t, appErr.IsNotFound(err))
}

func Test_notificationService_GetMyLogs(t *testing.T) {
	key := testKey()
	page := model.NewPage(2, 10)
	logs := storage.NewMockLogStorage(t)
	logs.On("ListByAPIKey", mock.Anything, key.ID, page).
		Return([]model.NotificationLog{{ID: uuid.New()}}, 11, nil)

	svc := newTestNotificationService(logs, storage.NewMockCredentialStorage(t), stubSettings{}, &fakePublisher{})
	res, err := svc.GetMyLogs(context.Background(), key, page)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Items, 1)
}
