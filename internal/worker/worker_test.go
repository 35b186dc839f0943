package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/samims/notifyhub/internal/errors"
	"github.com/samims/notifyhub/internal/model"
)

// memLogStore is a versioned in-memory LogStorage. Rows are copied on the way
// in and out, like a database would.
type memLogStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.NotificationLog

	// conflicts makes the next N Update calls fail with a version conflict.
	conflicts atomic.Int32
	// hiddenReads makes the next N FindByID calls report not found.
	hiddenReads atomic.Int32
	updates     atomic.Int32
}

func newMemLogStore(rows ...model.NotificationLog) *memLogStore {
	s := &memLogStore{rows: map[uuid.UUID]model.NotificationLog{}}
	for _, r := range rows {
		s.rows[r.ID] = r
	}
	return s
}

func (s *memLogStore) get(id uuid.UUID) model.NotificationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

func (s *memLogStore) Create(_ context.Context, l *model.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[l.ID] = *l
	return nil
}

func (s *memLogStore) FindByID(_ context.Context, id uuid.UUID) (*model.NotificationLog, error) {
	if s.hiddenReads.Load() > 0 {
		s.hiddenReads.Add(-1)
		return nil, appErr.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return &row, nil
}

func (s *memLogStore) ListByAPIKey(context.Context, uuid.UUID, model.Page) ([]model.NotificationLog, int, error) {
	return nil, 0, nil
}

func (s *memLogStore) ListByBatch(context.Context, uuid.UUID, uuid.UUID, model.Page) ([]model.NotificationLog, int, error) {
	return nil, 0, nil
}

func (s *memLogStore) Update(_ context.Context, l *model.NotificationLog) error {
	s.updates.Add(1)
	if s.conflicts.Load() > 0 {
		s.conflicts.Add(-1)
		return appErr.ErrVersionConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[l.ID]
	if !ok || cur.Version != l.Version {
		return appErr.ErrVersionConflict
	}
	l.Version++
	s.rows[l.ID] = *l
	return nil
}

func (s *memLogStore) ForceFail(_ context.Context, id uuid.UUID, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[id]
	if !ok || cur.Status.Terminal() {
		return false, nil
	}
	cur.Status = model.StatusFailed
	cur.ErrorMessage = reason
	cur.RetryCount++
	cur.Version++
	s.rows[id] = cur
	return true, nil
}

func (s *memLogStore) FailIfPending(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}

func (s *memLogStore) FailStale(context.Context, time.Time, string) (int64, error) { return 0, nil }

func (s *memLogStore) Ping(context.Context) error { return nil }

type fakeSender struct {
	calls atomic.Int32
	delay time.Duration
	err   error
	block bool
}

func (f *fakeSender) Channel() model.Channel { return model.ChannelChatBot }

func (f *fakeSender) Send(ctx context.Context, _ *model.QueueMessage) (string, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return "message_id=7", nil
}

func testConfig() Config {
	return Config{
		LookupAttempts:   3,
		LookupBackoff:    time.Millisecond,
		ConflictAttempts: 3,
		ConflictBackoff:  time.Millisecond,
		DeliveryTimeout:  time.Second,
	}
}

func pendingRow() model.NotificationLog {
	return model.NotificationLog{
		ID:        uuid.New(),
		BatchID:   uuid.New(),
		Channel:   model.ChannelChatBot,
		Type:      model.TypeInfo,
		Status:    model.StatusPending,
		Recipient: "100",
		Message:   "hello",
	}
}

func messageFor(row model.NotificationLog) *model.QueueMessage {
	return &model.QueueMessage{
		LogID:     row.ID,
		BatchID:   row.BatchID,
		Channel:   row.Channel,
		Type:      row.Type,
		Recipient: row.Recipient,
		Message:   row.Message,
		ChatBot:   &model.ChatBotTransport{BotToken: "t"},
	}
}

func TestWorker_Handle_Sent(t *testing.T) {
	row := pendingRow()
	store := newMemLogStore(row)
	sender := &fakeSender{}
	w := New(store, sender, testConfig(), slog.Default())

	require.NoError(t, w.Handle(context.Background(), messageFor(row)))

	got := store.get(row.ID)
	assert.Equal(t, model.StatusSent, got.Status)
	assert.Equal(t, "message_id=7", got.Response)
	require.NotNil(t, got.SentAt)
	assert.Equal(t, int64(2), got.Version, "claim and completion are separate writes")
	assert.Zero(t, got.RetryCount)
	assert.EqualValues(t, 1, sender.calls.Load())
}

func TestWorker_Handle_Failed(t *testing.T) {
	row := pendingRow()
	store := newMemLogStore(row)
	sender := &fakeSender{err: errors.New("bot api: chat not found")}
	w := New(store, sender, testConfig(), slog.Default())

	err := w.Handle(context.Background(), messageFor(row))
	assert.Error(t, err)

	got := store.get(row.ID)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, "bot api: chat not found", got.ErrorMessage)
	assert.Equal(t, 1, got.RetryCount)
	assert.Nil(t, got.SentAt)
}

func TestWorker_Handle_Timeout(t *testing.T) {
	row := pendingRow()
	store := newMemLogStore(row)
	cfg := testConfig()
	cfg.DeliveryTimeout = 20 * time.Millisecond
	w := New(store, &fakeSender{block: true}, cfg, slog.Default())

	_ = w.Handle(context.Background(), messageFor(row))

	got := store.get(row.ID)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Contains(t, got.ErrorMessage, "deadline exceeded")
}

func TestWorker_Handle_LookupRetriesUntilVisible(t *testing.T) {
	row := pendingRow()
	store := newMemLogStore(row)
	store.hiddenReads.Store(2)
	sender := &fakeSender{}
	w := New(store, sender, testConfig(), slog.Default())

	require.NoError(t, w.Handle(context.Background(), messageFor(row)))
	assert.Equal(t, model.StatusSent, store.get(row.ID).Status)
}

func TestWorker_Handle_NotFoundIsDropped(t *testing.T) {
	store := newMemLogStore()
	sender := &fakeSender{}
	w := New(store, sender, testConfig(), slog.Default())

	err := w.Handle(context.Background(), messageFor(pendingRow()))
	require.Error(t, err)
	assert.True(t, appErr.IsNotFound(err))
	assert.Zero(t, sender.calls.Load())
}

func TestWorker_Handle_DuplicateIsSkipped(t *testing.T) {
	for _, status := range []model.Status{model.StatusProcessing, model.StatusSent, model.StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			row := pendingRow()
			row.Status = status
			store := newMemLogStore(row)
			sender := &fakeSender{}
			w := New(store, sender, testConfig(), slog.Default())

			require.NoError(t, w.Handle(context.Background(), messageFor(row)))
			assert.Zero(t, sender.calls.Load())
			assert.Equal(t, status, store.get(row.ID).Status)
		})
	}
}

func TestWorker_Handle_ConflictRetrySucceeds(t *testing.T) {
	row := pendingRow()
	store := newMemLogStore(row)
	store.conflicts.Store(2)
	sender := &fakeSender{}
	w := New(store, sender, testConfig(), slog.Default())

	require.NoError(t, w.Handle(context.Background(), messageFor(row)))
	assert.Equal(t, model.StatusSent, store.get(row.ID).Status)
	assert.EqualValues(t, 4, store.updates.Load())
}

func TestWorker_Handle_ConflictExhaustedForcesFailure(t *testing.T) {
	row := pendingRow()
	store := newMemLogStore(row)
	store.conflicts.Store(3)
	sender := &fakeSender{}
	w := New(store, sender, testConfig(), slog.Default())

	err := w.Handle(context.Background(), messageFor(row))
	require.Error(t, err)

	got := store.get(row.ID)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, "optimistic locking conflict after 3 attempts", got.ErrorMessage)
	assert.Equal(t, 1, got.RetryCount)
	assert.Zero(t, sender.calls.Load(), "claim never succeeded")
}

func TestWorker_Handle_ForceFailKeepsTerminalState(t *testing.T) {
	row := pendingRow()
	row.Status = model.StatusSent
	store := newMemLogStore(row)

	w := New(store, &fakeSender{}, testConfig(), slog.Default())
	require.NoError(t, w.forceFail(context.Background(), messageFor(row), w.logger))
	assert.Equal(t, model.StatusSent, store.get(row.ID).Status)
}

func TestWorker_Handle_ConcurrentDoubleDelivery(t *testing.T) {
	row := pendingRow()
	store := newMemLogStore(row)
	sender := &fakeSender{delay: 10 * time.Millisecond}
	w := New(store, sender, testConfig(), slog.Default())
	msg := messageFor(row)

	const consumers = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_ = w.Handle(context.Background(), msg)
		}()
	}
	close(start)
	wg.Wait()

	got := store.get(row.ID)
	assert.EqualValues(t, 1, sender.calls.Load(), "exactly one consumer may claim the row")
	assert.Equal(t, model.StatusSent, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestWorker_Handle_StaleSweepWinsRace(t *testing.T) {
	row := pendingRow()
	store := newMemLogStore(row)
	sender := &sweepingSender{store: store, id: row.ID}
	w := New(store, sender, testConfig(), slog.Default())

	require.NoError(t, w.Handle(context.Background(), messageFor(row)))

	got := store.get(row.ID)
	assert.Equal(t, model.StatusFailed, got.Status, "a late SENT must not overwrite the sweep")
	assert.Equal(t, "delivery stalled in PROCESSING", got.ErrorMessage)
}

// sweepingSender force-fails the row while the send is in flight.
type sweepingSender struct {
	store *memLogStore
	id    uuid.UUID
}

func (s *sweepingSender) Channel() model.Channel { return model.ChannelEmail }

func (s *sweepingSender) Send(ctx context.Context, _ *model.QueueMessage) (string, error) {
	_, _ = s.store.ForceFail(ctx, s.id, "delivery stalled in PROCESSING")
	return "ok", nil
}
