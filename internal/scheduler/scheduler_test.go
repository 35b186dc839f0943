package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/samims/notifyhub/internal/service"
	"github.com/samims/notifyhub/internal/storage"
)

type stubAPIKeys struct {
	service.APIKeyService
	resets int
	calls  int
	err    error
}

func (s *stubAPIKeys) ResetDueUsage(context.Context) (int, error) {
	s.calls++
	return s.resets, s.err
}

type stubLocker struct {
	grant    bool
	err      error
	released []string
}

func (l *stubLocker) Acquire(context.Context, string, time.Duration) (bool, error) {
	return l.grant, l.err
}

func (l *stubLocker) Release(_ context.Context, name string) error {
	l.released = append(l.released, name)
	return nil
}

func TestScheduler_SweepStale(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		after   time.Duration
		setup   func(m *storage.MockLogStorage)
		wantErr bool
	}{
		{
			name:  "fails rows older than the cutoff",
			after: 15 * time.Minute,
			setup: func(m *storage.MockLogStorage) {
				m.On("FailStale", mock.Anything, now.Add(-15*time.Minute), "delivery stalled in PROCESSING").
					Return(int64(2), nil).Once()
			},
		},
		{
			name:  "store error",
			after: time.Minute,
			setup: func(m *storage.MockLogStorage) {
				m.On("FailStale", mock.Anything, mock.Anything, mock.Anything).
					Return(int64(0), errors.New("db down")).Once()
			},
			wantErr: true,
		},
		{
			name:  "disabled",
			after: 0,
			setup: func(*storage.MockLogStorage) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := storage.NewMockLogStorage(t)
			tt.setup(logs)

			s := New(Config{StaleProcessingAfter: tt.after}, &stubAPIKeys{}, logs, nil, slog.Default())
			s.now = func() time.Time { return now }

			err := s.SweepStale(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestScheduler_ResetUsage(t *testing.T) {
	keys := &stubAPIKeys{resets: 3}
	s := New(Config{}, keys, storage.NewMockLogStorage(t), nil, slog.Default())

	require.NoError(t, s.ResetUsage(context.Background()))
	assert.Equal(t, 1, keys.calls)

	keys.err = errors.New("boom")
	assert.Error(t, s.ResetUsage(context.Background()))
}

func TestScheduler_RunLocked(t *testing.T) {
	tests := []struct {
		name        string
		locker      *stubLocker
		wantRun     bool
		wantRelease bool
	}{
		{name: "lock granted", locker: &stubLocker{grant: true}, wantRun: true, wantRelease: true},
		{name: "held elsewhere", locker: &stubLocker{grant: false}},
		{name: "lock error", locker: &stubLocker{err: errors.New("redis down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{}, &stubAPIKeys{}, storage.NewMockLogStorage(t), tt.locker, slog.Default())

			ran := false
			s.runLocked(context.Background(), "job", func(context.Context) error {
				ran = true
				return nil
			})

			assert.Equal(t, tt.wantRun, ran)
			if tt.wantRelease {
				assert.Equal(t, []string{"job"}, tt.locker.released)
			} else {
				assert.Empty(t, tt.locker.released)
			}
		})
	}
}

func TestScheduler_StartRejectsBadSchedule(t *testing.T) {
	s := New(Config{UsageResetSchedule: "not a cron"}, &stubAPIKeys{}, storage.NewMockLogStorage(t), nil, slog.Default())
	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestScheduler_StartStopsOnCancel(t *testing.T) {
	s := New(Config{
		UsageResetSchedule: "0 0 * * *",
		StaleSweepSchedule: "*/5 * * * *",
	}, &stubAPIKeys{}, storage.NewMockLogStorage(t), nil, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
