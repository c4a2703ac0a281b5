package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"reconciliation-service/internal/models"
	"reconciliation-service/internal/redisclient"
	"reconciliation-service/internal/service"
	"reconciliation-service/internal/store"

	"github.com/stretchr/testify/assert"
)

type fakeReplayer struct {
	calls  []string
	result *service.Result
	err    error
}

func (f *fakeReplayer) Replay(_ context.Context, id string) (*service.Result, error) {
	f.calls = append(f.calls, id)
	return f.result, f.err
}

type fakeLocker struct {
	held     map[string]bool
	released int
}

func (l *fakeLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (*redisclient.Lock, error) {
	if l.held[key] {
		return nil, nil
	}
	l.held[key] = true
	return &redisclient.Lock{}, nil
}

func (l *fakeLocker) ReleaseLock(context.Context, *redisclient.Lock) error {
	l.released++
	return nil
}

func TestHandleReplayRequested(t *testing.T) {
	replayer := &fakeReplayer{result: &service.Result{Outcome: service.OutcomeApplied, OrderID: "O1"}}
	locker := &fakeLocker{held: map[string]bool{}}
	w := NewReplayWorker(nil, replayer, locker)

	err := w.HandleReplayRequested(context.Background(), &models.ReplayRequestedEvent{AnomalyID: "A1"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"A1"}, replayer.calls)
	assert.Equal(t, 1, locker.released)
}

func TestHandleReplaySkipsWhenLocked(t *testing.T) {
	replayer := &fakeReplayer{}
	locker := &fakeLocker{held: map[string]bool{"replay:A1": true}}
	w := NewReplayWorker(nil, replayer, locker)

	err := w.HandleReplayRequested(context.Background(), &models.ReplayRequestedEvent{AnomalyID: "A1"})
	assert.NoError(t, err)
	assert.Empty(t, replayer.calls)
}

func TestHandleReplayErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"missing anomaly is dropped", store.ErrAnomalyNotFound, false},
		{"no stored body is dropped", service.ErrNoReplayBody, false},
		{"transient failure is retried", errors.New("db down"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewReplayWorker(nil, &fakeReplayer{err: tt.err}, nil)
			err := w.HandleReplayRequested(context.Background(), &models.ReplayRequestedEvent{AnomalyID: "A1"})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
