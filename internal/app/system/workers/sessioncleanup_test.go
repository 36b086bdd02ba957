package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeCloser struct {
	mu    sync.Mutex
	calls []time.Duration
	n     int64
	err   error
}

func (f *fakeCloser) CloseStale(_ context.Context, d time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, d)
	return f.n, f.err
}

func (f *fakeCloser) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRunOnce_UsesCurrentThresholdPlusGrace(t *testing.T) {
	fc := &fakeCloser{n: 2}
	threshold := 30 * time.Minute
	w := NewSessionCleanup(fc, zap.NewNop(), time.Minute, func() time.Duration { return threshold }, 5*time.Minute)

	if n := w.RunOnce(); n != 2 {
		t.Errorf("expected 2 closed, got %d", n)
	}
	threshold = 15 * time.Minute
	w.RunOnce()

	if fc.calls[0] != 35*time.Minute || fc.calls[1] != 20*time.Minute {
		t.Errorf("expected limits 35m then 20m, got %v", fc.calls)
	}
}

func TestRunOnce_ErrorIsLoggedNotReturned(t *testing.T) {
	fc := &fakeCloser{err: errors.New("mongo down")}
	w := NewSessionCleanup(fc, zap.NewNop(), time.Minute, func() time.Duration { return time.Minute }, 0)

	if n := w.RunOnce(); n != 0 {
		t.Errorf("expected 0 on error, got %d", n)
	}
}

func TestStartStop(t *testing.T) {
	fc := &fakeCloser{}
	w := NewSessionCleanup(fc, zap.NewNop(), 10*time.Millisecond, func() time.Duration { return time.Minute }, 0)

	w.Start()
	deadline := time.Now().Add(2 * time.Second)
	for fc.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if fc.callCount() == 0 {
		t.Error("expected at least one cleanup pass")
	}
}
