package configwatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.uber.org/zap"
)

type fakeLoader struct {
	mu  sync.Mutex
	cfg models.AppConfig
	err error
}

func (f *fakeLoader) Get(context.Context) (models.AppConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg, f.err
}

func (f *fakeLoader) set(cfg models.AppConfig, err error) {
	f.mu.Lock()
	f.cfg, f.err = cfg, err
	f.mu.Unlock()
}

func recv(t *testing.T, ch <-chan time.Duration) time.Duration {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("expected a threshold update")
		return 0
	}
}

func TestNew_SeededWithDefaults(t *testing.T) {
	w := New(&fakeLoader{}, nil, 0, zap.NewNop())

	if w.Current().AppName != models.DefaultAppName {
		t.Errorf("expected default app name, got %q", w.Current().AppName)
	}
	if w.pollEvery != DefaultPollInterval {
		t.Errorf("expected default poll interval, got %v", w.pollEvery)
	}
}

func TestApply_ForwardsOnlyChanges(t *testing.T) {
	w := New(&fakeLoader{}, nil, time.Minute, zap.NewNop())

	w.Apply(models.AppConfig{AppName: "A", SessionTimeout: 30})
	if d := recv(t, w.Thresholds()); d != 30*time.Minute {
		t.Errorf("expected first value 30m to be forwarded, got %v", d)
	}

	w.Apply(models.AppConfig{AppName: "B", SessionTimeout: 30})
	select {
	case d := <-w.Thresholds():
		t.Errorf("expected unchanged timeout not to be forwarded, got %v", d)
	default:
	}
	if w.Current().AppName != "B" {
		t.Errorf("expected branding to update, got %q", w.Current().AppName)
	}

	w.Apply(models.AppConfig{SessionTimeout: 60})
	if d := recv(t, w.Thresholds()); d != time.Hour {
		t.Errorf("expected 1h, got %v", d)
	}
}

func TestApply_KeepsLatestUndelivered(t *testing.T) {
	w := New(&fakeLoader{}, nil, time.Minute, zap.NewNop())

	w.Apply(models.AppConfig{SessionTimeout: 15})
	w.Apply(models.AppConfig{SessionTimeout: 60})
	w.Apply(models.AppConfig{SessionTimeout: 120})

	if d := recv(t, w.Thresholds()); d != 2*time.Hour {
		t.Errorf("expected latest value 2h, got %v", d)
	}
}

func TestReload_KeepsLastKnownOnError(t *testing.T) {
	loader := &fakeLoader{cfg: models.AppConfig{AppName: "Pilot", SessionTimeout: 15}}
	w := New(loader, nil, time.Minute, zap.NewNop())

	if err := w.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	loader.set(models.AppConfig{}, errors.New("mongo down"))
	if err := w.Reload(context.Background()); err == nil {
		t.Error("expected reload error")
	}

	if w.Current().AppName != "Pilot" || w.Current().Timeout() != 15*time.Minute {
		t.Errorf("expected last known config to stay, got %+v", w.Current())
	}
}

func TestRun_PollsForChanges(t *testing.T) {
	loader := &fakeLoader{cfg: models.AppConfig{SessionTimeout: 30}}
	w := New(loader, nil, 20*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	if d := recv(t, w.Thresholds()); d != 30*time.Minute {
		t.Errorf("expected initial 30m, got %v", d)
	}
	loader.set(models.AppConfig{SessionTimeout: 60}, nil)
	if d := recv(t, w.Thresholds()); d != time.Hour {
		t.Errorf("expected polled 1h, got %v", d)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to stop after cancel")
	}
}

func TestNotify_AppliesWithoutRedis(t *testing.T) {
	w := New(&fakeLoader{}, nil, time.Minute, zap.NewNop())

	w.Notify(context.Background(), models.AppConfig{AppName: "Saved", SessionTimeout: 120})

	if w.Current().AppName != "Saved" {
		t.Errorf("expected saved config applied, got %q", w.Current().AppName)
	}
	if d := recv(t, w.Thresholds()); d != 2*time.Hour {
		t.Errorf("expected 2h, got %v", d)
	}
}
