// Package configwatch keeps a live copy of the app_config "general"
// document and streams session-timeout changes to the watchdog.
//
// Changes saved from the settings page are applied locally at once and
// announced on a Redis channel so other instances reload. Without Redis,
// or if a message is missed, a poll loop picks the change up.
package configwatch

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/mansahub/internal/app/system/kv"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/domain/models"
	"go.uber.org/zap"
)

// Channel is the Redis pub/sub channel announcing config saves.
const Channel = "mansahub:app_config"

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = time.Minute

// Loader reads the current config document.
type Loader interface {
	Get(ctx context.Context) (models.AppConfig, error)
}

// Watcher holds the last known config.
type Watcher struct {
	loader    Loader
	redis     *kv.Clients
	log       *zap.Logger
	pollEvery time.Duration

	current atomic.Pointer[models.AppConfig]
	primed  atomic.Bool

	sendMu     sync.Mutex
	thresholds chan time.Duration
}

// New creates a Watcher seeded with the defaults. A nil redis polls only.
func New(loader Loader, redis *kv.Clients, pollEvery time.Duration, log *zap.Logger) *Watcher {
	if pollEvery <= 0 {
		pollEvery = DefaultPollInterval
	}
	w := &Watcher{
		loader:     loader,
		redis:      redis,
		log:        log,
		pollEvery:  pollEvery,
		thresholds: make(chan time.Duration, 1),
	}
	def := models.DefaultAppConfig()
	w.current.Store(&def)
	return w
}

// Current returns the last known config.
func (w *Watcher) Current() models.AppConfig {
	return *w.current.Load()
}

// Thresholds delivers the session timeout whenever it changes. Only the
// latest undelivered value is kept.
func (w *Watcher) Thresholds() <-chan time.Duration {
	return w.thresholds
}

// Apply installs cfg as current and forwards its timeout if it changed.
func (w *Watcher) Apply(cfg models.AppConfig) {
	prev := w.current.Swap(&cfg)
	if w.primed.Swap(true) && prev.Timeout() == cfg.Timeout() {
		return
	}
	w.sendThreshold(cfg.Timeout())
}

// Notify applies a config just saved by this instance and announces it.
func (w *Watcher) Notify(ctx context.Context, cfg models.AppConfig) {
	w.Apply(cfg)
	if err := w.redis.Publish(ctx, Channel, strconv.Itoa(int(cfg.SessionTimeout))); err != nil {
		w.log.Warn("config change publish failed", zap.Error(err))
	}
}

// Reload reads the config document and applies it. On error the last
// known config stays in force.
func (w *Watcher) Reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	cfg, err := w.loader.Get(ctx)
	if err != nil {
		return err
	}
	w.Apply(cfg)
	return nil
}

// Run loads the config, then follows changes until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	if err := w.Reload(ctx); err != nil {
		w.log.Warn("initial app config load failed, using last known values", zap.Error(err))
	}

	var msgs <-chan string
	if ps := w.redis.Subscribe(ctx, Channel); ps != nil {
		defer ps.Close()
		ch := make(chan string)
		go func() {
			defer close(ch)
			for m := range ps.Channel() {
				select {
				case ch <- m.Payload:
				case <-ctx.Done():
					return
				}
			}
		}()
		msgs = ch
		w.log.Info("config watcher subscribed", zap.String("channel", Channel))
	}

	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("config watcher stopped")
			return
		case _, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			if err := w.Reload(ctx); err != nil {
				w.log.Warn("app config reload failed", zap.Error(err))
			}
		case <-ticker.C:
			if err := w.Reload(ctx); err != nil {
				w.log.Warn("app config poll failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) sendThreshold(d time.Duration) {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	select {
	case <-w.thresholds:
	default:
	}
	w.thresholds <- d
}
