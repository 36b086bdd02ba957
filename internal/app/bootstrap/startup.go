// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/mansahub/internal/app/resources"
	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	appconfigstore "github.com/dalemusser/mansahub/internal/app/store/appconfig"
	"github.com/dalemusser/mansahub/internal/app/store/audit"
	"github.com/dalemusser/mansahub/internal/app/store/oauthstate"
	"github.com/dalemusser/mansahub/internal/app/store/sessions"
	"github.com/dalemusser/mansahub/internal/app/system/auditlog"
	"github.com/dalemusser/mansahub/internal/app/system/authutil"
	"github.com/dalemusser/mansahub/internal/app/system/configwatch"
	"github.com/dalemusser/mansahub/internal/app/system/ratelimit"
	"github.com/dalemusser/mansahub/internal/app/system/tasks"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"github.com/dalemusser/mansahub/internal/app/system/timezones"
	"github.com/dalemusser/mansahub/internal/app/system/viewdata"
	"github.com/dalemusser/mansahub/internal/app/system/watchdog"
	"github.com/dalemusser/mansahub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// cleanupGrace is added to the idle timeout before the cleanup worker
// closes a session, so the watchdog normally closes it first.
const cleanupGrace = 2 * time.Minute

// services are the long-lived pieces built in Startup, wired into routes
// by BuildHandler and stopped by Shutdown.
type services struct {
	loc      *time.Location
	audit    *auditlog.Logger
	sessions *sessions.Store
	watcher  *configwatch.Watcher
	watchdog *watchdog.Watchdog
	limiter  *ratelimit.LoginLimiter
	cleanup  *workers.SessionCleanup

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var svc *services

// Startup runs one-time initialization after the DB connections and
// schema are ready: shared templates, the superadmin account, and the
// background loops (config watcher, session watchdog, session cleanup,
// periodic tasks).
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	loc, err := timezones.Location(appCfg.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("display timezone: %w", err)
	}

	db := deps.MongoDatabase
	if err := ensureSuperAdmin(ctx, adminusers.New(db), appCfg.SuperAdminEmail, appCfg.SuperAdminPassword, logger); err != nil {
		return err
	}

	s := &services{
		loc:      loc,
		audit:    auditlog.New(audit.New(db), logger, auditlog.Config{Auth: appCfg.AuditLogAuth, Admin: appCfg.AuditLogAdmin}),
		sessions: sessions.New(db),
		limiter:  ratelimit.NewLoginLimiter(deps.Redis),
	}
	s.watcher = configwatch.New(appconfigstore.New(db), deps.Redis, appCfg.ConfigPollInterval, logger)
	s.watchdog = watchdog.New(expireSession(s.sessions, s.audit, logger), logger,
		watchdog.WithCheckInterval(appCfg.WatchdogCheckInterval))
	viewdata.SetBrandingSource(s.watcher.Current)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	jobs := tasks.NewRunner(logger, tasks.OAuthStateCleanupJob(oauthstate.New(db), logger))

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.watcher.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.watchdog.Run(runCtx, s.watcher.Thresholds())
	}()
	go func() {
		defer s.wg.Done()
		_ = jobs.Run(runCtx)
	}()

	s.cleanup = workers.NewSessionCleanup(s.sessions, logger, appCfg.SessionCleanupInterval, s.watchdog.Threshold, cleanupGrace)
	s.cleanup.Start()

	svc = s
	logger.Info("startup complete", zap.String("display_timezone", loc.String()))
	return nil
}

// ensureSuperAdmin promotes or creates the configured superadmin. A blank
// email skips the step.
func ensureSuperAdmin(ctx context.Context, admins *adminusers.Store, email, password string, logger *zap.Logger) error {
	email = authutil.NormalizeEmail(email)
	if email == "" {
		logger.Info("superadmin_email not set; skipping superadmin bootstrap")
		return nil
	}
	if !authutil.IsValidEmail(email) {
		return fmt.Errorf("superadmin_email %q is not a valid email", email)
	}

	hash := ""
	if password != "" {
		if err := authutil.ValidatePassword(password); err != nil {
			return fmt.Errorf("superadmin_password: %w", err)
		}
		h, err := authutil.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash superadmin password: %w", err)
		}
		hash = h
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	created, err := admins.EnsureSuperAdmin(ctx, email, hash)
	if err != nil {
		return fmt.Errorf("ensure superadmin: %w", err)
	}
	switch {
	case created && hash == "":
		logger.Warn("superadmin created without a password; use password reset or Google sign-in",
			zap.String("email", email))
	case created:
		logger.Info("superadmin created", zap.String("email", email))
	default:
		logger.Info("superadmin ensured", zap.String("email", email))
	}
	return nil
}

// expireSession is the watchdog's expiry hook: it closes the ledger
// record and writes the audit event. The cookie is cleared on the next
// request, which RequireSignedIn answers with 401 or a redirect.
func expireSession(store *sessions.Store, al *auditlog.Logger, logger *zap.Logger) watchdog.ExpireFunc {
	return func(ctx context.Context, sid string, inactive time.Duration) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
		defer cancel()

		adminHex := ""
		if oid, err := primitive.ObjectIDFromHex(sid); err == nil {
			if sess, err := store.GetByID(ctx, oid); err == nil {
				adminHex = sess.AdminID.Hex()
			}
		}
		if _, err := store.CloseHex(ctx, sid, sessions.EndInactive); err != nil {
			logger.Warn("close expired session failed", zap.String("session_id", sid), zap.Error(err))
		}
		al.SessionExpired(ctx, adminHex, sid, inactive)
	}
}
