// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	analyticsfeature "github.com/dalemusser/mansahub/internal/app/features/analytics"
	appusersfeature "github.com/dalemusser/mansahub/internal/app/features/appusers"
	authgooglefeature "github.com/dalemusser/mansahub/internal/app/features/authgoogle"
	contentfeature "github.com/dalemusser/mansahub/internal/app/features/content"
	dashboardfeature "github.com/dalemusser/mansahub/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/mansahub/internal/app/features/errors"
	faqsfeature "github.com/dalemusser/mansahub/internal/app/features/faqs"
	healthfeature "github.com/dalemusser/mansahub/internal/app/features/health"
	heartbeatfeature "github.com/dalemusser/mansahub/internal/app/features/heartbeat"
	loginfeature "github.com/dalemusser/mansahub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/mansahub/internal/app/features/logout"
	settingsfeature "github.com/dalemusser/mansahub/internal/app/features/settings"
	teamfeature "github.com/dalemusser/mansahub/internal/app/features/team"
	useractivityfeature "github.com/dalemusser/mansahub/internal/app/features/useractivity"
	"github.com/dalemusser/mansahub/internal/app/store/activity"
	"github.com/dalemusser/mansahub/internal/app/store/adminusers"
	appconfigstore "github.com/dalemusser/mansahub/internal/app/store/appconfig"
	appuserstore "github.com/dalemusser/mansahub/internal/app/store/appusers"
	contentstore "github.com/dalemusser/mansahub/internal/app/store/content"
	"github.com/dalemusser/mansahub/internal/app/store/oauthstate"
	"github.com/dalemusser/mansahub/internal/app/store/passwordresets"
	"github.com/dalemusser/mansahub/internal/app/system/activityfeed"
	"github.com/dalemusser/mansahub/internal/app/system/auth"
	"github.com/dalemusser/mansahub/internal/app/system/authz"
	"github.com/dalemusser/mansahub/internal/app/system/mailer"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It initializes the template engine,
// applies CSRF and session middleware, and mounts the feature routers:
// sign-in, the dashboard, mothers, analytics, content, FAQs, the admin
// team and settings.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("bootstrap: Startup must run before BuildHandler")
	}
	db := deps.MongoDatabase
	secure := coreCfg.Env == "prod"

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Every request re-resolves the role from admin_users, so role changes
	// and deactivations take effect immediately.
	admins := adminusers.New(db)
	sessionMgr.SetUserFetcher(authz.NewResolver(admins, logger))
	sessionMgr.SetIdleTracker(svc.watchdog)
	sessionMgr.SetSessionLedger(svc.sessions)

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)

	appUsers := appuserstore.New(db)
	content := contentstore.New(db)

	r := chi.NewRouter()

	// CSRF for every unsafe method. Forms post the hidden field; the
	// heartbeat sends the X-CSRF-Token header.
	if !secure {
		r.Use(plaintextCSRF)
	}
	r.Use(csrf.Protect([]byte(appCfg.CSRFKey),
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf check failed", zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
			errorsfeature.RenderForbidden(w, r, "Your form expired. Please go back, reload the page and try again.", "/")
		})),
	))

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Authentication
	start := loginfeature.StartDeps{
		Sessions:   svc.sessions,
		SessionMgr: sessionMgr,
		Tracker:    svc.watchdog,
		Admins:     admins,
		Log:        logger,
	}
	loginHandler := &loginfeature.Handler{
		Auth:          &loginfeature.Authenticator{Profiles: admins, Limiter: svc.limiter},
		Admins:        admins,
		Sessions:      svc.sessions,
		Resets:        passwordresets.New(db, appCfg.PasswordResetExpiry),
		Mailer:        mailer.New(mailerConfig(appCfg), logger),
		SessionMgr:    sessionMgr,
		Tracker:       svc.watchdog,
		AuditLog:      svc.audit,
		ErrLog:        errLog,
		Log:           logger,
		SiteName:      appCfg.MailFromName,
		BaseURL:       appCfg.BaseURL,
		GoogleEnabled: appCfg.GoogleClientID != "",
	}
	r.Mount("/login", loginfeature.Routes(loginHandler, sessionMgr))

	googleHandler := authgooglefeature.NewHandler(sessionMgr, svc.audit, admins, start, oauthstate.New(db),
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler, sessionMgr))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, svc.sessions, svc.watchdog, svc.audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	heartbeatHandler := heartbeatfeature.NewHandler(svc.watchdog, svc.sessions, sessionMgr, logger)
	r.Mount("/api/heartbeat", heartbeatfeature.Routes(heartbeatHandler, sessionMgr))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Admin team
	teamHandler := teamfeature.NewHandler(admins, svc.sessions, svc.audit, errLog, logger)
	r.Mount("/users", teamfeature.Routes(teamHandler, sessionMgr))

	// Mothers and their activity
	feed := activityfeed.New(activity.New(db), logger)
	activityHandler := useractivityfeature.NewHandler(appUsers, feed, errLog, svc.loc, logger)
	appUsersHandler := appusersfeature.NewHandler(appUsers, svc.audit, errLog, svc.loc, logger)
	r.Mount("/app-users", appusersfeature.Routes(appUsersHandler, activityHandler, sessionMgr))

	analyticsHandler := analyticsfeature.NewHandler(appUsers, errLog, svc.loc)
	r.Mount("/analytics", analyticsfeature.Routes(analyticsHandler, sessionMgr))

	// Content and FAQs
	contentHandler := contentfeature.NewHandler(content, svc.audit, errLog, logger)
	r.Mount("/content", contentfeature.Routes(contentHandler, sessionMgr))

	faqsHandler := faqsfeature.NewHandler(content, svc.audit, errLog, logger)
	r.Mount("/faqs", faqsfeature.Routes(faqsHandler, sessionMgr))

	settingsHandler := settingsfeature.NewHandler(appconfigstore.New(db), svc.watcher, svc.audit, errLog, logger)
	r.Mount("/settings", settingsfeature.Routes(settingsHandler, sessionMgr))

	// Dashboard home
	dashboardHandler := dashboardfeature.NewHandler(appUsers, content, svc.sessions, errLog, logger)
	r.Mount("/", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorsfeature.RenderNotFound(w, r, "", "/")
	})

	logger.Info("routes mounted", zap.Bool("google_sign_in", googleHandler.IsConfigured()))
	return r, nil
}

// plaintextCSRF marks requests as plain HTTP so gorilla/csrf skips its
// HTTPS referer check in dev.
func plaintextCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func mailerConfig(appCfg AppConfig) mailer.Config {
	return mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}
}
