// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/mansahub/internal/app/system/kv"
	"github.com/dalemusser/mansahub/internal/app/system/timezones"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minSessionKeyLength is enforced outside dev.
const minSessionKeyLength = 32

// appConfigKeys defines the configuration keys for MAnSA Hub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: MANSAHUB_MONGO_URI, MANSAHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "mansa", Desc: "MongoDB database name (shared with the mobile app)"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "redis_url", Default: "", Desc: "Redis URL for config pub/sub and shared rate limits (blank disables)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "mansahub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Absolute session cookie lifetime"},
	{Name: "csrf_key", Default: "dev-only-csrf-key-0123456789abcd", Desc: "32-byte CSRF authentication key"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@mansa.lk", Desc: "From email address"},
	{Name: "mail_from_name", Default: "MAnSA Admin", Desc: "From display name"},

	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links and OAuth callbacks"},
	{Name: "password_reset_expiry", Default: "1h", Desc: "Password reset link lifetime"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID (blank hides Google sign-in)"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// SuperAdmin bootstrap
	{Name: "superadmin_email", Default: "", Desc: "Email of the superadmin (promotes/creates on startup)"},
	{Name: "superadmin_password", Default: "", Desc: "Initial password when the superadmin is created"},

	// Background loops
	{Name: "watchdog_check_interval", Default: "15s", Desc: "How often idle staff sessions are checked"},
	{Name: "config_poll_interval", Default: "1m", Desc: "How often app_config is re-read when no change message arrives"},
	{Name: "session_cleanup_interval", Default: "5m", Desc: "How often stale session records are closed"},

	{Name: "display_timezone", Default: timezones.Default, Desc: "IANA timezone for dates in pages and CSV exports"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, MANSAHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "MANSAHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		RedisURL:         appValues.String("redis_url"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 24*time.Hour),
		CSRFKey:       appValues.String("csrf_key"),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL:             appValues.String("base_url"),
		PasswordResetExpiry: appValues.Duration("password_reset_expiry", time.Hour),

		// Audit logging
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		// Google OAuth
		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		// SuperAdmin
		SuperAdminEmail:    appValues.String("superadmin_email"),
		SuperAdminPassword: appValues.String("superadmin_password"),

		WatchdogCheckInterval:  appValues.Duration("watchdog_check_interval", 15*time.Second),
		ConfigPollInterval:     appValues.Duration("config_poll_interval", time.Minute),
		SessionCleanupInterval: appValues.Duration("session_cleanup_interval", 5*time.Minute),

		DisplayTimezone: appValues.String("display_timezone"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI, Redis URL and display timezone are checked here so a
// typo fails at startup instead of on first use.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if err := kv.ValidateURL(appCfg.RedisURL); err != nil {
		logger.Error("invalid Redis URL", zap.Error(err))
		return fmt.Errorf("invalid Redis URL: %w", err)
	}
	if _, err := timezones.Location(appCfg.DisplayTimezone); err != nil {
		return fmt.Errorf("invalid display_timezone %q: %w", appCfg.DisplayTimezone, err)
	}
	if coreCfg != nil && coreCfg.Env != "dev" {
		if len(appCfg.SessionKey) < minSessionKeyLength {
			return fmt.Errorf("session_key must be at least %d characters", minSessionKeyLength)
		}
		if len(appCfg.CSRFKey) != 32 {
			return fmt.Errorf("csrf_key must be exactly 32 bytes")
		}
	}
	if appCfg.GoogleClientID != "" && appCfg.GoogleClientSecret == "" {
		return fmt.Errorf("google_client_secret is required when google_client_id is set")
	}
	return nil
}
