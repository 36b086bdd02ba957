// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// the framework-level settings (ports, TLS, logging, CORS); everything
// specific to the dashboard lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database shared with the mobile app
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis (optional). Blank runs single-instance: config changes are
	// polled and login rate limits are kept in memory.
	RedisURL string

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: mansahub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Absolute cookie lifetime; idle expiry is the watchdog's job
	CSRFKey       string        // 32-byte key for gorilla/csrf

	// Email/SMTP configuration (password reset mail)
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	// Base URL for links in email (password reset) and the OAuth callback
	BaseURL string

	PasswordResetExpiry time.Duration

	// Audit logging modes: all, db, log, off
	AuditLogAuth  string
	AuditLogAdmin string

	// Google OAuth (optional)
	GoogleClientID     string
	GoogleClientSecret string

	// SuperAdmin bootstrap
	SuperAdminEmail    string
	SuperAdminPassword string

	// Session watchdog and config watcher
	WatchdogCheckInterval  time.Duration
	ConfigPollInterval     time.Duration
	SessionCleanupInterval time.Duration

	// DisplayTimezone is the IANA zone for dates shown in pages and exports.
	DisplayTimezone string
}
