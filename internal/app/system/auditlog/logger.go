// internal/app/system/auditlog/logger.go
package auditlog

// Terminology: Identifiers
//   - actorID: the admin_users ObjectID of the staff member acting
//   - targetID: whatever the action touched: an admin ObjectID hex, an
//     app user uid, or a content slug
//   - email: the address typed on the sign-in form

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/mansahub/internal/app/store/audit"
	"github.com/dalemusser/mansahub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination modes for a category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth covers sign-in, sign-out, idle expiry and password resets.
	Auth string
	// Admin covers team, app user, content and settings changes.
	Admin string
}

// Logger writes audit events to MongoDB (via audit.Store) and to zap,
// as configured per category.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.TargetID != "" {
		fields = append(fields,
			zap.String("target_kind", event.TargetKind),
			zap.String("target_id", event.TargetID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration. A nil Logger is a
// no-op so handlers under test can run without one.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = ModeAll
	}
	if setting == "" {
		setting = ModeAll
	}
	if setting == ModeOff {
		return
	}

	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}
	if setting == ModeAll || setting == ModeDB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func fromRequest(r *http.Request, e audit.Event) audit.Event {
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

func oidPtr(hex string) *primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &oid
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, adminID primitive.ObjectID, authMethod, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAuth,
		EventType:  audit.EventLoginSuccess,
		ActorID:    &adminID,
		TargetKind: audit.TargetAdmin,
		TargetID:   adminID.Hex(),
		Success:    true,
		Details: map[string]string{
			"auth_method": authMethod,
			"email":       email,
		},
	}))
}

// LoginFailedUnknown logs a sign-in for an email with no admin profile.
func (l *Logger) LoginFailedUnknown(ctx context.Context, r *http.Request, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUnknown,
		Success:       false,
		FailureReason: "no admin profile",
		Details:       map[string]string{"email": email},
	}))
}

// LoginFailedWrongPassword logs a bad password for a known account.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, adminID primitive.ObjectID, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		TargetKind:    audit.TargetAdmin,
		TargetID:      adminID.Hex(),
		Success:       false,
		FailureReason: "invalid credentials",
		Details:       map[string]string{"email": email},
	}))
}

// LoginFailedDisabled logs a sign-in by a deactivated account.
func (l *Logger) LoginFailedDisabled(ctx context.Context, r *http.Request, adminID primitive.ObjectID, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedDisabled,
		TargetKind:    audit.TargetAdmin,
		TargetID:      adminID.Hex(),
		Success:       false,
		FailureReason: "account inactive",
		Details:       map[string]string{"email": email},
	}))
}

// LoginFailedRateLimit logs a sign-in refused by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, email, reason string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	}))
}

// Logout logs a sign-out. adminIDHex comes from the SessionUser; an
// unparseable id is recorded without an actor.
func (l *Logger) Logout(ctx context.Context, r *http.Request, adminIDHex string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		ActorID:   oidPtr(adminIDHex),
		Success:   true,
	}))
}

// SessionExpired logs an idle-timeout sign-out forced by the watchdog.
// There is no request: the watchdog fires from its own goroutine.
func (l *Logger) SessionExpired(ctx context.Context, adminIDHex, sessionID string, inactive time.Duration) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSessionExpired,
		ActorID:   oidPtr(adminIDHex),
		Success:   true,
		Details: map[string]string{
			"session_id":       sessionID,
			"inactive_seconds": strconv.Itoa(int(inactive.Seconds())),
		},
	})
}

// PasswordResetRequested logs that a reset email was sent.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, adminID primitive.ObjectID, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAuth,
		EventType:  audit.EventPasswordResetRequested,
		TargetKind: audit.TargetAdmin,
		TargetID:   adminID.Hex(),
		Success:    true,
		Details:    map[string]string{"email": email},
	}))
}

// PasswordResetCompleted logs a password set through a reset token.
func (l *Logger) PasswordResetCompleted(ctx context.Context, r *http.Request, adminID primitive.ObjectID) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAuth,
		EventType:  audit.EventPasswordResetCompleted,
		ActorID:    &adminID,
		TargetKind: audit.TargetAdmin,
		TargetID:   adminID.Hex(),
		Success:    true,
	}))
}

// --- Admin Events ---

// AdminInvited logs a new team member.
func (l *Logger) AdminInvited(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID, role string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventAdminInvited,
		ActorID:    &actorID,
		TargetKind: audit.TargetAdmin,
		TargetID:   targetID.Hex(),
		Success:    true,
		Details:    map[string]string{"role": role},
	}))
}

// AdminUpdated logs a name or role change.
func (l *Logger) AdminUpdated(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventAdminUpdated,
		ActorID:    &actorID,
		TargetKind: audit.TargetAdmin,
		TargetID:   targetID.Hex(),
		Success:    true,
		Details:    map[string]string{"fields_changed": fieldsChanged},
	}))
}

// AdminDeactivated logs a logical deactivation.
func (l *Logger) AdminDeactivated(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventAdminDeactivated,
		ActorID:    &actorID,
		TargetKind: audit.TargetAdmin,
		TargetID:   targetID.Hex(),
		Success:    true,
	}))
}

// AppUserCreated logs a mother registered from the dashboard.
func (l *Logger) AppUserCreated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, uid, patientID string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventAppUserCreated,
		ActorID:    &actorID,
		TargetKind: audit.TargetAppUser,
		TargetID:   uid,
		Success:    true,
		Details:    map[string]string{"patient_id": patientID},
	}))
}

// AppUserDeleted logs a soft delete.
func (l *Logger) AppUserDeleted(ctx context.Context, r *http.Request, actorID primitive.ObjectID, uid string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventAppUserDeleted,
		ActorID:    &actorID,
		TargetKind: audit.TargetAppUser,
		TargetID:   uid,
		Success:    true,
	}))
}

// ContentSaved logs an FAQ or module save.
func (l *Logger) ContentSaved(ctx context.Context, r *http.Request, actorID primitive.ObjectID, contentID, contentType string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventContentSaved,
		ActorID:    &actorID,
		TargetKind: audit.TargetContent,
		TargetID:   contentID,
		Success:    true,
		Details:    map[string]string{"type": contentType},
	}))
}

// ContentDeleted logs a content deletion.
func (l *Logger) ContentDeleted(ctx context.Context, r *http.Request, actorID primitive.ObjectID, contentID string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventContentDeleted,
		ActorID:    &actorID,
		TargetKind: audit.TargetContent,
		TargetID:   contentID,
		Success:    true,
	}))
}

// SettingsUpdated logs an app_config change.
func (l *Logger) SettingsUpdated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, fieldsChanged string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:   audit.CategoryAdmin,
		EventType:  audit.EventSettingsUpdated,
		ActorID:    &actorID,
		TargetKind: audit.TargetConfig,
		TargetID:   "general",
		Success:    true,
		Details:    map[string]string{"fields_changed": fieldsChanged},
	}))
}

// AccessDenied logs a mutating action refused by the permission policy.
func (l *Logger) AccessDenied(ctx context.Context, r *http.Request, actorID primitive.ObjectID, action, reason string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAdmin,
		EventType:     audit.EventAccessDenied,
		ActorID:       &actorID,
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"action": action},
	}))
}
