// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/confinedspace/internal/app/store/audit"
	"github.com/dalemusser/confinedspace/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for sign-in, sign-out and registration.
	Auth string
	// Admin controls logging for user administration and destructive deletes.
	Admin string
}

// ValidMode reports whether s is one of the Mode constants.
func ValidMode(s string) bool {
	switch s {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Logger records audit events to MongoDB (via audit.Store) and structured
// logs (via zap). A nil *Logger is a no-op, so handlers built without one
// still work.
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
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
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

// Log records an audit event according to its category's mode. Unknown
// categories and empty modes log everywhere.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var mode string
	switch event.Category {
	case audit.CategoryAuth:
		mode = l.config.Auth
	case audit.CategoryAdmin:
		mode = l.config.Admin
	}
	if mode == "" {
		mode = ModeAll
	}
	if mode == ModeOff {
		return
	}

	if mode == ModeAll || mode == ModeLog {
		l.logToZap(event)
	}
	if mode == ModeAll || mode == ModeDB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func fromRequest(r *http.Request, category, eventType string, success bool) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	e.UserID = &userID
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginFailed logs rejected credentials. The email is recorded as typed.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginFailed, false)
	e.FailureReason = "bad credentials"
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// LoginRateLimited logs a sign-in refused by the rate limiter. reason is the
// message the client was shown.
func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, email, reason string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLoginFailedRateLimit, false)
	e.FailureReason = "rate limited"
	e.Details = map[string]string{"email": email, "reason": reason}
	l.Log(ctx, e)
}

// Logout logs a sign-out. userIDStr may be empty for an anonymous request.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventLogout, true)
	if id, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		e.UserID = &id
	}
	l.Log(ctx, e)
}

// UserRegistered logs a self-service registration.
func (l *Logger) UserRegistered(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	e := fromRequest(r, audit.CategoryAuth, audit.EventUserRegistered, true)
	e.UserID = &userID
	e.Details = map[string]string{"email": email}
	l.Log(ctx, e)
}

// --- Admin Events ---

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, target *primitive.ObjectID, details map[string]string) {
	e := fromRequest(r, audit.CategoryAdmin, eventType, true)
	e.ActorID = &actorID
	e.UserID = target
	e.Details = details
	l.Log(ctx, e)
}

// UserRoleChanged logs an admin changing another user's role.
func (l *Logger) UserRoleChanged(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, oldRole, newRole string) {
	l.admin(ctx, r, audit.EventUserRoleChanged, actorID, &targetUserID, map[string]string{
		"old_role": oldRole,
		"new_role": newRole,
	})
}

// UserStatusChanged logs an account being disabled or re-enabled.
func (l *Logger) UserStatusChanged(ctx context.Context, r *http.Request, actorID, targetUserID primitive.ObjectID, status string) {
	eventType := audit.EventUserEnabled
	if strings.EqualFold(status, "disabled") {
		eventType = audit.EventUserDisabled
	}
	l.admin(ctx, r, eventType, actorID, &targetUserID, nil)
}

// LocationCreated logs a new site.
func (l *Logger) LocationCreated(ctx context.Context, r *http.Request, actorID, locationID primitive.ObjectID, name string) {
	l.admin(ctx, r, audit.EventLocationCreated, actorID, nil, map[string]string{
		"location_id": locationID.Hex(),
		"name":        name,
	})
}

// LocationDeleted logs a site removal and how many buildings went with it.
func (l *Logger) LocationDeleted(ctx context.Context, r *http.Request, actorID, locationID primitive.ObjectID, buildings int64) {
	l.admin(ctx, r, audit.EventLocationDeleted, actorID, nil, map[string]string{
		"location_id": locationID.Hex(),
		"buildings":   strconv.FormatInt(buildings, 10),
	})
}

// WorkOrderDeleted logs a work order removal.
func (l *Logger) WorkOrderDeleted(ctx context.Context, r *http.Request, actorID primitive.ObjectID, ident string) {
	l.admin(ctx, r, audit.EventWorkOrderDeleted, actorID, nil, map[string]string{"order": ident})
}
