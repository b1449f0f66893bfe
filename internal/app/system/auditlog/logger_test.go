package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/confinedspace/internal/app/store/audit"
	"github.com/dalemusser/confinedspace/internal/app/system/auditlog"
	"github.com/dalemusser/confinedspace/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilIsNoop(t *testing.T) {
	var l *auditlog.Logger
	req := httptest.NewRequest("POST", "/auth/login", nil)
	l.LoginFailed(req.Context(), req, "someone@example.com")
}

func TestLogger_Modes(t *testing.T) {
	tests := []struct {
		mode    string
		wantDB  int64
		wantLog int
	}{
		{auditlog.ModeAll, 1, 1},
		{auditlog.ModeDB, 1, 0},
		{auditlog.ModeLog, 0, 1},
		{auditlog.ModeOff, 0, 0},
		{"", 1, 1},
	}
	for _, tt := range tests {
		t.Run("mode="+tt.mode, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			core, logs := observer.New(zapcore.InfoLevel)
			store := audit.New(db)
			l := auditlog.New(store, zap.New(core), auditlog.Config{Auth: tt.mode, Admin: auditlog.ModeOff})

			req := httptest.NewRequest("POST", "/auth/login", nil)
			req.RemoteAddr = "203.0.113.9:5555"
			l.LoginSuccess(ctx, req, primitive.NewObjectID(), "jane@example.com")

			n, err := store.CountByFilter(ctx, audit.QueryFilter{})
			if err != nil {
				t.Fatalf("CountByFilter failed: %v", err)
			}
			if n != tt.wantDB {
				t.Errorf("stored %d events, want %d", n, tt.wantDB)
			}
			if got := logs.FilterMessage("audit event").Len(); got != tt.wantLog {
				t.Errorf("logged %d events, want %d", got, tt.wantLog)
			}
		})
	}
}

func TestLogger_AuthEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	l := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.ModeDB, Admin: auditlog.ModeDB})

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("User-Agent", "field-tablet")

	userID := primitive.NewObjectID()
	l.LoginFailed(ctx, req, "jane@example.com")
	l.LoginRateLimited(ctx, req, "jane@example.com", "Too many login attempts.")
	l.LoginSuccess(ctx, req, userID, "jane@example.com")
	l.Logout(ctx, req, userID.Hex())

	got, err := store.Query(ctx, audit.QueryFilter{Category: audit.CategoryAuth})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d events, want 4", len(got))
	}

	byType := map[string]audit.Event{}
	for _, e := range got {
		byType[e.EventType] = e
	}

	failed := byType[audit.EventLoginFailed]
	if failed.Success || failed.Details["email"] != "jane@example.com" {
		t.Errorf("login_failed = %+v", failed)
	}
	if failed.IP != "203.0.113.9" || failed.UserAgent != "field-tablet" {
		t.Errorf("request context = %q / %q", failed.IP, failed.UserAgent)
	}
	if rl := byType[audit.EventLoginFailedRateLimit]; rl.Details["reason"] == "" || rl.FailureReason != "rate limited" {
		t.Errorf("rate limit details = %v", rl.Details)
	}
	for _, typ := range []string{audit.EventLoginSuccess, audit.EventLogout} {
		e := byType[typ]
		if e.UserID == nil || *e.UserID != userID {
			t.Errorf("%s user = %v, want %s", typ, e.UserID, userID.Hex())
		}
	}

	failures, err := store.GetFailedLogins(ctx, failed.Timestamp.Add(-1), 10)
	if err != nil {
		t.Fatalf("GetFailedLogins failed: %v", err)
	}
	if len(failures) != 2 {
		t.Errorf("got %d failed logins, want 2", len(failures))
	}
}

func TestLogger_AdminEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	l := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.ModeOff, Admin: auditlog.ModeDB})
	req := httptest.NewRequest("PATCH", "/users/x", nil)

	actor := primitive.NewObjectID()
	target := primitive.NewObjectID()
	loc := primitive.NewObjectID()

	l.UserRoleChanged(ctx, req, actor, target, "user", "technician")
	l.UserStatusChanged(ctx, req, actor, target, "disabled")
	l.UserStatusChanged(ctx, req, actor, target, "active")
	l.LocationCreated(ctx, req, actor, loc, "North Plant")
	l.LocationDeleted(ctx, req, actor, loc, 3)
	l.WorkOrderDeleted(ctx, req, actor, "WO-2024-05-0001")
	l.Logout(ctx, req, actor.Hex()) // auth is off

	got, err := store.Query(ctx, audit.QueryFilter{UserID: &actor})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("got %d events for actor, want 6", len(got))
	}

	forTarget, err := store.Query(ctx, audit.QueryFilter{UserID: &target})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	types := map[string]bool{}
	for _, e := range forTarget {
		types[e.EventType] = true
	}
	for _, want := range []string{audit.EventUserRoleChanged, audit.EventUserDisabled, audit.EventUserEnabled} {
		if !types[want] {
			t.Errorf("missing %s for target user", want)
		}
	}

	deleted, err := store.Query(ctx, audit.QueryFilter{EventType: audit.EventLocationDeleted})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(deleted) != 1 || deleted[0].Details["buildings"] != "3" {
		t.Errorf("location_deleted = %+v", deleted)
	}
}

func TestValidMode(t *testing.T) {
	for _, m := range []string{"all", "db", "log", "off"} {
		if !auditlog.ValidMode(m) {
			t.Errorf("ValidMode(%q) = false", m)
		}
	}
	if auditlog.ValidMode("verbose") {
		t.Error("ValidMode(verbose) = true")
	}
}
