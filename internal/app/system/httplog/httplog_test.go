package httplog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/confinedspace/internal/app/system/httplog"
	"github.com/dalemusser/confinedspace/internal/testutil"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name        string
		trustHeader bool
		incoming    string
		wantKept    bool
	}{
		{"generated when absent", true, "", false},
		{"kept when trusted", true, "abc-123", true},
		{"replaced when untrusted", false, "abc-123", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen, chiSeen string
			h := httplog.RequestID(tt.trustHeader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = httplog.RequestIDFrom(r.Context())
				chiSeen = middleware.GetReqID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(httplog.HeaderRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get(httplog.HeaderRequestID); got != seen {
				t.Errorf("header %q != context %q", got, seen)
			}
			if chiSeen != seen {
				t.Errorf("middleware.GetReqID = %q, want %q", chiSeen, seen)
			}
			if tt.wantKept {
				if seen != tt.incoming {
					t.Errorf("request id = %q, want %q", seen, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Errorf("request id %q is not a UUID", seen)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantLevel zapcore.Level
	}{
		{"implicit ok", 0, "hello", zapcore.InfoLevel},
		{"no body", 0, "", zapcore.InfoLevel},
		{"created", http.StatusCreated, `{"id":"1"}`, zapcore.InfoLevel},
		{"not found", http.StatusNotFound, "", zapcore.WarnLevel},
		{"server error", http.StatusInternalServerError, "", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = w.Write([]byte(tt.body))
			})
			h := httplog.RequestID(false)(httplog.Logger(zap.New(core))(inner))

			req := testutil.NewAuthenticatedRequest(http.MethodGet, "/workorders", testutil.PlainUser())
			h.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("got %d log entries, want 1", len(entries))
			}
			e := entries[0]
			if e.Level != tt.wantLevel {
				t.Errorf("level = %v, want %v", e.Level, tt.wantLevel)
			}
			fields := e.ContextMap()
			wantStatus := tt.status
			if wantStatus == 0 {
				wantStatus = http.StatusOK
			}
			if fields["status"] != int64(wantStatus) {
				t.Errorf("status field = %v, want %d", fields["status"], wantStatus)
			}
			if fields["bytes"] != int64(len(tt.body)) {
				t.Errorf("bytes field = %v, want %d", fields["bytes"], len(tt.body))
			}
			if _, ok := fields["request_id"]; !ok {
				t.Error("request_id missing")
			}
			if _, ok := fields["user_id"]; !ok {
				t.Error("user_id missing")
			}
		})
	}
}
