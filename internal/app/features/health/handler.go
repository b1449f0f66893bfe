// internal/app/features/health/handler.go
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler reports whether the service can reach MongoDB.
type Handler struct {
	Client  *mongo.Client
	Storage string // blob backend name, reported as-is
	Log     *zap.Logger
}

func NewHandler(client *mongo.Client, storage string, logger *zap.Logger) *Handler {
	return &Handler{
		Client:  client,
		Storage: storage,
		Log:     logger,
	}
}

type report struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Storage   string `json:"storage,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
	Message   string `json:"message,omitempty"`
}

// check pings the primary under the ping deadline.
func (h *Handler) check(ctx context.Context) (report, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()

	start := time.Now()
	err := h.Client.Ping(ctx, readpref.Primary())
	rep := report{
		Status:    "ok",
		Database:  "connected",
		Storage:   h.Storage,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		// Driver errors carry hostnames; keep them in the log only.
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		rep.Status = "error"
		rep.Database = "disconnected"
		rep.Message = "Database unavailable"
		return rep, false
	}
	return rep, true
}

// Serve handles GET /health: 200 with {status:"ok",...} or 503 with
// {status:"error", database:"disconnected"}.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.check(r.Context())
	if !ok {
		respond.JSON(w, http.StatusServiceUnavailable, rep)
		return
	}
	respond.OK(w, rep)
}

// ServeHead handles HEAD /health for probes that only read the status code.
func (h *Handler) ServeHead(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.check(r.Context()); !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
