// internal/app/features/workorders/handler.go
package workorders

import (
	"net/http"

	orderservice "github.com/dalemusser/confinedspace/internal/app/service/orders"
	"github.com/dalemusser/confinedspace/internal/app/policy/orderpolicy"
	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/app/system/auditlog"
	"github.com/dalemusser/confinedspace/internal/app/system/authz"
	"github.com/dalemusser/confinedspace/internal/app/system/paging"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Limits bounds list and export sizes.
type Limits struct {
	ListMax   int // largest page a client may request
	ExportMax int // most rows in one spreadsheet export
}

// Handler serves /workorders.
type Handler struct {
	Orders *orderservice.Service
	Blobs  storage.Store
	Limits Limits
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

// NewHandler wires the order service to db. blobs may be nil, in which case
// image upload answers 503. audit may be nil.
func NewHandler(db *mongo.Database, blobs storage.Store, limits Limits, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if limits.ListMax <= 0 {
		limits.ListMax = paging.MaxLimit
	}
	if limits.ExportMax <= 0 {
		limits.ExportMax = orderservice.DefaultExportLimit
	}
	return &Handler{
		Orders: orderservice.New(db, logger),
		Blobs:  blobs,
		Limits: limits,
		Audit:  audit,
		Log:    logger,
	}
}

// caller resolves the signed-in user. RequireSignedIn runs first, so a
// miss here means the session id was malformed.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (orderpolicy.Caller, bool) {
	c, ok := authz.Caller(r)
	if !ok {
		respond.Message(w, http.StatusUnauthorized, "Sign in required")
	}
	return c, ok
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		h.Log.Error("workorders request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respond.Error(w, nil, err)
		return
	}
	respond.Error(w, h.Log, err)
}
