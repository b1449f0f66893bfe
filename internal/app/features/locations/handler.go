// internal/app/features/locations/handler.go
package locations

import (
	"errors"
	"net/http"

	buildingstore "github.com/dalemusser/confinedspace/internal/app/store/buildings"
	locationstore "github.com/dalemusser/confinedspace/internal/app/store/locations"
	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/app/system/auditlog"
	"github.com/dalemusser/confinedspace/internal/app/system/authz"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves sites and their buildings under /locations.
type Handler struct {
	Locations *locationstore.Store
	Buildings *buildingstore.Store
	Client    *mongo.Client
	Audit     *auditlog.Logger
	Log       *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Locations: locationstore.New(db),
		Buildings: buildingstore.New(db),
		Client:    db.Client(),
		Audit:     audit,
		Log:       logger,
	}
}

func actorID(r *http.Request) primitive.ObjectID {
	_, _, id, _ := authz.UserCtx(r)
	return id
}

// objectIDParam reads a hex id from the URL. A malformed id is a 404, the
// same as a well-formed one that does not exist.
func (h *Handler) objectIDParam(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		respond.Error(w, h.Log, apperr.ErrNotFound)
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, locationstore.ErrNotFound), errors.Is(err, buildingstore.ErrNotFound):
		respond.Error(w, h.Log, apperr.ErrNotFound)
	default:
		h.Log.Error(op, zap.Error(err), zap.String("path", r.URL.Path))
		respond.Message(w, http.StatusInternalServerError, "Internal server error")
	}
}
