// internal/app/features/locations/locations.go
package locations

import (
	"context"
	"net/http"

	"github.com/dalemusser/confinedspace/internal/app/system/authz"
	"github.com/dalemusser/confinedspace/internal/app/system/htmlsanitize"
	"github.com/dalemusser/confinedspace/internal/app/system/inputval"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/dalemusser/confinedspace/internal/app/system/txn"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

type locationInput struct {
	Name        string   `json:"name" label:"Name" validate:"required,max=200"`
	Address     string   `json:"address" label:"Address" validate:"max=500"`
	Description string   `json:"description" label:"Description" validate:"max=2000"`
	Latitude    *float64 `json:"latitude" label:"Latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" label:"Longitude" validate:"omitempty,min=-180,max=180"`
}

func (in locationInput) clean() locationInput {
	in.Name = htmlsanitize.PlainText(in.Name)
	in.Address = htmlsanitize.PlainText(in.Address)
	in.Description = htmlsanitize.PlainText(in.Description)
	return in
}

func (in locationInput) validate() error {
	res := inputval.Validate(in)
	if (in.Latitude == nil) != (in.Longitude == nil) {
		res.Errors = append(res.Errors, inputval.FieldError{
			Field:   "latitude",
			Message: "Latitude and longitude must be given together.",
		})
	}
	return res.Err()
}

func (in locationInput) model() models.Location {
	return models.Location{
		Name:        in.Name,
		Address:     in.Address,
		Description: in.Description,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
	}
}

// mapPoint is one marker on the site map.
type mapPoint struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ServeList handles GET /locations. ?search= matches a name prefix.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	locs, err := h.Locations.List(ctx, query.Get(r, "search"))
	if err != nil {
		h.writeStoreError(w, r, "list locations", err)
		return
	}
	respond.OK(w, map[string]any{
		"locations": locs,
		"canManage": authz.CanManageSites(r),
	})
}

// ServeMap handles GET /locations/map.
func (h *Handler) ServeMap(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	locs, err := h.Locations.WithCoordinates(ctx)
	if err != nil {
		h.writeStoreError(w, r, "map locations", err)
		return
	}
	points := make([]mapPoint, 0, len(locs))
	for _, l := range locs {
		if !l.HasCoordinates() {
			continue
		}
		points = append(points, mapPoint{
			ID:        l.ID.Hex(),
			Name:      l.Name,
			Address:   l.Address,
			Latitude:  *l.Latitude,
			Longitude: *l.Longitude,
		})
	}
	respond.OK(w, map[string]any{"points": points})
}

// ServeLocation handles GET /locations/{id} and includes the buildings.
func (h *Handler) ServeLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.objectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	loc, err := h.Locations.GetByID(ctx, id)
	if err != nil {
		h.writeStoreError(w, r, "get location", err)
		return
	}
	bs, err := h.Buildings.ListByLocation(ctx, id)
	if err != nil {
		h.writeStoreError(w, r, "list buildings", err)
		return
	}
	respond.OK(w, map[string]any{"location": loc, "buildings": bs})
}

// HandleCreate handles POST /locations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in locationInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in = in.clean()
	if err := in.validate(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	loc := in.model()
	if _, _, uid, ok := authz.UserCtx(r); ok {
		loc.CreatedBy = uid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Locations.Create(ctx, loc)
	if err != nil {
		h.writeStoreError(w, r, "create location", err)
		return
	}
	h.Audit.LocationCreated(ctx, r, created.CreatedBy, created.ID, created.Name)
	w.Header().Set("Location", "/locations/"+created.ID.Hex())
	respond.Created(w, map[string]any{"location": created})
}

// HandleUpdate handles PUT /locations/{id}. The body replaces every
// editable field, so omitted coordinates clear the map position.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.objectIDParam(w, r, "id")
	if !ok {
		return
	}
	var in locationInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in = in.clean()
	if err := in.validate(); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	updated, err := h.Locations.Update(ctx, id, in.model())
	if err != nil {
		h.writeStoreError(w, r, "update location", err)
		return
	}
	respond.OK(w, map[string]any{"location": updated})
}

// HandleDelete handles DELETE /locations/{id} and removes its buildings
// in the same transaction when the server supports one.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.objectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var buildings int64
	err := txn.Run(ctx, h.Client, h.Log, func(ctx context.Context) error {
		if err := h.Locations.Delete(ctx, id); err != nil {
			return err
		}
		n, err := h.Buildings.DeleteByLocation(ctx, id)
		buildings = n
		return err
	})
	if err != nil {
		h.writeStoreError(w, r, "delete location", err)
		return
	}

	h.Audit.LocationDeleted(ctx, r, actorID(r), id, buildings)
	h.Log.Info("location deleted", zap.String("location_id", id.Hex()), zap.Int64("buildings", buildings))
	respond.NoContent(w)
}
