// internal/app/features/locations/buildings.go
package locations

import (
	"context"
	"net/http"

	"github.com/dalemusser/confinedspace/internal/app/system/authz"
	"github.com/dalemusser/confinedspace/internal/app/system/htmlsanitize"
	"github.com/dalemusser/confinedspace/internal/app/system/inputval"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/dalemusser/confinedspace/internal/domain/models"
)

type buildingInput struct {
	Name        string `json:"name" label:"Name" validate:"required,max=200"`
	Description string `json:"description" label:"Description" validate:"max=2000"`
	Floors      int    `json:"floors" label:"Floors" validate:"min=0,max=500"`
}

func (in buildingInput) clean() buildingInput {
	in.Name = htmlsanitize.PlainText(in.Name)
	in.Description = htmlsanitize.PlainText(in.Description)
	return in
}

// ServeBuildings handles GET /locations/{id}/buildings.
func (h *Handler) ServeBuildings(w http.ResponseWriter, r *http.Request) {
	locID, ok := h.objectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Locations.GetByID(ctx, locID); err != nil {
		h.writeStoreError(w, r, "get location", err)
		return
	}
	bs, err := h.Buildings.ListByLocation(ctx, locID)
	if err != nil {
		h.writeStoreError(w, r, "list buildings", err)
		return
	}
	respond.OK(w, map[string]any{"buildings": bs})
}

// HandleCreateBuilding handles POST /locations/{id}/buildings.
func (h *Handler) HandleCreateBuilding(w http.ResponseWriter, r *http.Request) {
	locID, ok := h.objectIDParam(w, r, "id")
	if !ok {
		return
	}
	var in buildingInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in = in.clean()
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Locations.GetByID(ctx, locID); err != nil {
		h.writeStoreError(w, r, "get location", err)
		return
	}
	b := models.Building{
		LocationID:  locID,
		Name:        in.Name,
		Description: in.Description,
		Floors:      in.Floors,
	}
	if _, _, uid, ok := authz.UserCtx(r); ok {
		b.CreatedBy = uid
	}
	created, err := h.Buildings.Create(ctx, b)
	if err != nil {
		h.writeStoreError(w, r, "create building", err)
		return
	}
	respond.Created(w, map[string]any{"building": created})
}

// HandleUpdateBuilding handles PUT /locations/{id}/buildings/{bid}. A building
// of another location is a 404.
func (h *Handler) HandleUpdateBuilding(w http.ResponseWriter, r *http.Request) {
	locID, ok := h.objectIDParam(w, r, "id")
	if !ok {
		return
	}
	id, ok := h.objectIDParam(w, r, "bid")
	if !ok {
		return
	}
	var in buildingInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	in = in.clean()
	if err := inputval.Struct(in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	updated, err := h.Buildings.Update(ctx, locID, id, models.Building{
		Name:        in.Name,
		Description: in.Description,
		Floors:      in.Floors,
	})
	if err != nil {
		h.writeStoreError(w, r, "update building", err)
		return
	}
	respond.OK(w, map[string]any{"building": updated})
}

// HandleDeleteBuilding handles DELETE /locations/{id}/buildings/{bid}.
func (h *Handler) HandleDeleteBuilding(w http.ResponseWriter, r *http.Request) {
	locID, ok := h.objectIDParam(w, r, "id")
	if !ok {
		return
	}
	id, ok := h.objectIDParam(w, r, "bid")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Buildings.Delete(ctx, locID, id); err != nil {
		h.writeStoreError(w, r, "delete building", err)
		return
	}
	respond.NoContent(w)
}
