// internal/app/features/workorders/write.go
package workorders

import (
	"context"
	"net/http"

	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type statusInput struct {
	Status   string `json:"status"`
	Comments string `json:"comments"`
}

type bulkStatusInput struct {
	IDs      []string `json:"ids"`
	Status   string   `json:"status"`
	Comments string   `json:"comments"`
}

// HandleCreate handles POST /workorders.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in models.OrderInput
	if err := respond.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	o, err := h.Orders.Create(ctx, caller, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/workorders/"+o.ID.Hex())
	respond.Created(w, o)
}

// HandleUpdate handles PUT /workorders/{id}. Only fields present in the body
// change.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var p models.OrderPatch
	if err := respond.Decode(w, r, &p); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	o, err := h.Orders.Update(ctx, caller, chi.URLParam(r, "id"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, o)
}

// HandleStatus handles PATCH /workorders/{id}/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in statusInput
	if err := respond.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.UpdateStatus(ctx, caller, chi.URLParam(r, "id"), in.Status, in.Comments)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, o)
}

// HandleBulkStatus handles PATCH /workorders/bulk-status. Ids the caller may
// not see or may not move are skipped and reported, not failed. When the
// batch deadline hits part way through, the counts so far are still
// returned with "incomplete": true.
func (h *Handler) HandleBulkStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in bulkStatusInput
	if err := respond.Decode(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	res, err := h.Orders.BulkUpdateStatus(ctx, caller, in.IDs, in.Status, in.Comments)
	if err != nil && !res.Incomplete {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, res)
}

// HandleDelete handles DELETE /workorders/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ident := chi.URLParam(r, "id")
	if err := h.Orders.Delete(ctx, caller, ident); err != nil {
		h.fail(w, r, err)
		return
	}
	h.Audit.WorkOrderDeleted(ctx, r, caller.ID, ident)
	respond.NoContent(w)
}
