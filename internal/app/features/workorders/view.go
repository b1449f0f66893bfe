// internal/app/features/workorders/view.go
package workorders

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dalemusser/confinedspace/internal/app/system/orderreport"
	"github.com/dalemusser/confinedspace/internal/app/system/paging"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	orderservice "github.com/dalemusser/confinedspace/internal/app/service/orders"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeOrder handles GET /workorders/{id}. {id} may be any of the order's
// identifiers.
func (h *Handler) ServeOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.Get(ctx, caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, o)
}

// ServeReport handles GET /workorders/{id}/report.xlsx.
func (h *Handler) ServeReport(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.Get(ctx, caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := orderreport.WriteOrder(&buf, o); err != nil {
		h.Log.Error("render order report", zap.String("work_order_id", o.WorkOrderID), zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Could not build report")
		return
	}
	writeWorkbook(w, o.WorkOrderID+".xlsx", &buf)
}

// ServeExport handles GET /workorders/export.xlsx. It takes the same filters
// and sort as the list, without paging.
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sort := paging.ParseSort(r, orderservice.SortFields, orderservice.DefaultSort)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	orders, err := h.Orders.Export(ctx, caller, f, sort, h.Limits.ExportMax)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := orderreport.WriteList(&buf, orders); err != nil {
		h.Log.Error("render order export", zap.Int("rows", len(orders)), zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Could not build export")
		return
	}
	if len(orders) == h.Limits.ExportMax {
		w.Header().Set("X-Export-Truncated", "true")
	}
	writeWorkbook(w, "work-orders.xlsx", &buf)
}

func writeWorkbook(w http.ResponseWriter, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", orderreport.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
