// internal/app/features/workorders/list.go
package workorders

import (
	"context"
	"net/http"
	"strings"
	"time"

	orderservice "github.com/dalemusser/confinedspace/internal/app/service/orders"
	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/app/system/normalize"
	"github.com/dalemusser/confinedspace/internal/app/system/paging"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList handles GET /workorders.
//
// Query: page, limit, sort, order, status, priority, search, dateFrom, dateTo.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pg := paging.ParsePage(r, h.Limits.ListMax)
	sort := paging.ParseSort(r, orderservice.SortFields, orderservice.DefaultSort)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Orders.List(ctx, caller, f, pg, sort)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, res)
}

// ServeSummary handles GET /workorders/summary.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sum, err := h.Orders.Summary(ctx, caller)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.OK(w, sum)
}

// parseFilters reads the list filters. Unknown status or priority values and
// unparseable dates are reported rather than ignored.
func parseFilters(r *http.Request) (orderservice.Filters, error) {
	var f orderservice.Filters
	fields := map[string]string{}

	if s := normalize.QueryParam(query.Get(r, "status")); s != "" && !strings.EqualFold(s, "all") {
		st, ok := models.ParseOrderStatus(s)
		if !ok {
			fields["status"] = "Status is invalid."
		}
		f.Status = st
	}
	if p := normalize.QueryParam(query.Get(r, "priority")); p != "" && !strings.EqualFold(p, "all") {
		pr, ok := models.ParsePriority(p)
		if !ok {
			fields["priority"] = "Priority is invalid."
		}
		f.Priority = pr
	}
	f.Search = normalize.QueryParam(query.Search(r, "search"))

	if d := normalize.QueryParam(query.Get(r, "dateFrom")); d != "" {
		t, err := models.ParseSurveyDate(d)
		if err != nil {
			fields["dateFrom"] = "Date from must be a date (YYYY-MM-DD or RFC 3339)."
		}
		f.DateFrom = t
	}
	if d := normalize.QueryParam(query.Get(r, "dateTo")); d != "" {
		t, err := models.ParseSurveyDate(d)
		if err != nil {
			fields["dateTo"] = "Date to must be a date (YYYY-MM-DD or RFC 3339)."
		}
		// A bare date covers the whole day.
		if len(d) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.DateTo = t
	}

	if len(fields) > 0 {
		return orderservice.Filters{}, &apperr.ValidationError{Fields: fields}
	}
	return f, nil
}
