// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/store/audit"
	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/app/system/normalize"
	"github.com/dalemusser/confinedspace/internal/app/system/paging"
	"github.com/dalemusser/confinedspace/internal/app/system/respond"
	"github.com/dalemusser/confinedspace/internal/app/system/timeouts"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxPageSize = 100

type listResponse struct {
	Items      []audit.Event `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"totalPages"`
}

// ServeList handles GET /audit.
//
// Query: page, limit, category, eventType, userId, dateFrom, dateTo.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	pg := paging.ParsePage(r, maxPageSize)
	filter.Limit = int64(pg.Limit)
	filter.Offset = pg.Skip()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	events, err := h.Store.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	total, err := h.Store.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respond.OK(w, listResponse{
		Items:      events,
		Total:      total,
		Page:       pg.Number,
		Limit:      pg.Limit,
		TotalPages: paging.TotalPages(total, pg.Limit),
	})
}

// ServeFailedLogins handles GET /audit/failed-logins?hours=N (default 24).
func (h *Handler) ServeFailedLogins(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if s := normalize.QueryParam(query.Get(r, "hours")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 24*30 {
			respond.Error(w, h.Log, apperr.Invalid("hours", "Hours must be between 1 and 720."))
			return
		}
		hours = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	events, err := h.Store.GetFailedLogins(ctx, since, maxPageSize)
	if err != nil {
		h.Log.Error("failed to query failed logins", zap.Error(err))
		respond.Message(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respond.OK(w, map[string]any{"items": events, "since": since})
}

func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	var f audit.QueryFilter
	fields := map[string]string{}

	if c := normalize.QueryParam(query.Get(r, "category")); c != "" {
		if c != audit.CategoryAuth && c != audit.CategoryAdmin {
			fields["category"] = "Category must be one of: auth, admin."
		}
		f.Category = c
	}
	f.EventType = normalize.QueryParam(query.Get(r, "eventType"))

	if s := normalize.QueryParam(query.Get(r, "userId")); s != "" {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			fields["userId"] = "User id must be a valid id."
		} else {
			f.UserID = &oid
		}
	}
	if d := normalize.QueryParam(query.Get(r, "dateFrom")); d != "" {
		t, err := models.ParseSurveyDate(d)
		if err != nil {
			fields["dateFrom"] = "Date from must be a date (YYYY-MM-DD or RFC 3339)."
		} else {
			f.StartTime = &t
		}
	}
	if d := normalize.QueryParam(query.Get(r, "dateTo")); d != "" {
		t, err := models.ParseSurveyDate(d)
		if err != nil {
			fields["dateTo"] = "Date to must be a date (YYYY-MM-DD or RFC 3339)."
		} else {
			if len(d) == len("2006-01-02") {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			f.EndTime = &t
		}
	}

	if len(fields) > 0 {
		return audit.QueryFilter{}, &apperr.ValidationError{Fields: fields}
	}
	return f, nil
}
