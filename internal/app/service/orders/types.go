package orderservice

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/app/system/htmlsanitize"
	"github.com/dalemusser/confinedspace/internal/app/system/inputval"
	"github.com/dalemusser/confinedspace/internal/app/system/orderflow"
	"github.com/dalemusser/confinedspace/internal/app/system/paging"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SortFields maps the client's sort names to stored fields.
var SortFields = map[string]string{
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"dateOfSurvey": "date_of_survey",
	"priority":     "priority",
	"status":       "status",
	"workOrderId":  "work_order_id",
	"uniqueId":     "unique_id",
}

// DefaultSort is newest first.
var DefaultSort = paging.Sort{Field: "created_at", Desc: true}

// searchFields are matched by Filters.Search.
var searchFields = []string{
	"space_name",
	"building",
	"location_description",
	"technician",
	"unique_id",
	"work_order_id",
}

// Filters narrows a list or export. Zero values mean "any".
type Filters struct {
	Status   models.OrderStatus
	Priority models.Priority
	Search   string
	DateFrom time.Time // inclusive, on dateOfSurvey
	DateTo   time.Time // inclusive
}

// Doc renders f as a Mongo filter. Search is a literal, case-insensitive
// substring match across searchFields.
func (f Filters) Doc() bson.M {
	doc := bson.M{}
	if f.Status != "" {
		doc["status"] = f.Status
	}
	if f.Priority != "" {
		doc["priority"] = f.Priority
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		or := make(bson.A, 0, len(searchFields))
		for _, field := range searchFields {
			or = append(or, bson.M{field: re})
		}
		doc["$or"] = or
	}
	if !f.DateFrom.IsZero() || !f.DateTo.IsZero() {
		rng := bson.M{}
		if !f.DateFrom.IsZero() {
			rng["$gte"] = f.DateFrom.UTC()
		}
		if !f.DateTo.IsZero() {
			rng["$lte"] = f.DateTo.UTC()
		}
		doc["date_of_survey"] = rng
	}
	return doc
}

// ListResult is one page of orders.
type ListResult struct {
	Items      []models.Order `json:"items"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
	TotalItems int64          `json:"totalItems"`
}

// BulkResult reports a bulk status change. Requested = Updated + Skipped
// unless the context was cancelled mid-batch.
type BulkResult struct {
	Requested int           `json:"requested"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Failures  []BulkFailure `json:"failures,omitempty"`

	// Incomplete is set when the context ended before every id was tried.
	// Ids past the stopping point are neither updated nor skipped.
	Incomplete bool `json:"incomplete,omitempty"`
}

// BulkFailure says why one id was skipped.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Summary counts visible orders by status.
type Summary struct {
	Total    int64                        `json:"total"`
	ByStatus map[models.OrderStatus]int64 `json:"byStatus"`
}

type imageList struct {
	URLs []string `json:"imageUrls" label:"Image URLs" validate:"required,min=1,max=50,dive,required,imageurl"`
}

func validate(v any) error {
	return inputval.Struct(v)
}

func checkTransition(from, to models.OrderStatus) error {
	return orderflow.Check(from, to)
}

func skipReason(err error) string {
	var te *apperr.InvalidTransitionError
	switch {
	case errors.As(err, &te):
		return "invalid transition from " + te.Current
	case apperr.IsNotFound(err):
		return "not found"
	case errors.Is(err, apperr.ErrConflict):
		return "modified concurrently"
	default:
		return "update failed"
	}
}

func findOptions(pg paging.Page, sort paging.Sort) *options.FindOptions {
	if sort.Field == "" {
		sort = DefaultSort
	}
	opts := options.Find()
	paging.ApplyToFind(opts, pg, sort)
	return opts
}

func trimmed(s string) string { return strings.TrimSpace(s) }

func sanitize(s string) string { return htmlsanitize.PlainText(strings.TrimSpace(s)) }

// sanitizeOrder strips markup from every free-text field of o.
func sanitizeOrder(o *models.Order) {
	for _, p := range []*string{
		&o.SpaceName,
		&o.Building,
		&o.LocationDescription,
		&o.SpaceDescription,
		&o.Technician,
		&o.AssignedTo,
		&o.Notes,
		&o.EntryRequirements,
		&o.AtmosphericHazardDescription,
		&o.EngulfmentHazardDescription,
		&o.ConfigurationHazardDescription,
		&o.OtherHazardsDescription,
		&o.PPEList,
	} {
		*p = sanitize(*p)
	}
	o.Surveyors = htmlsanitize.PlainTextAll(o.Surveyors)
}

// sanitizeSet strips markup from the string values of a $set document.
func sanitizeSet(set bson.M) {
	for k, v := range set {
		switch v := v.(type) {
		case string:
			set[k] = sanitize(v)
		case []string:
			set[k] = htmlsanitize.PlainTextAll(v)
		}
	}
}
