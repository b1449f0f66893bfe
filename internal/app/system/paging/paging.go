// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the page size used when the client does not send one.
const DefaultLimit = 10

// MaxLimit caps the page size a client may request.
const MaxLimit = 100

// Page is a 1-based page number plus page size.
type Page struct {
	Number int
	Limit  int
}

// Normalize clamps p into range: Number >= 1, 1 <= Limit <= maxLimit.
// A non-positive maxLimit means MaxLimit.
func (p Page) Normalize(maxLimit int) Page {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// Skip is the number of documents before this page.
func (p Page) Skip() int64 {
	if p.Number < 1 {
		return 0
	}
	return int64(p.Number-1) * int64(p.Limit)
}

// TotalPages is ceil(total/limit); 0 when there is nothing to show.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// ParsePage reads "page" and "limit" from the query string.
// Missing or malformed values fall back to page 1 and DefaultLimit.
func ParsePage(r *http.Request, maxLimit int) Page {
	p := Page{Number: atoi(query.Get(r, "page")), Limit: atoi(query.Get(r, "limit"))}
	return p.Normalize(maxLimit)
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// Sort is a single-key sort on a stored field.
type Sort struct {
	Field string // bson field name
	Desc  bool
}

// ParseSort reads "sort" (a client field name) and "order" (asc|desc).
// allowed maps client names to bson field names; anything not in it falls
// back to def. Order defaults to descending.
func ParseSort(r *http.Request, allowed map[string]string, def Sort) Sort {
	s := def
	if name := query.Get(r, "sort"); name != "" {
		if field, ok := allowed[name]; ok {
			s.Field = field
		}
	}
	switch strings.ToLower(query.Get(r, "order")) {
	case "asc", "1":
		s.Desc = false
	case "desc", "-1":
		s.Desc = true
	}
	return s
}

// Doc returns the sort document with _id as a tiebreaker for stable pages.
func (s Sort) Doc() bson.D {
	dir := 1
	if s.Desc {
		dir = -1
	}
	if s.Field == "" || s.Field == "_id" {
		return bson.D{{Key: "_id", Value: dir}}
	}
	return bson.D{{Key: s.Field, Value: dir}, {Key: "_id", Value: dir}}
}

// ApplyToFind sets sort, skip and limit on find.
func ApplyToFind(find *options.FindOptions, p Page, s Sort) {
	find.SetSort(s.Doc()).SetSkip(p.Skip()).SetLimit(int64(p.Limit))
}
