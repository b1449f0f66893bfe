// internal/app/policy/orderpolicy/orderpolicy.go
package orderpolicy

import (
	"regexp"
	"strings"

	"github.com/dalemusser/confinedspace/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles recognized by the work-order policy. Any other role is treated as RoleUser.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleTechnician = "technician"
	RoleUser       = "user"
)

// Caller is the identity the order operations act on behalf of.
type Caller struct {
	ID        primitive.ObjectID
	Role      string
	FirstName string
	LastName  string
}

// DisplayName is the "First Last" form used in workflow history.
func (c Caller) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// Unrestricted reports whether the caller sees every order.
func (c Caller) Unrestricted() bool {
	switch strings.ToLower(c.Role) {
	case RoleAdmin, RoleManager:
		return true
	}
	return false
}

// IsTechnician reports whether the caller is scoped by the technician field.
func (c Caller) IsTechnician() bool {
	return strings.ToLower(c.Role) == RoleTechnician
}

// TechnicianMatcher produces the regular expressions (without flags) that
// decide whether an order's free-text technician field belongs to a
// technician. All patterns are applied case-insensitively.
type TechnicianMatcher interface {
	Patterns(firstName, lastName string) []string
}

// NameVariants is the default matcher. It accepts "First Last", "Last, First"
// and "Last First" as whole values, and any value containing the first name.
//
// The first-name rule is loose on purpose: technician is typed by hand, so
// two technicians sharing a first name see each other's orders.
type NameVariants struct{}

// Patterns implements TechnicianMatcher.
func (NameVariants) Patterns(firstName, lastName string) []string {
	first := regexp.QuoteMeta(strings.TrimSpace(firstName))
	last := regexp.QuoteMeta(strings.TrimSpace(lastName))

	var out []string
	if first != "" && last != "" {
		out = append(out,
			`^\s*`+first+`\s+`+last+`\s*$`,
			`^\s*`+last+`\s*,\s*`+first+`\s*$`,
			`^\s*`+last+`\s+`+first+`\s*$`,
		)
	}
	if first != "" {
		out = append(out, first)
	}
	return out
}

// Policy builds the scoping predicate for order queries.
type Policy struct {
	matcher TechnicianMatcher
}

// New returns a Policy using m, or NameVariants when m is nil.
func New(m TechnicianMatcher) *Policy {
	if m == nil {
		m = NameVariants{}
	}
	return &Policy{matcher: m}
}

// Default is the policy used across the service.
var Default = New(nil)

// matchNothing can never be satisfied; _id always exists.
var matchNothing = bson.M{"_id": bson.M{"$exists": false}}

// Scope returns the filter restricting orders to what the caller may see.
//
//   - admin, manager: no restriction (empty document)
//   - technician: technician field matches one of the matcher's patterns
//   - anyone else: user_id equals the caller's id
func (p *Policy) Scope(c Caller) bson.M {
	switch {
	case c.Unrestricted():
		return bson.M{}
	case c.IsTechnician():
		pats := p.matcher.Patterns(c.FirstName, c.LastName)
		if len(pats) == 0 {
			return matchNothing
		}
		or := make(bson.A, 0, len(pats))
		for _, pat := range pats {
			or = append(or, bson.M{"technician": primitive.Regex{Pattern: pat, Options: "i"}})
		}
		return bson.M{"$or": or}
	default:
		if c.ID.IsZero() {
			return matchNothing
		}
		return bson.M{"user_id": c.ID}
	}
}

// Within ANDs the caller's scope with filter. Empty parts are dropped so an
// unrestricted caller with no filter yields an empty document.
func (p *Policy) Within(c Caller, filter bson.M) bson.M {
	scope := p.Scope(c)
	switch {
	case len(scope) == 0 && len(filter) == 0:
		return bson.M{}
	case len(scope) == 0:
		return filter
	case len(filter) == 0:
		return scope
	}
	return bson.M{"$and": bson.A{scope, filter}}
}

// Matches evaluates the scope against an order in memory.
func (p *Policy) Matches(c Caller, o models.Order) bool {
	switch {
	case c.Unrestricted():
		return true
	case c.IsTechnician():
		for _, pat := range p.matcher.Patterns(c.FirstName, c.LastName) {
			re, err := regexp.Compile("(?i)" + pat)
			if err != nil {
				continue
			}
			if re.MatchString(o.Technician) {
				return true
			}
		}
		return false
	default:
		return !c.ID.IsZero() && o.UserID == c.ID
	}
}

// Scope calls Default.Scope.
func Scope(c Caller) bson.M { return Default.Scope(c) }

// Within calls Default.Within.
func Within(c Caller, filter bson.M) bson.M { return Default.Within(c, filter) }

// Matches calls Default.Matches.
func Matches(c Caller, o models.Order) bool { return Default.Matches(c, o) }
