// internal/app/system/inputval/inputval.go
//
// Package inputval wraps go-playground/validator with the project's custom
// rules and turns validator errors into per-field messages keyed by the
// field's JSON name.
package inputval

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return IsValidObjectID(fl.Field().String())
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return IsValidHTTPURL(fl.Field().String())
	})
	_ = v.RegisterValidation("imageurl", func(fl validator.FieldLevel) bool {
		return IsValidImageURL(fl.Field().String())
	})
	_ = v.RegisterValidation("surveydate", func(fl validator.FieldLevel) bool {
		_, err := models.ParseSurveyDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return IsValidRole(fl.Field().String())
	})

	return v
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string // JSON path, e.g. "surveyors[0]"
	Message string
}

// Result collects the failures for one value.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Fields returns field -> message, keeping the first message per field.
func (r *Result) Fields() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

// Err returns nil when valid, otherwise an *apperr.ValidationError.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return &apperr.ValidationError{Fields: r.Fields()}
}

// Validate runs the struct's `validate` tags. Messages use the `label` tag
// when present and the JSON name otherwise.
func Validate(v any) *Result {
	res := &Result{}
	err := validate.Struct(v)
	if err == nil {
		return res
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.Errors = append(res.Errors, FieldError{Field: "_", Message: err.Error()})
		return res
	}

	rt := reflect.TypeOf(v)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		res.Errors = append(res.Errors, FieldError{
			Field:   field,
			Message: message(fe, labelFor(rt, fe, field)),
		})
	}
	return res
}

// Struct validates v and returns an *apperr.ValidationError or nil.
func Struct(v any) error {
	return Validate(v).Err()
}

// fieldPath drops the leading struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func labelFor(rt reflect.Type, fe validator.FieldError, field string) string {
	if rt.Kind() == reflect.Struct {
		sns := fieldPath(fe.StructNamespace())
		top := sns
		if i := strings.IndexAny(top, ".["); i >= 0 {
			top = top[:i]
		}
		if sf, ok := rt.FieldByName(top); ok {
			if l := sf.Tag.Get("label"); l != "" {
				if i := strings.IndexByte(field, '['); i >= 0 {
					return l + " " + field[i:]
				}
				return l
			}
		}
	}
	return field
}

func message(fe validator.FieldError, label string) string {
	kind := fe.Kind()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "min":
		switch kind {
		case reflect.String:
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must have at least %s item(s).", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "max":
		switch kind {
		case reflect.String:
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must have at most %s item(s).", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return label + " must be a valid id."
	case "httpurl", "imageurl", "url":
		return label + " must be a valid URL."
	case "surveydate":
		return label + " must be a date (YYYY-MM-DD or RFC 3339)."
	case "role":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.Join(AllowedRolesList(), ", "))
	}
	return label + " is invalid."
}

/*─────────────────────────────────────────────────────────────────────────────*
| Single-value helpers                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// IsValidEmail reports whether s is a bare address (no display name).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return validate.Var(s, "email") == nil
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	return primitive.IsValidObjectID(strings.TrimSpace(s))
}

// IsValidHTTPURL reports whether s is an absolute http or https URL with a host.
func IsValidHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidImageURL accepts an absolute http(s) URL or a root-relative path
// such as the ones local blob storage hands out.
func IsValidImageURL(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		_, err := url.Parse(s)
		return err == nil
	}
	return IsValidHTTPURL(s)
}

var allowedRoles = []string{"admin", "manager", "technician", "user"}

// AllowedRolesList returns the assignable roles in display order.
func AllowedRolesList() []string {
	out := make([]string, len(allowedRoles))
	copy(out, allowedRoles)
	return out
}

// IsValidRole reports whether s (case-insensitive) is an assignable role.
func IsValidRole(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range allowedRoles {
		if s == r {
			return true
		}
	}
	return false
}
