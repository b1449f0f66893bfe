// internal/app/system/respond/respond.go
//
// Package respond writes JSON responses and maps apperr kinds to status
// codes and bodies.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"go.uber.org/zap"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	Current   string            `json:"current,omitempty"`
	Requested string            `json:"requested,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { JSON(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { JSON(w, http.StatusCreated, v) }

// NoContent writes 204.
func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// Message writes {"error": msg} with status.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// Error maps err to a status code and body. Server-side failures are
// logged and reported without their detail.
//
//	ValidationError        400 {error, fields}
//	ErrNotFound            404 {error}
//	InvalidTransitionError 409 {error, current, requested}
//	ErrConflict            409 {error}
//	anything else          500 {error}
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	body := ErrorBody{Error: err.Error()}

	var ve *apperr.ValidationError
	var te *apperr.InvalidTransitionError
	switch {
	case errors.As(err, &ve):
		body.Error = "Validation failed"
		body.Fields = ve.Fields
	case errors.As(err, &te):
		body.Error = fmt.Sprintf("Cannot change status from %s to %s", te.Current, te.Requested)
		body.Current = te.Current
		body.Requested = te.Requested
	case status == http.StatusNotFound:
		body.Error = "Not found"
	case errors.Is(err, apperr.ErrConflict):
		body.Error = "The record was modified by someone else. Reload and try again."
	case status >= http.StatusInternalServerError:
		if log != nil {
			log.Error("request failed", zap.Error(err))
		}
		body.Error = "Internal server error"
	}
	JSON(w, status, body)
}

// Decode reads a JSON body into v. Malformed JSON is reported as a
// ValidationError on "body".
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		var ute *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Invalid("body", "Request body is required.")
		case errors.As(err, &mbe):
			return apperr.Invalid("body", "Request body is too large.")
		case errors.As(err, &ute) && ute.Field != "":
			return apperr.Invalid(ute.Field, "Has the wrong type.")
		default:
			return apperr.Invalid("body", "Request body is not valid JSON.")
		}
	}
	return nil
}
