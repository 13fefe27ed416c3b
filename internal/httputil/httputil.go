// Package httputil holds the JSON helpers every handler uses.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/apperr"
	"github.com/StreetCred/SC-Backend/internal/validation"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every non-2xx answer.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error maps err to a status code and writes an ErrorBody. Internal errors
// are logged and answered with a generic message.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	status := apperr.Status(err)
	body := ErrorBody{Error: apperr.Code(err), Message: err.Error()}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		body.Message = ae.Message
	}
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		log.Error("request failed", zap.Error(err))
		body.Message = "internal error"
	case status == http.StatusServiceUnavailable:
		log.Warn("dependency unavailable", zap.Error(err))
		w.Header().Set("Retry-After", "2")
	}
	JSON(w, status, body)
}

// Decode reads a JSON body into dst and validates it.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperr.Invalid("invalid_json", fmt.Sprintf("invalid request body: %v", err))
	}
	return validation.Struct(dst)
}

// QueryFloat parses a required float query parameter.
func QueryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, apperr.Invalid("missing_"+name, name+" is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperr.Invalid("invalid_"+name, fmt.Sprintf("%s must be a number", name))
	}
	return v, nil
}

// QueryFloatOr parses an optional float query parameter.
func QueryFloatOr(r *http.Request, name string, def float64) (float64, error) {
	if r.URL.Query().Get(name) == "" {
		return def, nil
	}
	return QueryFloat(r, name)
}
