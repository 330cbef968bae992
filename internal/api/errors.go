package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/feedwell/feeder-core/internal/auth"
	"github.com/feedwell/feeder-core/internal/feeder"
	"github.com/feedwell/feeder-core/internal/record"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps domain sentinel errors onto HTTP responses so
// every handler reports the same status for the same failure.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, feeder.ErrFeederNotFound),
		errors.Is(err, feeder.ErrScheduleNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, record.ErrRecordNotFound),
		errors.Is(err, record.ErrMealNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, feeder.ErrFeederExists),
		errors.Is(err, feeder.ErrDuplicateSchedule),
		errors.Is(err, auth.ErrEmailExists):
		writeConflict(w, err.Error())
	case errors.Is(err, feeder.ErrInvalidTimeOfDay),
		errors.Is(err, feeder.ErrInvalidCalories),
		errors.Is(err, feeder.ErrInvalidParams),
		errors.Is(err, record.ErrInvalidStatus),
		errors.Is(err, record.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, feeder.ErrInvalidPassword),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		writeUnauthorized(w, err.Error())
	case errors.Is(err, feeder.ErrUserNotLinked):
		writeForbidden(w, err.Error())
	default:
		writeInternalError(w, "internal server error")
	}
}
