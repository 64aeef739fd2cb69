package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/planejatrip/internal/domain"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error":{...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestBody answers a request rejected before reaching the service layer
// (missing or malformed body, bad path parameter).
func requestBody(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusBadRequest, "bad_request", message)
}

// writeError maps a service error onto its status code. Internal errors are
// logged and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", domain.Message(err))
	case domain.KindAuthorization:
		if errors.Is(err, domain.ErrForbidden) {
			writeErrorBody(w, http.StatusForbidden, "forbidden", domain.Message(err))
			return
		}
		writeErrorBody(w, http.StatusUnauthorized, "unauthorized", domain.Message(err))
	case domain.KindNotFound:
		writeErrorBody(w, http.StatusNotFound, "not_found", domain.Message(err))
	case domain.KindConflict:
		writeErrorBody(w, http.StatusConflict, "conflict", domain.Message(err))
	case domain.KindTransient:
		s.log.Warn("backend unavailable", "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusServiceUnavailable, "unavailable", "the service is temporarily unavailable, try again")
	default:
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}

// decode reads a JSON body into dst. On failure it writes the response and
// returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		requestBody(w, "request body is required")
		return false
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeErrorBody(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
	case errors.Is(err, openapi_types.ErrValidationEmail):
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "email is not valid")
	default:
		requestBody(w, "request body is not valid JSON")
	}
	return false
}
