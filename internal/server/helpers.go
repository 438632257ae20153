package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/playground/internal/models"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// Error codes returned in ErrorResponse.Code
const (
	CodeInvalidOrder       = "invalid_order"
	CodeInsufficientFunds  = "insufficient_funds"
	CodeInsufficientShares = "insufficient_shares"
	CodeConflict           = "conflict"
	CodeUnavailable        = "unavailable"
	CodeInternal           = "internal"
)

// WriteServiceError maps a service error onto a status, code and
// user-facing message.
func WriteServiceError(w http.ResponseWriter, err error) {
	status, code, message := classifyError(err)
	WriteErrorWithCode(w, status, message, code)
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, models.ErrInvalidOrder):
		return http.StatusBadRequest, CodeInvalidOrder, err.Error()
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, CodeInsufficientFunds, "Insufficient cash to complete this purchase."
	case errors.Is(err, models.ErrInsufficientShares):
		return http.StatusUnprocessableEntity, CodeInsufficientShares, err.Error()
	case errors.Is(err, models.ErrTransientStoreConflict):
		return http.StatusConflict, CodeConflict, "The portfolio is busy. Please try again."
	case errors.Is(err, models.ErrCollaboratorUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable, "Market data is unavailable right now. Please try again later."
	default:
		return http.StatusInternalServerError, CodeInternal, "An unexpected error occurred."
	}
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.Body == http.NoBody {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// PathParam extracts a path parameter from the URL path.
// For /api/playground/quote/{ticker}, PathParam(r, "/api/playground/quote/", "")
// extracts the {ticker} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix: return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}
