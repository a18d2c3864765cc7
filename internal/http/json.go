package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/harborline/backoffice/internal/data"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	apperrors "github.com/harborline/backoffice/internal/errors"
	"github.com/harborline/backoffice/internal/ports"
	"github.com/harborline/backoffice/internal/service"
)

// maxJSONBody caps request bodies read by DecodeJSON.
const maxJSONBody = 1 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// writeServiceError maps service and repository errors onto HTTP responses. Unexpected
// errors are logged and answered with a generic 500 so internals never reach the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domainauth.ErrUnauthorized):
		WriteError(w, ErrorParams{
			Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errors.New("authentication required"),
		})
	case errors.Is(err, domainauth.ErrForbidden):
		writeForbidden(w)
	case errors.Is(err, data.ErrShipmentNotFound), errors.Is(err, data.ErrUserNotFound), apperrors.IsNotFound(err):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errors.New("not found")})
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, data.ErrEmailRequired),
		errors.Is(err, domainauth.ErrUnknownRole):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
	case apperrors.IsConflict(err):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "conflict", Err: errors.New("conflict")})
	case errors.Is(err, service.ErrDirectoryFailed), errors.Is(err, ports.ErrStoreUnavailable), apperrors.IsTransient(err):
		logger.ErrorContext(r.Context(), "dependency failure", "path", r.URL.Path, "error", err)
		WriteError(w, ErrorParams{
			Code: http.StatusServiceUnavailable, ErrCode: "unavailable", Err: errors.New("temporarily unavailable"),
		})
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		WriteError(w, ErrorParams{
			Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: errors.New("internal error"),
		})
	}
}
