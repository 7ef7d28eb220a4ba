package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/apperr"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/middleware"
)

const maxJSONBody = 1 << 20

var errBadBody = apperr.Validation("invalid request body")

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: status < 400, Message: message, Data: data})
}

// respondError maps an error to its status and writes the caller-facing
// message. Unclassified failures are logged and reported as internal.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request_failed",
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}
	respondJSON(w, status, apperr.Message(err), nil)
}

func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindPrecondition:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return errBadBody
	}
	defer func() { _ = r.Body.Close() }()
	if err := json.Unmarshal(body, v); err != nil {
		return errBadBody
	}
	return nil
}
