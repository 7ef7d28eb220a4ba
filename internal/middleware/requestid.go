package middleware

import (
	"context"
	"net/http"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/events"
	"github.com/google/uuid"
)

const maxRequestIDLen = 128

// RequestID accepts a caller's X-Request-ID when it is short and printable,
// otherwise mints one. The id is the correlation id of every notification
// dispatched while handling the request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(events.WithCorrelationID(r.Context(), id)))
	})
}

func GetRequestID(ctx context.Context) string {
	return events.CorrelationID(ctx)
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
