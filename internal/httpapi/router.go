package httpapi

import (
	"net/http"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/media"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/middleware"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/service"
)

// NewRouter mounts the batch API behind auth. mediaFiles, when non-nil,
// serves stored payment proofs at media.RefPrefix behind the same auth.
// limiter may be nil.
func NewRouter(svc *service.Service, auth middleware.Authenticator, mediaFiles http.Handler, limiter *middleware.RateLimiter) http.Handler {
	h := &handlers{svc: svc}

	api := http.NewServeMux()
	api.HandleFunc("POST /v1/batches", h.createBatch)
	api.HandleFunc("GET /v1/batches", h.listBatches)
	api.HandleFunc("GET /v1/batches/{id}", h.getBatch)
	api.HandleFunc("PATCH /v1/batches/{id}/status", h.approveBatch)
	api.HandleFunc("PATCH /v1/batches/{id}/work-status", h.updateWorkStatus)
	api.HandleFunc("PATCH /v1/batches/{id}/milestone-status", h.updateWorkStatus)
	api.HandleFunc("PATCH /v1/batches/{id}/approve-work", h.approveWork)
	api.HandleFunc("PATCH /v1/batches/{id}/payment", h.recordPayment)
	api.HandleFunc("GET /v1/batches/{id}/invoice", h.invoiceQuote)
	api.HandleFunc("POST /v1/batches/{id}/invoice-download", h.downloadInvoice)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	apiMiddleware := []func(http.Handler) http.Handler{middleware.Auth(auth)}
	if limiter != nil {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(limiter))
	}
	mux.Handle("/v1/", applyMiddleware(api, apiMiddleware...))
	if mediaFiles != nil {
		mux.Handle("GET "+media.RefPrefix, applyMiddleware(mediaFiles, apiMiddleware...))
	}

	return applyMiddleware(mux,
		middleware.RequestID,
		middleware.Logging,
		middleware.Recovery,
	)
}

func applyMiddleware(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	// Apply in reverse order so first middleware is outermost
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, "healthy", nil)
}
