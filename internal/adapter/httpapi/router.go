package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/simaogato/loanscore-backend/internal/metrics"
)

// RouterConfig holds the cross-cutting settings of the HTTP API
type RouterConfig struct {
	AdminToken  string
	RateLimiter *RateLimiter
}

// NewRouter wires the API routes and middleware
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware, LoggingMiddleware(h.Logger), MetricsMiddleware)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/version", h.Version).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Handler)
	}
	api.HandleFunc("/applications", h.Submit).Methods(http.MethodPost)
	api.HandleFunc("/history", h.History).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)
	api.HandleFunc("/options", h.Options).Methods(http.MethodGet)

	admin := api.PathPrefix("/history").Subrouter()
	admin.Use(AdminAuth(cfg.AdminToken))
	admin.HandleFunc("/{id}", h.DeleteRecord).Methods(http.MethodDelete)

	return r
}
