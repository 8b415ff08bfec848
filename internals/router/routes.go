package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/steelcageai/ti-sync/internals/handlers"
)

// New assembles the read-only ops router: liveness, run-state snapshot and metrics
func New(ops *handlers.OpsHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestLogger)

	r.Get("/healthz", ops.Healthz)
	r.Get("/status", ops.Status)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
