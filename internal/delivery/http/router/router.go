package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/applicant-harvester/internal/delivery/http/handler"
	"github.com/user/applicant-harvester/internal/delivery/http/middleware"
)

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Long-lived stream, kept out of the request timeout.
		r.Get("/events", h.HandleEvents)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))
			r.Get("/health", h.HandleHealthCheck)
			r.Post("/extract", h.HandleExtract)
			r.Post("/stop", h.HandleStop)
			r.Get("/status", h.HandleStatus)
			r.Post("/export", h.HandleExport)
		})
	})

	return r
}
