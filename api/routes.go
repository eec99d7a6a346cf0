package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CreativeUnicorns/cinehub/auth"
)

func (s *Server) setupRoutes() {
	// Middleware stack
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(MetricsMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/users", func(r chi.Router) {
			r.With(auth.RequireAdmin(s.tokens)).Post("/prefType", s.handleAddPrefType)
			r.With(auth.RequireUser(s.tokens)).Get("/prefType", s.handleListPrefTypes)

			r.Route("/me/prefs", func(r chi.Router) {
				r.Use(auth.RequireUser(s.tokens))
				r.Get("/", s.handleGetMyPrefs)
				r.Put("/", s.handlePutMyPrefs)
			})
		})

		if s.streams != nil {
			r.Get("/streams", s.handleStream)
			r.Head("/streams", s.handleStream)
		}

		if s.events != nil {
			r.Handle("/events", s.events)
		}
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
