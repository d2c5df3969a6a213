package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ignite/marketing-analytics/internal/pkg/httputil"
)

// SetupRoutes builds the router.
func SetupRoutes(h *Handlers, health *HealthChecker, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/live", health.HandleLiveness)
	} else {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			httputil.OK(w, map[string]string{"status": "healthy"})
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Logger)

		r.Post("/campaigns/metrics", h.CampaignMetrics)

		r.Route("/sentiment", func(r chi.Router) {
			r.Post("/train", h.TrainSentiment)
			r.Get("/models/{id}", h.GetModel)
			r.Post("/models/{id}/predict", h.PredictSentiment)
		})

		r.Route("/segments", func(r chi.Router) {
			r.Post("/rfm", h.ComputeRFM)
			r.Post("/cluster", h.ClusterRFM)
		})

		r.Get("/runs/{id}", h.GetRun)
	})

	return r
}
