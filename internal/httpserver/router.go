// Package httpserver assembles the chi router for the community service.
package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"conu-community/internal/handlers"
	"conu-community/internal/metrics"
	"conu-community/internal/middleware"
)

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, communityHandler *handlers.CommunityHandler) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())               // panic recovery
	r.Use(middleware.Timeout(15 * time.Second)) // request timeout

	// routes
	r.Route("/api/reddit", func(r chi.Router) {
		r.Get("/search", communityHandler.Search)
		r.Get("/answer", communityHandler.Answer)
	})

	// health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":   true,
			"time": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Handle("/metrics", metrics.Handler())
}
