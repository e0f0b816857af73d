package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// NewOpsRouter serves /health and /metrics on the operations listener
func NewOpsRouter(m *Metrics, checks map[string]HealthCheck) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", handleHealth(checks))
	r.Method(http.MethodGet, "/metrics", m.MetricsHandler())

	return r
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "healthy"
		code := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = "unhealthy"
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "healthy"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       status,
			"service":      "cryptosniper-ops",
			"dependencies": deps,
			"timestamp":    time.Now().Format(time.RFC3339),
		})
	}
}
