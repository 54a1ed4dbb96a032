package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sellora-tech/catalog-pipeline/pkg/logger"
)

// Pinger проверяет доступность внешней зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

// Init регистрирует служебные маршруты: /healthz и /metrics.
func (r *Router) Init(registry *prometheus.Registry, deps map[string]Pinger) {
	r.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.router.Get("/healthz", r.healthz(deps))
}

func (r *Router) healthz(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(deps))
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				r.logger.Warnf("healthz: %s unavailable: %v", name, err)
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(checks); err != nil {
			r.logger.Warnf("healthz: response encode failed: %v", err)
		}
	}
}
