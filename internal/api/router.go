package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/agentspeak/internal/api/handlers"
	mw "github.com/Harshitk-cp/agentspeak/internal/api/middleware"
	"github.com/Harshitk-cp/agentspeak/internal/buildconfig"
	"github.com/Harshitk-cp/agentspeak/internal/metrics"
	"github.com/Harshitk-cp/agentspeak/internal/service"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Options configures the HTTP surface.
type Options struct {
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Metrics records per-route request counters. Nil disables them.
	Metrics *metrics.Collector
	Health  HealthCheck
}

// App holds the router and the background resources tied to it.
type App struct {
	Router    *chi.Mux
	startTime time.Time
	stopCh    chan struct{}
}

func NewApp(agents *service.AgentService, opts Options, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	agentHandler := handlers.NewAgentHandler(agents)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	if opts.Metrics != nil {
		r.Use(mw.Metrics(opts.Metrics))
	}
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	if opts.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst, app.stopCh))
	}

	// Health and metrics (no auth)
	r.Get("/health", app.healthHandler(opts.Health))
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(opts.APIKey))

		r.Route("/agents", func(r chi.Router) {
			r.Post("/", agentHandler.Create)
			r.Get("/", agentHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", agentHandler.GetByID)
				r.Delete("/", agentHandler.Delete)
				r.Post("/percepts", agentHandler.AddPercept)
				r.Delete("/percepts", agentHandler.RemovePercept)
				r.Post("/goals", agentHandler.PostGoal)
				r.Delete("/goals", agentHandler.DropGoal)
				r.Post("/step", agentHandler.Step)
			})
		})
	})

	return app
}

// Close stops the router's background goroutines.
func (app *App) Close() {
	close(app.stopCh)
}

func (app *App) healthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		uptime := time.Since(app.startTime).Round(time.Second).String()
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"uptime": uptime,
			"build":  buildconfig.Current(),
		})
	}
}
