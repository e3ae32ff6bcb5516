package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/commands/bus"
	querybus "github.com/CivicGraph/demo-server/application/queries/bus"
	"github.com/CivicGraph/demo-server/interfaces/http/rest/handlers"
	"github.com/CivicGraph/demo-server/interfaces/http/rest/middleware"
	"github.com/CivicGraph/demo-server/pkg/auth"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options toggles the optional parts of the router.
type Options struct {
	EnableCORS   bool
	StaticDir    string
	XRaySegment  string
	MetricsRoute http.Handler
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	errorHandler *apperrors.ErrorHandler
	validator    *auth.JWTValidator
	recorder     middleware.RequestRecorder
	probes       map[string]Pinger
	opts         Options
	logger       *zap.Logger
}

// NewRouter creates a new router instance. validator may be nil to serve
// the API without authentication.
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	validator *auth.JWTValidator,
	recorder middleware.RequestRecorder,
	probes map[string]Pinger,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		validator:    validator,
		recorder:     recorder,
		probes:       probes,
		opts:         opts,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.recorder != nil {
		router.Use(middleware.Metrics(rt.recorder))
	}

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.SessionHeader},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.MetricsRoute != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.MetricsRoute)
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.errorHandler, rt.logger))

		lineage := handlers.NewLineageHandler(rt.commandBus, rt.queryBus, rt.errorHandler, rt.logger)
		r.HandleFunc("/{op}", lineage.Dispatch)
	})

	if rt.opts.StaticDir != "" {
		router.Handle("/*", http.FileServer(http.Dir(rt.opts.StaticDir)))
	}

	if rt.opts.XRaySegment != "" {
		return xray.Handler(xray.NewFixedSegmentNamer(rt.opts.XRaySegment), router)
	}
	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck pings every dependency and reports each one.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(rt.probes))
	for name, probe := range rt.probes {
		if err := probe.Ping(ctx); err != nil {
			rt.logger.Warn("Readiness probe failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]interface{}{"status": "ready", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
