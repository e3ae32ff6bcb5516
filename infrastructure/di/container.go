package di

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/commands/bus"
	"github.com/CivicGraph/demo-server/application/ports"
	querybus "github.com/CivicGraph/demo-server/application/queries/bus"
	"github.com/CivicGraph/demo-server/infrastructure/config"
	"github.com/CivicGraph/demo-server/infrastructure/observability"
	"github.com/CivicGraph/demo-server/interfaces/http/rest"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
	"github.com/CivicGraph/demo-server/pkg/auth"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	LogLevel     zap.AtomicLevel
	Metrics      *observability.Collector
	Tracing      *observability.TracerProvider
	Store        ports.GraphStore
	Registry     ports.SessionRegistry
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	ErrorHandler *apperrors.ErrorHandler
	JWTValidator *auth.JWTValidator
}

// HTTPHandler builds the REST router over the container's buses.
func (c *Container) HTTPHandler() http.Handler {
	opts := rest.Options{
		EnableCORS: c.Config.EnableCORS,
		StaticDir:  c.Config.StaticDir,
	}
	if c.Config.EnableMetrics {
		opts.MetricsRoute = c.Metrics.Handler()
	}
	if c.Config.EnableXRay {
		opts.XRaySegment = serviceName
	}
	probes := map[string]rest.Pinger{
		"store":    c.Store,
		"registry": c.Registry,
	}
	return rest.NewRouter(
		c.CommandBus,
		c.QueryBus,
		c.ErrorHandler,
		c.JWTValidator,
		c.Metrics,
		probes,
		opts,
		c.Logger,
	).Setup()
}
