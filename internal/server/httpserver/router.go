package httpserver

import (
	"net/http"

	"github.com/yndnr/kvmesh-go/internal/core/service"
	"github.com/yndnr/kvmesh-go/internal/server/config"
	"github.com/yndnr/kvmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
	"github.com/yndnr/kvmesh-go/pkg/ratelimit"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Service *service.KVService
	Logger  logger.Logger

	// Metrics receives request observations and serves /metrics.
	// Nil disables both.
	Metrics *metric.Registry

	// CORSAllowedOrigins is the list of allowed CORS origins. CORS headers
	// are only sent when the list is non-empty.
	CORSAllowedOrigins []string

	RateLimit   config.RateLimitConfig
	EnableAudit bool
}

// RouterConfigFrom builds a RouterConfig from the HTTP server section.
func RouterConfigFrom(cfg config.HTTPConfig, svc *service.KVService, l logger.Logger, reg *metric.Registry) RouterConfig {
	return RouterConfig{
		Service:            svc,
		Logger:             l,
		Metrics:            reg,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          cfg.RateLimit,
		EnableAudit:        cfg.EnableAudit,
	}
}

// NewRouter creates the HTTP handler with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNop()
	}

	hcfg := handler.Config{Service: cfg.Service, Logger: l}
	if cfg.Metrics != nil {
		hcfg.Metrics = cfg.Metrics.Handler()
	}
	h := handler.New(hcfg)

	// Order: Recover -> CORS -> RequestID -> RateLimit -> Audit -> Metrics -> Handler
	middlewares := []Middleware{Recover(l)}
	if len(cfg.CORSAllowedOrigins) > 0 {
		middlewares = append(middlewares, CORS(cfg.CORSAllowedOrigins))
	}
	middlewares = append(middlewares, RequestID())
	if cfg.RateLimit.Enabled {
		middlewares = append(middlewares, RateLimit(ratelimit.New(cfg.RateLimit.Rate, cfg.RateLimit.Burst)))
	}
	if cfg.EnableAudit {
		middlewares = append(middlewares, Audit(l))
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, Metrics(cfg.Metrics))
	}

	return Chain(h, middlewares...)
}
