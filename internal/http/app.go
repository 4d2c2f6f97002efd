// Package http defines the seam between the composition root and the router:
// main wires dependencies into an App, each bounded context exposes itself as
// a Module, and the router mounts every module without knowing its routes.
package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/httpkit"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// RouterConfig is the slice of configuration the router needs.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker answers the readiness probe, typically a database ping.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App carries everything the router needs to serve traffic.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}

// Module is a bounded context that mounts its own routes. The router stays
// ignorant of individual endpoints; adding a feature means adding a module
// to the App, not editing the router.
type Module interface {
	// Name identifies the module in startup logs.
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext hands modules the route groups and shared middleware they
// mount onto.
type RouterContext struct {
	// Protected requires a valid access token.
	Protected *gin.RouterGroup
	// Internal additionally requires the ops role.
	Internal *gin.RouterGroup
	// IntakeLimiter is the stricter per-IP limiter for endpoints that fan
	// out to paid upstream services (intake, call placement, resolution).
	IntakeLimiter *httpkit.IntakeRateLimiter
}
