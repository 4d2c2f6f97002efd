// Package router assembles the Gin engine from the registered modules.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	apphttp "github.com/DataCleaninghash/CustomerAII/internal/http"
	"github.com/DataCleaninghash/CustomerAII/platform/httpkit"
)

const (
	// Baseline per-IP budget for the whole API. Intake-style endpoints carry
	// their own stricter limiter on top.
	requestsPerSecond = 100.0 / 60.0
	requestBurst      = 20

	healthPingTimeout = 2 * time.Second
)

// RoleOps marks operators allowed to use the /api/v1/internal surface.
const RoleOps = "ops"

// New builds the engine: global middleware, the health endpoint and every
// module's routes under /api/v1.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))

	limiter := httpkit.NewIPRateLimiter(requestsPerSecond, requestBurst, app.Logger)
	engine.Use(limiter.RateLimit())

	engine.GET("/api/health", healthHandler(app.Health))

	v1 := engine.Group("/api/v1")

	protected := v1.Group("")
	protected.Use(httpkit.AuthRequired(app.Config))

	internal := protected.Group("/internal")
	internal.Use(httpkit.RequireRole(RoleOps))

	ctx := &apphttp.RouterContext{
		Protected:     protected,
		Internal:      internal,
		IntakeLimiter: httpkit.NewIntakeRateLimiter(app.Logger),
	}

	for _, m := range app.Modules {
		m.RegisterRoutes(ctx)
		app.Logger.Info("registered http module", "module", m.Name())
	}

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}

	if cfg.GetCORSAllowAll() {
		// cors rejects credentialed requests against a wildcard origin.
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
		return corsCfg
	}

	corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	return corsCfg
}

func healthHandler(health apphttp.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()

		if err := health.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
