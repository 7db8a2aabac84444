package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"insights-backend/internal/shared/config"
	"insights-backend/internal/shared/metrics"
	"insights-backend/internal/shared/server/middleware"
	"insights-backend/internal/shared/server/respond"
)

// Routes is implemented by every feature handler.
type Routes interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps are the collaborators the router needs.
type RouterDeps struct {
	Config      config.Config
	Revocations middleware.Revoker
	// Limiter is shared across requests; nil builds a fresh one.
	Limiter *middleware.RateLimiter
	// Health reports backing store reachability; nil means always healthy.
	Health   func(ctx context.Context) error
	Handlers []Routes
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(deps.Revocations),
		middleware.RateLimit(rateLimitConfig(deps)),
	)
	api.GET("/health", healthHandler(deps.Health))
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}
	return r
}

func rateLimitConfig(deps RouterDeps) middleware.RateLimitConfig {
	def := middleware.RateLimitRule{Rate: deps.Config.RateLimitRPS, Burst: deps.Config.RateLimitBurst}
	if def.Rate <= 0 {
		def.Rate = 5
	}
	if def.Burst <= 0 {
		def.Burst = 20
	}
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			middleware.DefaultRateLimitGroup: def,
			middleware.UploadRateLimitGroup:  {Rate: 0.5, Burst: 3},
		},
		GroupFor: middleware.UploadGroup,
		Limiter:  deps.Limiter,
	}
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "database": "unreachable"})
				return
			}
		}
		respond.OK(c, gin.H{"ok": true})
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
