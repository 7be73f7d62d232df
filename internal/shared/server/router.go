package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"upscale-bot/internal/shared/config"
	"upscale-bot/internal/shared/metrics"
	"upscale-bot/internal/shared/server/middleware"
	"upscale-bot/internal/shared/server/respond"
	"upscale-bot/internal/usage"
)

const webhookPath = "/telegram/webhook/:secret"

// Routes are the handlers the process exposes. Nil entries are not mounted.
type Routes struct {
	// Webhook receives Telegram updates in webhook mode.
	Webhook gin.HandlerFunc
	Usage   *usage.Handler
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, routes Routes) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(rateLimitConfig()),
	)

	r.GET("/healthz", healthHandler(routes.Ready))
	r.GET("/metrics", metrics.Handler())

	if routes.Webhook != nil {
		r.POST(webhookPath, middleware.WebhookSecret(cfg.WebhookSecret), routes.Webhook)
	}

	api := r.Group("/api/v1", middleware.AdminToken(cfg.AdminAPIToken))
	if routes.Usage != nil {
		routes.Usage.RegisterRoutes(api)
	}
	return r
}

func rateLimitConfig() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			if c.FullPath() == webhookPath {
				return "WEBHOOK"
			}
			return "DEFAULT"
		},
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT": {Rate: 2, Burst: 10},
			"WEBHOOK": {Rate: 50, Burst: 200},
		},
	}
}

func healthHandler(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			if err := ready(c.Request.Context()); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "not_ready", err.Error(), nil)
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
