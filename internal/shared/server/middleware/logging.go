package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"upscale-bot/internal/shared/telemetry"
)

// quietPaths are probed constantly and only logged at debug level.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// Logging emits one structured line per completed request. The level follows
// the response status.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		status := c.Writer.Status()

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
		}
		if principal := PrincipalFromContext(c); principal != "" {
			fields["principal"] = principal
		}
		if updateID, ok := c.Get("updateId"); ok {
			fields["update_id"] = updateID
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		case quietPaths[c.Request.URL.Path]:
			telemetry.Debug("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
