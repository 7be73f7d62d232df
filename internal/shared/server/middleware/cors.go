package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Methods":  "GET,OPTIONS",
	"Access-Control-Allow-Headers":  "Content-Type, Authorization, X-Admin-Token, X-Request-Id",
	"Access-Control-Expose-Headers": "X-Request-Id, Retry-After",
	"Access-Control-Max-Age":        "600",
}

// CORS allows the listed origins to call the read-only admin API. A single
// "*" entry opens it to any origin without credentials.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	origins := make(map[string]bool)
	anyOrigin := false
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			anyOrigin = true
		default:
			origins[o] = true
		}
	}

	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			h := c.Writer.Header()
			switch {
			case origins[origin]:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			case anyOrigin:
				h.Set("Access-Control-Allow-Origin", "*")
			default:
				origin = ""
			}
			if origin != "" {
				for k, v := range corsHeaders {
					h.Set(k, v)
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
