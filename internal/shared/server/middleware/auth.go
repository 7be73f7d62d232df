package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"upscale-bot/internal/shared/server/respond"
)

const principalKey = "principal"

// telegramSecretHeader carries the secret_token Telegram echoes on webhook calls.
const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// AdminToken requires a static operator token, as a bearer token or X-Admin-Token.
// An empty configured token disables the protected routes entirely.
func AdminToken(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if token == "" {
			respond.Error(c, http.StatusForbidden, "forbidden", "admin api disabled", nil)
			return
		}

		presented := strings.TrimSpace(c.GetHeader("X-Admin-Token"))
		if presented == "" {
			authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			presented = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		}
		if !equalSecret(presented, token) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(principalKey, "admin")
		c.Next()
	}
}

// WebhookSecret accepts a webhook call when the :secret path segment or the
// Telegram secret header matches.
func WebhookSecret(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if secret == "" {
			respond.Error(c, http.StatusNotFound, "not_found", "webhook disabled", nil)
			return
		}
		if !equalSecret(c.Param("secret"), secret) && !equalSecret(c.GetHeader(telegramSecretHeader), secret) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid webhook secret", nil)
			return
		}
		c.Set(principalKey, "telegram")
		c.Next()
	}
}

// PrincipalFromContext returns who the request was authenticated as.
func PrincipalFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(principalKey)
	if p, ok := val.(string); ok {
		return p
	}
	return ""
}

func equalSecret(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
