package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"upscale-bot/internal/shared/telemetry"
)

// ErrorBody is the error object every non-2xx JSON response carries.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody under "error".
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error aborts the request with status and a standardized body. Server errors
// are logged at error level, client errors at warn.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := requestFields(c)
	fields["status"] = status
	fields["code"] = code
	fields["message"] = message
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

func requestFields(c *gin.Context) map[string]any {
	fields := map[string]any{
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if principal := c.GetString("principal"); principal != "" {
		fields["principal"] = principal
	}
	if updateID, ok := c.Get("updateId"); ok {
		fields["update_id"] = updateID
	}
	return fields
}
