package respond

import (
	"github.com/gin-gonic/gin"

	"forensics-backend/internal/shared/telemetry"
)

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, detail string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"detail":     detail,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if jobID := c.Param("id"); jobID != "" {
		fields["job_id"] = jobID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Detail: detail,
		Code:   code,
	})
}
