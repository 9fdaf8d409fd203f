package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"forensics-backend/internal/shared/telemetry"
)

// Logging emits one structured line per request, leveled by response
// status. CORS preflights are skipped.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"status":            status,
			"status_transition": c.GetString("statusTransition"),
			"duration_ms":       float64(time.Since(start).Microseconds()) / 1000.0,
			"job_id":            c.GetString("jobId"),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		}
		switch {
		case status >= 500:
			telemetry.Error("request.complete", fields)
		case status >= 400:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
