package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"forensics-backend/internal/shared/server/respond"
	"forensics-backend/internal/shared/telemetry"
)

// Recovery converts handler panics into a 500 with the standard error body.
// The panic value and stack go to the log, never to the client.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				telemetry.Error("http.panic", map[string]any{
					"request_id": RequestIDFromContext(c),
					"panic":      fmt.Sprintf("%v", rec),
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
				})
				respond.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "unexpected server error")
			}
		}()
		c.Next()
	}
}
