package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"forensics-backend/internal/jobs"
	"forensics-backend/internal/services/health"
	"forensics-backend/internal/shared/config"
	"forensics-backend/internal/shared/metrics"
	"forensics-backend/internal/shared/server/middleware"
	"forensics-backend/internal/shared/server/respond"
)

const (
	submitBurst = 10
	pollBurst   = 20
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config     config.Config
	JobHandler *jobs.Handler
	Health     *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.Use(rateLimits(deps.Config))
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	if deps.JobHandler != nil {
		deps.JobHandler.RegisterRoutes(api)
	}

	return r
}

// rateLimits shields the expensive submit path and the hot polling path.
// Buckets are keyed by client IP since the API is unauthenticated.
func rateLimits(cfg config.Config) gin.HandlerFunc {
	return middleware.RateLimit(middleware.RateLimitConfig{
		GroupFor: func(c *gin.Context) string {
			switch {
			case c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/analyze":
				return "SUBMIT"
			case c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/jobs/:id/status":
				return "POLL"
			default:
				return ""
			}
		},
		Rules: map[string]middleware.RateLimitRule{
			"SUBMIT": {Rate: float64(cfg.SubmitRatePerMinute) / 60.0, Burst: submitBurst},
			"POLL":   {Rate: float64(cfg.PollRatePerSecond), Burst: pollBurst},
		},
	})
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
