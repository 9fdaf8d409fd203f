// Package health reports liveness plus best-effort dependency checks.
package health

import (
	"context"
	"database/sql"
	"time"

	"forensics-backend/internal/cache"
)

const probeTimeout = 2 * time.Second

// Service answers health probes. Dependencies are optional; absent ones are
// omitted from the payload rather than reported unhealthy.
type Service struct {
	DB    *sql.DB
	Cache cache.Cache
}

// NewService constructs a health service with no dependencies wired.
func NewService() *Service {
	return &Service{}
}

// Status reports overall liveness and the state of each wired dependency.
func (s *Service) Status() map[string]bool {
	out := map[string]bool{"ok": true}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if s.DB != nil {
		out["database"] = s.DB.PingContext(ctx) == nil
	}
	if s.Cache != nil {
		if _, isNoop := s.Cache.(cache.Noop); !isNoop {
			out["cache"] = s.Cache.Ping(ctx) == nil
		}
	}
	return out
}
