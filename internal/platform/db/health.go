package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the connection pool snapshot reported by /health/db. The
// payload is intentionally small: enough for a load balancer or an operator
// to see saturation, nothing that needs the pgx types to interpret.
type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// HealthStatus is the response body of /health/db.
type HealthStatus struct {
	Status string    `json:"status"`
	Pool   PoolStats `json:"pool"`
	Error  string    `json:"error,omitempty"`
}

// Stats snapshots the pool counters.
func Stats(pool *pgxpool.Pool) PoolStats {
	s := pool.Stat()
	return PoolStats{
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
		MaxConns:      s.MaxConns(),
	}
}

const healthPingTimeout = 5 * time.Second

// HealthHandler serves the database health check: a bounded ping plus the
// pool snapshot. 503 with the ping error when the database is unreachable.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		status := HealthStatus{Status: "healthy", Pool: Stats(pool)}
		if err := pool.Ping(ctx); err != nil {
			status.Status = "unhealthy"
			status.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		return c.JSON(http.StatusOK, status)
	}
}
