package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the JSON view of pgxpool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// SchemaStatus compares the applied schema version with the newest migration
// the binary ships.
type SchemaStatus struct {
	Version int   `json:"version"`
	Latest  int   `json:"latest"`
	Pending []int `json:"pending,omitempty"`
}

// Current reports whether every shipped migration has been applied.
func (s *SchemaStatus) Current() bool {
	return len(s.Pending) == 0
}

func SummarizeSchema(statuses []MigrationStatus) *SchemaStatus {
	s := &SchemaStatus{}
	for _, st := range statuses {
		if st.Version > s.Latest {
			s.Latest = st.Version
		}
		if !st.Applied {
			s.Pending = append(s.Pending, st.Version)
			continue
		}
		if st.Version > s.Version {
			s.Version = st.Version
		}
	}
	return s
}

// SchemaReporter lists migrations with their applied state. *Migrator
// implements it.
type SchemaReporter interface {
	Status(ctx context.Context) ([]MigrationStatus, error)
}

// HealthHandler pings the database and reports pool statistics and the
// schema version. Pending migrations make the instance unhealthy: the queries
// it serves assume the latest schema.
func HealthHandler(pool *pgxpool.Pool, schema SchemaReporter) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stats := GetPoolStats(pool)
		if err := pool.Ping(ctx); err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		body := map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		}
		if schema == nil {
			return c.JSON(http.StatusOK, body)
		}

		statuses, err := schema.Status(ctx)
		if err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		summary := SummarizeSchema(statuses)
		body["schema"] = summary
		if !summary.Current() {
			body["status"] = "migrations_pending"
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		return c.JSON(http.StatusOK, body)
	}
}
