package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/middleware"
)

// HealthChecker is anything that can report its own health, such as the storage.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionStats reports live socket counts; chat.Manager implements it.
type ConnectionStats interface {
	Len() int
	Groups() int
}

type HealthHandler struct {
	db    HealthChecker
	stats ConnectionStats
}

func NewHealthHandler(db HealthChecker, stats ConnectionStats) *HealthHandler {
	return &HealthHandler{db: db, stats: stats}
}

// Health pings the database and reports connection statistics. It answers
// 503 when the database is unreachable.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	dbStatus := "ok"
	if err := h.db.HealthCheck(ctx); err != nil {
		middleware.FromContext(ctx).Error("Health check failed", "error", err)
		status, code, dbStatus = "degraded", http.StatusServiceUnavailable, "unreachable"
	}

	return c.JSON(code, map[string]interface{}{
		"status":      status,
		"database":    dbStatus,
		"connections": h.stats.Len(),
		"groups":      h.stats.Groups(),
	})
}
