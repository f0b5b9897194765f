// handlers_health.go - Health check handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/home-designer/backend/internal/session"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	started  time.Time
	sessions *session.Manager
	vision   bool
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessions *session.Manager, visionConfigured bool) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		started:  time.Now(),
		sessions: sessions,
		vision:   visionConfigured,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	active := 0
	if h.sessions != nil {
		active = h.sessions.Len()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"version":          h.version,
		"uptimeSeconds":    int64(time.Since(h.started).Seconds()),
		"activeSessions":   active,
		"visionConfigured": h.vision,
	})
}
