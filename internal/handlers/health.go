package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/dinepe-backend/internal/session"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	Version  string
	store    storage.Store
	sessions session.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store storage.Store, sessions session.Store) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		store:    store,
		sessions: sessions,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "OK"
	ledger := "ok"
	if err := h.store.Ping(ctx); err != nil {
		status = "DEGRADED"
		ledger = err.Error()
	}
	active, err := h.sessions.Active(ctx)
	if err != nil {
		status = "DEGRADED"
	}

	code := fiber.StatusOK
	if status != "OK" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":          status,
		"service":         "DinePe Backend",
		"version":         h.Version,
		"ledger":          ledger,
		"active_sessions": active,
	})
}
