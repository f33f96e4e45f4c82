package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/classhive/classhive-api/internal/utils"
)

// HealthHandler exposes liveness probes.
type HealthHandler struct {
	version string
}

// NewHealthHandler constructs the handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Register attaches the health endpoint.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.health)
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "ok", fiber.Map{
		"status":  "healthy",
		"version": h.version,
	})
}
