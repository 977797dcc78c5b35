package handlers

import (
	"errors"
	"log"

	"vaultrag/internal/models"
	"vaultrag/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AccessHandler exposes the clearance escalation endpoint
type AccessHandler struct {
	pipeline *services.PipelineService
}

// NewAccessHandler creates a new access handler
func NewAccessHandler(pipeline *services.PipelineService) *AccessHandler {
	return &AccessHandler{pipeline: pipeline}
}

// Request escalates the session's most recent denial to the review channel.
// Only valid while a denial is armed; a failed send leaves it armed so the
// user can retry.
// POST /api/access/request
func (h *AccessHandler) Request(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	if err := h.pipeline.RequestAccess(c.Context(), identity); err != nil {
		if errors.Is(err, services.ErrNotificationFailed) {
			log.Printf("❌ [ACCESS] Escalation send failed for %s: %v", identity.Username, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Failed to send access request. Please try again.",
			})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "No denied query to escalate",
		})
	}

	return c.JSON(models.AccessRequestResponse{Sent: true})
}
