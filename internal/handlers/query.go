package handlers

import (
	"errors"
	"log"
	"strings"

	"vaultrag/internal/clearance"
	"vaultrag/internal/models"
	"vaultrag/internal/services"

	"github.com/gofiber/fiber/v2"
)

const maxQueryLength = 2000

// QueryHandler exposes the query pipeline and chat history over HTTP
type QueryHandler struct {
	pipeline    *services.PipelineService
	userService *services.UserService
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(pipeline *services.PipelineService, userService *services.UserService) *QueryHandler {
	return &QueryHandler{
		pipeline:    pipeline,
		userService: userService,
	}
}

// identityFromContext rebuilds the caller identity from the verified token
// claims the auth middleware stored. Request bodies never carry identity.
func identityFromContext(c *fiber.Ctx) (services.Identity, bool) {
	username, ok1 := c.Locals("username").(string)
	employeeID, ok2 := c.Locals("employee_id").(string)
	if !ok1 || !ok2 || username == "" || employeeID == "" {
		return services.Identity{}, false
	}
	return services.Identity{Username: username, EmployeeID: employeeID}, true
}

// Ask runs one query through the pipeline
// POST /api/query
func (h *QueryHandler) Ask(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req models.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}
	if len(req.Query) > maxQueryLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query too long",
		})
	}

	resp, err := h.pipeline.Ask(c.Context(), identity, req.Query)
	if err != nil {
		switch {
		case errors.Is(err, clearance.ErrUnresolvedRole):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Employee ID does not map to a known role",
			})
		case errors.Is(err, services.ErrRetrievalUnavailable):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Document retrieval is temporarily unavailable",
			})
		case errors.Is(err, services.ErrGenerationUnavailable):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Answer generation is temporarily unavailable",
			})
		default:
			log.Printf("❌ [QUERY] Pipeline failed for %s: %v", identity.Username, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to process query",
			})
		}
	}

	return c.JSON(resp)
}

// History returns the caller's chat history, oldest first
// GET /api/history
func (h *QueryHandler) History(c *fiber.Ctx) error {
	identity, ok := identityFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	history, err := h.userService.GetHistory(c.Context(), identity.Username)
	if err != nil {
		log.Printf("❌ [HISTORY] Failed to load history for %s: %v", identity.Username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(fiber.Map{
		"messages": history,
	})
}
