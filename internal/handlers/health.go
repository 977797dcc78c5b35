package handlers

import (
	"context"
	"time"

	"vaultrag/internal/database"
	"vaultrag/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db    *database.MongoDB
	redis *services.RedisService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.MongoDB, redis *services.RedisService) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Handle responds with server health status. Dependencies are reported
// individually; the endpoint itself returns 200 as long as the process is
// serving, because the query path degrades (cache misses) rather than dies
// when Redis is down.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	mongoStatus := "healthy"
	if err := h.db.Ping(ctx); err != nil {
		mongoStatus = "unreachable"
	}

	redisStatus := "healthy"
	if err := h.redis.Ping(ctx); err != nil {
		redisStatus = "unreachable"
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"mongodb":   mongoStatus,
		"redis":     redisStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
