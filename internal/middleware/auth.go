package middleware

import (
	"log"
	"os"

	"vaultrag/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware verifies JWT access tokens and stores the caller identity
// in the request context. The role and employee ID in the token are claims,
// not authority: the pipeline re-derives clearance from the employee ID on
// every query.
func AuthMiddleware(jwtAuth *auth.JWTAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if jwtAuth == nil {
			// Never allow auth bypass in production
			if os.Getenv("ENVIRONMENT") == "production" {
				log.Fatal("❌ CRITICAL SECURITY ERROR: JWT auth not configured in production environment. Authentication is required.")
			}
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Authentication service unavailable",
			})
		}

		token, err := auth.ExtractToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid authorization token",
			})
		}

		user, err := jwtAuth.VerifyAccessToken(token)
		if err != nil {
			log.Printf("❌ Auth failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", user.ID)
		c.Locals("username", user.Username)
		c.Locals("employee_id", user.EmployeeID)
		c.Locals("user_role", user.Role)

		return c.Next()
	}
}
