package handlers

import (
	"errors"
	"log"
	"strings"
	"time"

	"vaultrag/internal/clearance"
	"vaultrag/internal/models"
	"vaultrag/internal/services"
	"vaultrag/pkg/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles registration, login and identity endpoints
type AuthHandler struct {
	jwtAuth     *auth.JWTAuth
	userService *services.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwtAuth *auth.JWTAuth, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		jwtAuth:     jwtAuth,
		userService: userService,
	}
}

// Register creates a new account
// POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)

	if req.Username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Username is required",
		})
	}
	if len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Password must be at least 8 characters",
		})
	}

	user, err := h.userService.Register(c.Context(), req.Username, req.Password, req.EmployeeID)
	if err != nil {
		if errors.Is(err, clearance.ErrUnresolvedRole) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Employee ID does not map to a known role",
			})
		}
		if errors.Is(err, services.ErrUsernameTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Username already taken",
			})
		}
		log.Printf("❌ Failed to create account for %s: %v", req.Username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create account",
		})
	}

	accessToken, refreshToken, err := h.jwtAuth.GenerateTokens(user.ID.Hex(), user.Username, user.EmployeeID, user.Role)
	if err != nil {
		log.Printf("❌ Failed to generate tokens: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate authentication tokens",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.ToResponse(),
	})
}

// Login authenticates a user
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Username = strings.TrimSpace(strings.ToLower(req.Username))

	user, err := h.userService.Authenticate(c.Context(), req.Username, req.Password)
	if err != nil {
		// Flat response either way to prevent username enumeration
		time.Sleep(200 * time.Millisecond)
		log.Printf("⚠️  Failed login attempt for user: %s", req.Username)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid username or password",
		})
	}

	accessToken, refreshToken, err := h.jwtAuth.GenerateTokens(user.ID.Hex(), user.Username, user.EmployeeID, user.Role)
	if err != nil {
		log.Printf("❌ Failed to generate tokens: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate authentication tokens",
		})
	}

	log.Printf("✅ User logged in: %s (role: %s)", user.Username, user.Role)

	return c.JSON(models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.ToResponse(),
	})
}

// RefreshToken generates a new access token from a refresh token
// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Refresh token is required",
		})
	}

	claims, err := h.jwtAuth.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired refresh token",
		})
	}

	// Re-read the account so a deleted user cannot keep minting tokens
	user, err := h.userService.GetByUsername(c.Context(), claims.Username)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	accessToken, _, err := h.jwtAuth.GenerateTokens(user.ID.Hex(), user.Username, user.EmployeeID, user.Role)
	if err != nil {
		log.Printf("❌ Failed to generate new access token: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to refresh token",
		})
	}

	return c.JSON(fiber.Map{
		"access_token": accessToken,
	})
}

// GetCurrentUser returns the currently authenticated user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *fiber.Ctx) error {
	username, ok := c.Locals("username").(string)
	if !ok || username == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	user, err := h.userService.GetByUsername(c.Context(), username)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(user.ToResponse())
}
