package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP)
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration

	// Auth endpoint limits (per IP) - login/register brute-force protection
	AuthMax        int
	AuthExpiration time.Duration

	// Query limits (per user) - every miss costs a retrieval plus a
	// model invocation
	QueryMax        int
	QueryExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Global: 200/min = ~3.3 req/sec - very generous for normal use
		GlobalAPIMax:        200,
		GlobalAPIExpiration: 1 * time.Minute,

		// Auth: 10 attempts per 15 minutes per IP
		AuthMax:        10,
		AuthExpiration: 15 * time.Minute,

		// Queries: 30/min per user
		QueryMax:        30,
		QueryExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults
func LoadRateLimitConfig() *RateLimitConfig {
	config := DefaultRateLimitConfig()

	if v := os.Getenv("RATE_LIMIT_GLOBAL_API"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.GlobalAPIMax = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_AUTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.AuthMax = n
		}
	}

	if v := os.Getenv("RATE_LIMIT_QUERY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.QueryMax = n
		}
	}

	if os.Getenv("ENVIRONMENT") == "development" {
		config.GlobalAPIMax = 1000
		config.AuthMax = 100
		config.QueryMax = 300
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed rate limits")
	}

	return config
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.GlobalAPIExpiration.Seconds()),
			})
		},
	})
}

// AuthRateLimiter protects login and registration from brute force
func AuthRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.AuthMax,
		Expiration: config.AuthExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "auth:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Auth limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many authentication attempts. Please wait before trying again.",
				"retry_after": int(config.AuthExpiration.Seconds()),
			})
		},
	})
}

// QueryRateLimiter throttles the query pipeline per user
func QueryRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.QueryMax,
		Expiration: config.QueryExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Use username if available, fall back to IP
			if username, ok := c.Locals("username").(string); ok && username != "" {
				return "query:" + username
			}
			return "query-ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Query limit reached for user: %v", c.Locals("username"))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Query rate limit reached. Please wait before asking again.",
				"retry_after": int(config.QueryExpiration.Seconds()),
			})
		},
	})
}
