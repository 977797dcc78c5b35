package preflight

import (
	"context"
	"fmt"
	"log"
	"time"

	"vaultrag/internal/clearance"
	"vaultrag/internal/config"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Pinger is anything that can report datastore liveness
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker performs pre-flight checks before the server starts serving
type Checker struct {
	cfg   *config.Config
	table *clearance.Table
	mongo Pinger
	redis Pinger
}

// NewChecker creates a new preflight checker
func NewChecker(cfg *config.Config, table *clearance.Table, mongo, redis Pinger) *Checker {
	return &Checker{
		cfg:   cfg,
		table: table,
		mongo: mongo,
		redis: redis,
	}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkConfiguration(),
		c.checkClearanceTable(),
		c.checkMongo(),
		c.checkRedis(),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("\n📊 Pre-flight summary: %d passed, %d failed, %d warnings\n", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkConfiguration verifies the settings the query pipeline cannot run
// without. Missing SNS only degrades escalation, so it is a warning.
func (c *Checker) checkConfiguration() CheckResult {
	if c.cfg.KnowledgeBaseID == "" {
		return CheckResult{
			Name:    "Configuration",
			Status:  "fail",
			Message: "BEDROCK_KB_ID is not set",
		}
	}

	if c.cfg.JWTSecret == "" {
		if c.cfg.Environment == "production" {
			return CheckResult{
				Name:    "Configuration",
				Status:  "fail",
				Message: "JWT_SECRET is required in production",
			}
		}
		return CheckResult{
			Name:    "Configuration",
			Status:  "warning",
			Message: "JWT_SECRET not set (development mode)",
		}
	}

	if c.cfg.SNSTopicARN == "" {
		return CheckResult{
			Name:    "Configuration",
			Status:  "warning",
			Message: "SNS_TOPIC_ARN not set - access escalation will fail",
		}
	}

	return CheckResult{
		Name:    "Configuration",
		Status:  "pass",
		Message: "All required settings present",
	}
}

// checkClearanceTable verifies the role-to-tier mapping is well formed
func (c *Checker) checkClearanceTable() CheckResult {
	if err := c.table.Validate(); err != nil {
		return CheckResult{
			Name:    "Clearance Table",
			Status:  "fail",
			Message: "Clearance table is invalid",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Clearance Table",
		Status:  "pass",
		Message: fmt.Sprintf("%d roles with nested tier sets", len(c.table.Sets)),
	}
}

// checkMongo verifies the identity store is reachable
func (c *Checker) checkMongo() CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.mongo.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "MongoDB Connection",
			Status:  "fail",
			Message: "Cannot connect to MongoDB",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "MongoDB Connection",
		Status:  "pass",
		Message: "MongoDB connection successful",
	}
}

// checkRedis verifies the answer cache is reachable. The pipeline treats an
// unreachable cache as a permanent miss, so this is a warning, not a failure.
func (c *Checker) checkRedis() CheckResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.redis.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Redis Connection",
			Status:  "warning",
			Message: "Cannot connect to Redis - answer cache disabled",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Redis Connection",
		Status:  "pass",
		Message: "Redis connection successful",
	}
}
