package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	MongoURI    string
	RedisURL    string
	Environment string

	// AWS / Bedrock configuration
	AWSRegion       string
	KnowledgeBaseID string
	ModelID         string
	SNSTopicARN     string

	// Auth configuration
	JWTSecret string

	// Answer cache TTL
	CacheTTL time.Duration

	// Retrieval and generation bounds
	RetrievalTopK  int
	MaxOutputToken int
	RemoteTimeout  time.Duration

	// Optional path to a YAML clearance table; built-in defaults used when empty
	ClearanceConfigPath string

	AllowedOrigins string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		MongoURI:    getEnv("MONGODB_URI", "mongodb://localhost:27017/vaultrag"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		Environment: getEnv("ENVIRONMENT", "development"),

		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		KnowledgeBaseID: getEnv("BEDROCK_KB_ID", ""),
		ModelID:         getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-sonnet-20240229-v1:0"),
		SNSTopicARN:     getEnv("SNS_TOPIC_ARN", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		CacheTTL:       time.Duration(getIntEnv("CACHE_TTL_HOURS", 24)) * time.Hour,
		RetrievalTopK:  getIntEnv("RETRIEVAL_TOP_K", 3),
		MaxOutputToken: getIntEnv("MAX_OUTPUT_TOKENS", 1000),
		RemoteTimeout:  time.Duration(getIntEnv("REMOTE_TIMEOUT_SECONDS", 60)) * time.Second,

		ClearanceConfigPath: getEnv("CLEARANCE_CONFIG", ""),

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
