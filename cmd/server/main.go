package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vaultrag/internal/clearance"
	"vaultrag/internal/config"
	"vaultrag/internal/database"
	"vaultrag/internal/handlers"
	"vaultrag/internal/logging"
	"vaultrag/internal/middleware"
	"vaultrag/internal/preflight"
	"vaultrag/internal/services"
	"vaultrag/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting VaultRAG Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Region: %s)", cfg.Port, cfg.AWSRegion)

	// Clearance table: built-in defaults, or an explicit YAML override
	table := clearance.DefaultTable()
	if cfg.ClearanceConfigPath != "" {
		var err error
		table, err = clearance.LoadTable(cfg.ClearanceConfigPath)
		if err != nil {
			log.Fatalf("❌ Failed to load clearance table from %s: %v", cfg.ClearanceConfigPath, err)
		}
		log.Printf("✅ Clearance table loaded from %s", cfg.ClearanceConfigPath)
	}

	// Initialize MongoDB (identity + chat history)
	log.Println("🔗 Connecting to MongoDB...")
	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	if err := mongoDB.Initialize(context.Background()); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB indexes: %v", err)
	}

	// Initialize Redis (shared answer cache)
	log.Println("🔗 Connecting to Redis...")
	redisService, err := services.NewRedisService(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()
	log.Println("✅ Redis connected successfully")

	// Run preflight checks
	checker := preflight.NewChecker(cfg, table, mongoDB, redisService)
	if preflight.HasFailures(checker.RunAll()) {
		log.Println("\n❌ Pre-flight checks failed. Please fix the issues above before starting the server.")
		os.Exit(1)
	}
	log.Println("✅ All pre-flight checks passed")

	// AWS clients: knowledge base retrieval, model invocation, escalation topic
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("❌ Failed to load AWS configuration: %v", err)
	}
	kbClient := bedrockagentruntime.NewFromConfig(awsCfg)
	modelClient := bedrockruntime.NewFromConfig(awsCfg)
	snsClient := sns.NewFromConfig(awsCfg)
	log.Printf("✅ AWS clients initialized (region: %s)", cfg.AWSRegion)

	// Initialize auth. Preflight already rejected an empty secret in
	// production; in development an ephemeral secret keeps the API usable,
	// at the cost of invalidating tokens on restart.
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = generateEphemeralSecret()
		log.Println("⚠️  JWT_SECRET not set - using an ephemeral secret (development mode)")
	}
	jwtAuth, err := auth.NewJWTAuth(jwtSecret, 15*time.Minute, 7*24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
	}

	// Initialize services
	userService := services.NewUserService(mongoDB, jwtAuth)
	answerCache := services.NewAnswerCacheService(redisService, cfg.CacheTTL)
	retrievalService := services.NewRetrievalService(kbClient, cfg.KnowledgeBaseID, cfg.RetrievalTopK, table)
	generationService := services.NewGenerationService(modelClient, cfg.ModelID, cfg.MaxOutputToken)
	notifierService := services.NewNotifierService(snsClient, cfg.SNSTopicARN)
	sessionService := services.NewSessionService(30 * time.Minute)

	pipeline := services.NewPipelineService(
		answerCache,
		retrievalService,
		generationService,
		services.NewKeywordDenialClassifier(),
		sessionService,
		notifierService,
		userService,
		cfg.RemoteTimeout,
	)

	// Initialize Prometheus metrics
	pipeline.SetMetrics(services.InitMetrics())
	log.Println("✅ Prometheus metrics initialized")

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "VaultRAG v1.0",
		ReadTimeout:  90 * time.Second,
		WriteTimeout: 90 * time.Second, // generation can take a while under load
		IdleTimeout:  120 * time.Second,
		BodyLimit:    64 * 1024, // queries are short text
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("vaultrag")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Load rate limiting configuration
	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Auth=%d/15min, Query=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.AuthMax,
		rateLimitConfig.QueryMax,
	)

	// Fiber's CORS middleware does not allow AllowCredentials with wildcard origins.
	allowCredentials := cfg.AllowedOrigins != "*"

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	// Global API rate limiter - first line of defense
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(mongoDB, redisService)
	authHandler := handlers.NewAuthHandler(jwtAuth, userService)
	queryHandler := handlers.NewQueryHandler(pipeline, userService)
	accessHandler := handlers.NewAccessHandler(pipeline)

	// Public routes
	app.Get("/health", healthHandler.Handle)

	// Credential endpoints carry their own brute-force limiter; /api/auth/me
	// stays on the global limit only.
	authLimiter := middleware.AuthRateLimiter(rateLimitConfig)
	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", authLimiter, authHandler.Register)
	authGroup.Post("/login", authLimiter, authHandler.Login)
	authGroup.Post("/refresh", authLimiter, authHandler.RefreshToken)

	// Authenticated routes
	api := app.Group("/api", middleware.AuthMiddleware(jwtAuth))
	api.Get("/auth/me", authHandler.GetCurrentUser)
	api.Post("/query", middleware.QueryRateLimiter(rateLimitConfig), queryHandler.Ask)
	api.Get("/history", queryHandler.History)
	api.Post("/access/request", accessHandler.Request)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	log.Printf("🌐 Server listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func generateEphemeralSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("❌ Failed to generate ephemeral JWT secret: %v", err)
	}
	return hex.EncodeToString(b)
}
