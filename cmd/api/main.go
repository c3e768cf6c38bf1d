package main

import (
	"log"
	"net/http"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/api"
	"github.com/Keyzen2/spamguard-v2/internal/api/handlers"
	"github.com/Keyzen2/spamguard-v2/internal/config"
	"github.com/Keyzen2/spamguard-v2/internal/database"
	"github.com/Keyzen2/spamguard-v2/internal/middleware"
	"github.com/Keyzen2/spamguard-v2/internal/repository"
	"github.com/Keyzen2/spamguard-v2/internal/services"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := config.Load()

	// Initialize database connection
	db, err := database.InitDB(cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Get underlying *sql.DB instance for connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get underlying *sql.DB instance:", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	logRepo := repository.NewRequestLogRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	// Optional redis cache for predictions
	var cache services.CacheService
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := services.NewRedisCacheService(&cfg.Cache)
		if err != nil {
			log.Printf("Warning: prediction cache disabled: %v", err)
		} else {
			cache = redisCache
		}
	}

	// Initialize services
	catalog := config.NewPlanCatalog()
	apiKeyService := services.NewAPIKeyService(apiKeyRepo, cfg.Server.KeyEnvironment)
	quotaService := services.NewQuotaService(usageRepo, catalog)
	accountService := services.NewAccountService(userRepo, apiKeyService)
	statsService := services.NewStatsService(logRepo)
	webhookService := services.NewWebhookService(webhookRepo, &cfg.Webhooks)
	classifier := services.NewHTTPClassifier(cfg.Classifier.BaseURL, cfg.Classifier.Timeout)

	accountant := services.NewAccountantService(
		apiKeyService,
		quotaService,
		usageRepo,
		logRepo,
		feedbackRepo,
		classifier,
		cache,
		webhookService,
		catalog,
		&cfg.Webhooks,
		cfg.Cache.DefaultTTL,
	)

	// Initialize handlers
	router := api.SetupRoutes(api.Handlers{
		Register: handlers.NewRegisterHandler(accountService),
		Analyze:  handlers.NewAnalyzeHandler(accountant, quotaService),
		Feedback: handlers.NewFeedbackHandler(accountant),
		Stats:    handlers.NewStatsHandler(statsService, apiKeyService),
		Account:  handlers.NewAccountHandler(accountService, quotaService),
		Webhooks: handlers.NewWebhookHandler(webhookService),
		Health:   handlers.HealthCheckHandler(db, cfg.Classifier.BaseURL),
	}, middleware.APIKeyMiddleware(apiKeyService, accountant))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-API-Key",
		},
		MaxAge: 300,
	})

	// Create server with timeouts
	srv := &http.Server{
		Handler:      corsMiddleware.Handler(router),
		Addr:         ":" + cfg.Server.Port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	// Start server
	log.Printf("Server starting on port %s...", cfg.Server.Port)
	log.Fatal(srv.ListenAndServe())
}
