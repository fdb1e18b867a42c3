package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"

	"github.com/samafal/backend/internal/config"
	"github.com/samafal/backend/internal/database"
	"github.com/samafal/backend/internal/database/migrations"
	"github.com/samafal/backend/internal/handlers"
	"github.com/samafal/backend/internal/jobs"
	"github.com/samafal/backend/internal/models"
	"github.com/samafal/backend/internal/queue"
	"github.com/samafal/backend/internal/routes"
	"github.com/samafal/backend/internal/services/charity"
	"github.com/samafal/backend/internal/services/payment"
	"github.com/samafal/backend/internal/services/payment/edahab"
	"github.com/samafal/backend/internal/services/payment/waafi"
)

func main() {
	// Initialize configuration (loads .env when present)
	cfg := config.LoadConfig()

	// Setup database connection
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis-backed job queue for receipt delivery
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Printf("Warning: redis unavailable, receipt delivery disabled: %v", err)
	}
	jobQueue := queue.NewRedisQueue(redisClient)
	jobs.RegisterReceiptJobHandler(jobQueue)
	jobQueue.StartProcessing()

	// Initialize services
	charityService := charity.NewCharityService(db)
	paymentService := payment.NewService(payment.NewGormStore(db), charityService, cfg.Webhook.Secret)
	paymentService.SetNotifier(jobs.NewQueueNotifier(jobQueue))

	// Register provider adapters. A misconfigured WaafiPay deployment only
	// loses the EVC method; the rest of the API still serves.
	waafiAdapter, err := waafi.New(waafi.Config{
		BaseURL:     cfg.Waafi.BaseURL,
		MerchantUID: cfg.Waafi.MerchantUID,
		APIUserID:   cfg.Waafi.APIUserID,
		APIKey:      cfg.Waafi.APIKey,
		Timeout:     cfg.Waafi.Timeout,
	})
	if err != nil {
		log.Printf("Warning: WaafiPay adapter not registered: %v", err)
	} else {
		paymentService.RegisterProvider(models.PaymentMethodEVC, waafiAdapter)
	}
	paymentService.RegisterProvider(models.PaymentMethodEDahab, edahab.New(edahab.Config{
		BaseURL:   cfg.EDahab.BaseURL,
		AgentCode: cfg.EDahab.AgentCode,
		APIKey:    cfg.EDahab.APIKey,
	}))

	// Start the stale-pending reconciliation schedule
	scheduler := gocron.NewScheduler(time.UTC)
	if err := jobs.StartReconciliation(scheduler, paymentService); err != nil {
		log.Fatalf("Failed to schedule reconciliation: %v", err)
	}
	scheduler.StartAsync()

	// Initialize router
	router := gin.Default()

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Webhook-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Initialize handlers and register routes
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	charityHandler := handlers.NewCharityHandler(charityService)
	authHandler := handlers.NewAuthHandler(db, cfg.JWT)
	routes.RegisterRoutes(router, cfg, paymentHandler, charityHandler, authHandler)

	// Start server
	fmt.Printf("Samafal API server running on port %s\n", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
