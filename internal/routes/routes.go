// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"context"
	"time"

	"arvo/internal/config"
	"arvo/internal/handlers"
	"arvo/internal/middleware"
	"arvo/internal/models"
	"arvo/internal/providers/sumsub"
	"arvo/internal/providers/truid"
	"arvo/internal/repositories"
	"arvo/internal/services/auth"
	"arvo/internal/services/banking"
	"arvo/internal/services/notification"
	"arvo/internal/services/user"
	"arvo/internal/services/verification"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Webhook replay sweep parameters. Stored events stay unprocessed when
// they arrive before their user registers; the sweep re-applies them.
const (
	webhookReplayInterval = 5 * time.Minute
	webhookReplayBatch    = 100
)

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, db *gorm.DB, providerCfg config.Providers) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db, repositories.CacheService)
	recordRepo := repositories.NewVerificationRepository(db)
	actionRepo := repositories.NewRequiredActionRepository(db)
	webhookRepo := repositories.NewWebhookEventRepository(db)
	sessionStore := repositories.NewRedisSessionStore(repositories.RedisClient())

	// Provider clients, built from the injected config
	kycClient := sumsub.NewClient(providerCfg.Sumsub)
	bankClient := truid.NewClient(providerCfg.TruID)

	// Initialize services
	authService := auth.NewService(userRepo)
	userService := user.NewService(userRepo, actionRepo)

	events := verification.NewEvents()
	verificationService := verification.NewService(
		kycClient,
		sessionStore,
		recordRepo,
		actionRepo,
		webhookRepo,
		events,
	)
	bankingService := banking.NewService(
		bankClient,
		sessionStore,
		recordRepo,
		actionRepo,
		webhookRepo,
	)

	// Notifications consume the completion event stream.
	go notification.NewService().Run(events.Subscribe())

	go func() {
		ctx := context.Background()
		verificationService.ReplayUnprocessed(ctx, webhookReplayBatch)
		bankingService.ReplayUnprocessed(ctx, webhookReplayBatch)
		for range time.Tick(webhookReplayInterval) {
			verificationService.ReplayUnprocessed(ctx, webhookReplayBatch)
			bankingService.ReplayUnprocessed(ctx, webhookReplayBatch)
		}
	}()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	verificationHandler := handlers.NewVerificationHandler(verificationService)
	bankingHandler := handlers.NewBankingHandler(bankingService)
	actionsHandler := handlers.NewRequiredActionsHandler(actionRepo)

	// Public routes
	api := app.Group("/api")

	api.Post("/login", authHandler.LoginUser)
	api.Post("/register", userHandler.RegisterUser)
	api.Post("/refresh", authHandler.RefreshToken)
	api.Get("/health", handlers.HealthCheck)

	// Provider webhooks are unauthenticated on our side; the handlers
	// acknowledge immediately and process asynchronously.
	api.Post("/verification/webhook", verificationHandler.Webhook)
	api.Post("/banking/webhook", bankingHandler.Webhook)

	// Root welcome route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Arvo API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})

	// Create middleware instance
	authMiddleware := middleware.NewAuthMiddleware(userRepo)

	// Protected routes with auth middleware
	protected := api.Use(authMiddleware.Handler)

	// User account routes
	protected.Get("/profile", userHandler.GetProfile)
	protected.Post("/change-password", authHandler.ChangePassword)
	protected.Post("/logout", authHandler.LogoutUser)

	// Identity verification routes
	verificationGroup := protected.Group("/verification")
	verificationGroup.Post("/start", middleware.HasPermission(models.PermissionVerificationWrite), verificationHandler.StartSession)
	verificationGroup.Post("/refresh-token", middleware.HasPermission(models.PermissionVerificationWrite), verificationHandler.RefreshToken)
	verificationGroup.Get("/status/:applicantId", middleware.HasPermission(models.PermissionVerificationRead), verificationHandler.GetStatus)
	verificationGroup.Get("/me", middleware.HasPermission(models.PermissionVerificationRead), verificationHandler.GetRecord)

	// Bank linking routes
	bankingGroup := protected.Group("/banking")
	bankingGroup.Post("/start", middleware.HasPermission(models.PermissionBankingWrite), bankingHandler.StartLink)
	bankingGroup.Get("/status/:collectionId", middleware.HasPermission(models.PermissionBankingRead), bankingHandler.GetStatus)

	// Onboarding routes
	protected.Get("/required-actions", actionsHandler.List)
}
