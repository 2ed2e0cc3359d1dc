package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"tradeacademy_backend/internal/controller"
	"tradeacademy_backend/internal/middleware"
	"tradeacademy_backend/internal/model"
	"tradeacademy_backend/pkg/cache"
	"tradeacademy_backend/pkg/config"
	"tradeacademy_backend/pkg/cron"
	"tradeacademy_backend/pkg/database"
	"tradeacademy_backend/pkg/email"
	"tradeacademy_backend/pkg/policy"
	"tradeacademy_backend/pkg/seed"
	"tradeacademy_backend/pkg/utils/jwt"
)

func setupRoutes(app *fiber.App, clock policy.Clock) {
	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Public catalog and settings
	api.Get("/strategies", controller.ListStrategies)
	api.Get("/settings", controller.GetSettings)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)
	protected.Put("/settings/profile", controller.UpdateProfile)

	// Subscription routes
	subscriptions := api.Group("/subscriptions", middleware.AuthMiddleware())
	subscriptions.Get("/my-subscription", controller.GetMySubscription)
	subscriptions.Post("/initiate", controller.InitiateSubscription)
	subscriptions.Post("/confirm-payment", controller.ConfirmPayment)
	subscriptions.Post("/my-subscription/renew", controller.RenewSubscription)
	subscriptions.Post("/my-subscription/upgrade", controller.UpgradeSubscription)
	subscriptions.Post("/my-subscription/cancel", controller.CancelSubscription)

	// Video routes require a currently active subscription
	gated := subscriptions.Group("/my-subscription", middleware.RequireActiveSubscription(clock))
	gated.Get("/video-progress", controller.GetVideoProgress)
	gated.Post("/complete-video", controller.CompleteVideo)
	gated.Post("/validate-video-access", controller.ValidateVideoAccess)

	api.Get("/strategies/:strategy_id/videos/:video_id",
		middleware.AuthMiddleware(), middleware.RequireActiveSubscription(clock),
		controller.GetStrategyVideo)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.AdminMiddleware())
	admin.Post("/strategies", controller.CreateStrategy)
	admin.Post("/strategies/:id/videos", controller.CreateVideo)
	admin.Put("/settings", controller.UpdateSettings)
}

func main() {
	cfg := config.Load()
	clock := policy.SystemClock()

	jwt.Init(cfg.JWT.Secret)

	if key := os.Getenv("RESEND_API_KEY"); key != "" {
		if err := email.InitEmailService(key); err != nil {
			log.Fatal("Could not initialize email service:", err)
		}
		log.Println("Email service initialized")
	} else {
		log.Println("RESEND_API_KEY not set, emails disabled")
	}

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set in .env")
	}

	database.InitDB(cfg.Database.URL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Strategy{},
		&model.Video{},
		&model.UserSubscription{},
		&model.VideoCompletion{},
		&model.PaymentSession{},
		&model.PlatformSetting{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	seed.SeedStrategies(database.DB)

	redis, err := cache.NewRedis(cfg.Redis.Host, cfg.Redis.Port)
	if err != nil {
		log.Printf("Redis unavailable, catalog cache disabled: %v", err)
		redis = nil
	}

	controller.InitStrategyController(redis)
	controller.InitSubscriptionController(cfg, clock)
	defer controller.ShutdownSubscriptionController()

	cron.InitSubscriptionExpiryCron(clock)
	cron.InitPaymentTimeoutCron()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app, clock)

	port := cfg.Server.Port
	log.Printf("Server is running on port %s", port)
	log.Fatal(app.Listen(":" + port))
}
