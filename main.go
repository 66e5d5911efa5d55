package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"early-badge-system/handlers"
	"early-badge-system/models"
	"early-badge-system/services"
	"early-badge-system/utils"
	"early-badge-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		UnescapePath: true,
	})

	// CORS: load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Admin-Token",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.BadgeUser{},
		&models.EmailVerificationCode{},
		&models.OAuthState{},
		&models.SpinResult{},
		&models.ReferralReward{},
		&models.Setting{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	cache := services.NewCacheFromEnv()
	mailer := utils.NewMailerFromEnv()

	userService := services.NewUserService(db)
	emailService := services.NewEmailService(db, mailer)
	oauthService := services.NewOAuthService(db)
	twitterService := services.NewTwitterServiceFromEnv(db, oauthService)
	discordService := services.NewDiscordServiceFromEnv(db, oauthService)
	telegramService := services.NewTelegramServiceFromEnv(db, cache)
	referralService := services.NewReferralService(db, nil)
	claimService := services.NewClaimService(db, referralService, cache)
	wheelService := services.NewWheelService(db, nil, cache)
	dashboardService := services.NewDashboardService(db, userService, referralService, wheelService, cache)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botWorker := workers.NewBotWorkerFromEnv(telegramService)
	go botWorker.Start(ctx)

	services.StartCleanupScheduler(emailService, oauthService)

	handlers.SetupEmailRoutes(app, userService, emailService)
	handlers.SetupOAuthRoutes(app, twitterService, discordService)
	handlers.SetupTelegramRoutes(app, telegramService)
	handlers.SetupBadgeRoutes(app, userService, claimService)
	handlers.SetupWheelRoutes(app, wheelService)
	handlers.SetupDashboardRoutes(app, dashboardService)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Early Badge API",
			"status":  "operational",
			"endpoints": fiber.Map{
				"auth": fiber.Map{
					"email":    "/auth/email/send-verification",
					"twitter":  "/auth/twitter/login",
					"discord":  "/auth/discord/login",
					"telegram": "/auth/telegram/link",
				},
				"status": "/api/status/{email}",
				"health": "/health",
			},
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		dbStatus := "healthy"
		if err != nil || sqlDB.Ping() != nil {
			dbStatus = "unhealthy"
		}
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"database": dbStatus,
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Telegram bot worker running")
	log.Println("✅ Challenge cleanup scheduler running (every 1m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = app.Shutdown()
}
