package app

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"rulevault/internal/clockx"
	"rulevault/internal/config"
	"rulevault/internal/handlers"
	"rulevault/internal/middleware"
	"rulevault/internal/ratelimit"
	"rulevault/internal/repositories"
	"rulevault/internal/routes"
	"rulevault/internal/services"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "rulevault/docs"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("failed to close database: %v", err)
		}
	}()

	clock := clockx.SystemClock{}

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	codeRepo := repositories.NewVerificationCodeRepository(db)
	tokenRepo := repositories.NewRefreshTokenRepository(db)

	// === Alerts (optional) ===
	var alerts services.AlertNotifier
	if cfg.Telegram.BotToken != "" {
		alerts, err = services.NewTelegramAlertService(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			log.Printf("telegram alerts disabled: %v", err)
			alerts = nil
		}
	}

	// === Services ===
	authService := services.NewAuthService()
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	verificationService := services.NewVerificationService(
		codeRepo,
		userRepo,
		emailService,
		clock,
		time.Duration(cfg.Verification.CodeExpiryMinutes)*time.Minute,
		cfg.Verification.MaxAttempts,
		time.Duration(cfg.Verification.ResendCooldownSeconds)*time.Second,
	)
	tokenService := services.NewTokenService(
		tokenRepo,
		clock,
		[]byte(cfg.JWT.Secret),
		time.Duration(cfg.JWT.AccessTokenTTLMinutes)*time.Minute,
		time.Duration(cfg.JWT.RefreshTokenTTLDays)*24*time.Hour,
		alerts,
	)

	// === Cleanup reaper ===
	cleanupService := services.NewCleanupService(tokenRepo, clock, alerts)
	cleanupService.Start(
		time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute,
		services.CleanupPolicy{
			RevokedRetentionDays: cfg.Cleanup.RevokedRetentionDays,
			ExpiredGraceDays:     cfg.Cleanup.ExpiredGraceDays,
		},
	)
	defer cleanupService.Stop()

	// === Rate limiter ===
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore())
	limiterCfg := ratelimit.Config{
		Capacity:        cfg.RateLimit.Capacity,
		Burst:           cfg.RateLimit.Burst,
		RefillPerSecond: cfg.RateLimit.RefillPerSecond,
	}

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(verificationService, tokenService, userRepo, authService)

	// === Gin ===
	router := gin.Default()
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		authHandler,
		middleware.RateLimitMiddleware(limiter, limiterCfg, clock),
		middleware.AuthMiddleware(tokenService),
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("server listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("server failed: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
