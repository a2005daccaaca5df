package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"activation-api/internal/config"
	"activation-api/internal/db"
	"activation-api/internal/email"
	apihttp "activation-api/internal/http"
	"activation-api/internal/repository"
	"activation-api/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	// No se aborta si el ping falla: /db-status queda disponible para
	// diagnosticar la conectividad.
	if err := db.Ping(ctx, pool); err != nil {
		logger.Warn("db ping failed", zap.Error(err))
	}

	memberRepo := repository.NewPgMemberRepository(pool)

	// Un solo adaptador de correo, elegido por configuración al arranque.
	emailSender := email.NewDisabledSender("set BREVO_API_KEY or SMTP_HOST")
	switch {
	case cfg.BrevoAPIKey != "":
		sender, err := email.NewBrevoSender(cfg.BrevoBaseURL, cfg.BrevoAPIKey, cfg.MailFrom, cfg.MailFromName)
		if err != nil {
			logger.Warn("brevo sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	case cfg.SMTPHost != "":
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, cfg.MailFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	default:
		logger.Warn("email provider not configured")
	}

	var otpLimiter service.OTPRateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, 5*time.Minute, 3)
		}
		cancel()
	}
	if otpLimiter == nil {
		otpLimiter = service.NewOTPRateLimiter(5*time.Minute, 3)
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTService(cfg.JWTSecret)

	regSvc := service.NewRegistrationService(logger, memberRepo, emailSender, otpLimiter)

	emailCfg := apihttp.EmailSettings{
		BrevoAPIKeySet: cfg.BrevoAPIKey != "",
		SMTPHost:       cfg.SMTPHost,
		MailFrom:       cfg.MailFrom,
		MailFromName:   cfg.MailFromName,
	}
	authHandler := apihttp.NewAuthHandler(logger, regSvc, jwtSvc, emailSender, emailCfg, cfg.IsProduction())
	sysHandler := apihttp.NewSystemHandler(logger, pool, memberRepo, cfg.IsProduction())
	router := apihttp.NewRouter(logger, authHandler, sysHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
