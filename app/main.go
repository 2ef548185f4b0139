package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/noturbob/sjc/config"
	"github.com/noturbob/sjc/delivery"
	"github.com/noturbob/sjc/middleware"
	"github.com/noturbob/sjc/repository"
	"github.com/noturbob/sjc/service"
	"github.com/noturbob/sjc/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.Env == "development" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.BootDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	redisClient := config.InitRedisDB(cfg.RedisAddr, cfg.RedisPassword, 0)

	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)

	mailer := &utils.Mailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.FromEmail,
	}

	authService := service.NewAuthService(userRepo, otpRepo, mailer, cfg.JWTSecret, cfg.RefreshTokenSecret, cfg.EmailDomain)
	limiter := middleware.NewRateLimiter(redisClient)

	app := gin.New()
	config.InitMiddleware(app, cfg)

	delivery.NewAuthHandler(app, authService, config.GoogleOAuthConfig(cfg), cfg.FrontendURL, cfg.EmailDomain, limiter)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
