package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbtprep/cbtprep-backend/internal/config"
	"github.com/cbtprep/cbtprep-backend/internal/database"
	"github.com/cbtprep/cbtprep-backend/internal/handler"
	"github.com/cbtprep/cbtprep-backend/internal/logger"
	"github.com/cbtprep/cbtprep-backend/internal/paystack"
	"github.com/cbtprep/cbtprep-backend/internal/questionbank"
	"github.com/cbtprep/cbtprep-backend/internal/repository"
	"github.com/cbtprep/cbtprep-backend/internal/router"
	"github.com/cbtprep/cbtprep-backend/internal/service"
	"github.com/cbtprep/cbtprep-backend/internal/validator"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting CBT Prep Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	// ─── Initialize External Clients ───────────────────────────────────
	questionClient := questionbank.NewClient(cfg.QuestionAPIURL, cfg.QuestionAPIToken, log)
	fallbackGen := questionbank.NewFallbackGenerator()
	paystackClient := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecret, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, authService)
	accessService := service.NewAccessService(cfg, userRepo, paymentRepo, log)
	sessionService := service.NewSessionService(cfg, sessionRepo, questionClient, fallbackGen, userRepo, accessService, rdb, log)
	paymentService := service.NewPaymentService(cfg, paymentRepo, paystackClient, accessService, log)
	explainService := service.NewExplainService(cfg, sessionService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, userService),
		Session: handler.NewSessionHandler(sessionService),
		Payment: handler.NewPaymentHandler(paymentService, accessService, userService),
		Subject: handler.NewSubjectHandler(),
		Explain: handler.NewExplainHandler(explainService),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
