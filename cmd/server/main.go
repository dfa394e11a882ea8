package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/provexlabs/provex-backend/internal/config"
	"github.com/provexlabs/provex-backend/internal/database"
	"github.com/provexlabs/provex-backend/internal/generator"
	"github.com/provexlabs/provex-backend/internal/handler"
	"github.com/provexlabs/provex-backend/internal/logger"
	"github.com/provexlabs/provex-backend/internal/repository"
	"github.com/provexlabs/provex-backend/internal/router"
	"github.com/provexlabs/provex-backend/internal/service"
	"github.com/provexlabs/provex-backend/internal/validator"
	"github.com/provexlabs/provex-backend/internal/worker"
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
		Msg("Starting Provex Backend")

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
	sessionRepo := repository.NewExamSessionRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	responseRepo := repository.NewResponseRepository(pool)
	proctoringRepo := repository.NewProctoringRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	source := generator.New(cfg.GenAPIKey, cfg.GenBaseURL, cfg.GenModel, cfg.GenTimeout, log)
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo)
	sessionService := service.NewExamSessionService(sessionRepo, questionRepo, responseRepo, source)
	proctoringService := service.NewProctoringService(sessionRepo, proctoringRepo, rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := router.Handlers{
		Auth:       handler.NewAuthHandler(authService, userService, log),
		Exam:       handler.NewExamHandler(sessionService, log),
		Proctoring: handler.NewProctoringHandler(proctoringService, log),
		Monitor:    handler.NewMonitorHandler(proctoringService, rdb, cfg, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	eventWorker := worker.NewProctoringWorker(proctoringRepo, rdb, log)
	snapshotWorker := worker.NewSnapshotWorker(proctoringRepo, rdb, log)

	go eventWorker.Start(workerCtx)
	go snapshotWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.Setup(cfg, authService, handlers)

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

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
