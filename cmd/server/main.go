package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/vigilo/proctor-backend/internal/config"
	"github.com/vigilo/proctor-backend/internal/database"
	"github.com/vigilo/proctor-backend/internal/handler"
	"github.com/vigilo/proctor-backend/internal/logger"
	"github.com/vigilo/proctor-backend/internal/repository"
	"github.com/vigilo/proctor-backend/internal/router"
	"github.com/vigilo/proctor-backend/internal/service"
	"github.com/vigilo/proctor-backend/internal/tracker"
	"github.com/vigilo/proctor-backend/internal/validator"
	"github.com/vigilo/proctor-backend/internal/worker"
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
		Msg("Starting Vigilo Proctor Backend")

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
	examRepo := repository.NewExamRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	movementRepo := repository.NewMovementRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool)
	screenLogRepo := repository.NewScreenLogRepository(pool)

	// ─── Initialize Tracker ────────────────────────────────────────────
	positionStore := tracker.NewPositionStore(cfg.TrackTTL, cfg.TrackSweepInterval, log)
	classifier := tracker.NewClassifier(positionStore, cfg.MovementThreshold, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, authService)
	examService := service.NewExamService(examRepo, log)
	sessionService := service.NewExamSessionService(sessionRepo, examRepo, log)
	proctorService := service.NewProctorService(classifier, movementRepo, rdb, log)
	reportService := service.NewReportService(movementRepo, reportRepo, log)
	monitorService := service.NewMonitorService(monitorRepo, movementRepo, screenLogRepo)
	screenLogService := service.NewScreenLogService(screenLogRepo, log)
	frameService := service.NewFrameService(cfg)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, userService),
		User:    handler.NewUserHandler(userService),
		Exam:    handler.NewExamHandler(examService, sessionService),
		Session: handler.NewSessionHandler(sessionService),
		Proctor: handler.NewProctorHandler(proctorService, sessionService, frameService, screenLogService, log),
		Monitor: handler.NewMonitorHandler(rdb, monitorService, frameService, log),
		Report:  handler.NewReportHandler(reportService),
		WS:      handler.NewWSHandler(proctorService, sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	movementWorker := worker.NewMovementWorker(pool, rdb, log)

	go movementWorker.Start(workerCtx)
	go positionStore.Run(workerCtx)

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

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
