package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/volcanion-systems/volcanion-tracking/internal/cache"
	"github.com/volcanion-systems/volcanion-tracking/internal/config"
	"github.com/volcanion-systems/volcanion-tracking/internal/dlq"
	"github.com/volcanion-systems/volcanion-tracking/internal/handlers"
	"github.com/volcanion-systems/volcanion-tracking/internal/middleware"
	"github.com/volcanion-systems/volcanion-tracking/internal/processor"
	"github.com/volcanion-systems/volcanion-tracking/internal/queue"
	"github.com/volcanion-systems/volcanion-tracking/internal/ratelimit"
	"github.com/volcanion-systems/volcanion-tracking/internal/repository"
	"github.com/volcanion-systems/volcanion-tracking/internal/server"
	"github.com/volcanion-systems/volcanion-tracking/internal/service"
	"github.com/volcanion-systems/volcanion-tracking/pkg/logging"
)

const shutdownGrace = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("tracking"))
	logging.SetDefault(logger)

	slog.Info("Starting tracking service",
		slog.Int("port", cfg.Server.Port),
		slog.Int("queue_capacity", cfg.Queue.Capacity),
		slog.String("queue_full_policy", cfg.Queue.FullPolicy),
		slog.Int("batch_max_size", cfg.Batch.MaxSize),
		slog.Duration("batch_max_wait", cfg.Batch.MaxWait),
	)

	// Storage
	var repo repository.Repository
	if cfg.Database.Type == "postgres" {
		dsn := cfg.Database.Postgres.DSN()

		pgRepo, err := repository.NewPostgresRepository(context.Background(), dsn)
		if err != nil {
			slog.Error("Failed to connect to PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pgRepo.Close()
		repo = pgRepo
		slog.Info("Connected to PostgreSQL",
			slog.String("host", cfg.Database.Postgres.Host),
			slog.String("database", cfg.Database.Postgres.Database),
		)

		slog.Info("Running database migrations")
		m, err := migrate.New("file://migrations", dsn)
		if err != nil {
			slog.Error("Failed to initialize migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			slog.Error("Failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		slog.Warn("Using in-memory repository (development only)")
		repo = repository.NewMemoryRepository()
	}

	// Counter and credential cache store
	var store cache.Store
	if cfg.Redis.Enabled {
		redisStore, err := cache.NewRedisStore(cfg.Redis.URL)
		if err != nil {
			slog.Error("Failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
		slog.Info("Connected to Redis")
	} else {
		slog.Warn("Using in-process cache store (single instance only)")
		store = cache.NewMemoryStore()
	}

	// Ingest pipeline
	q := queue.New(cfg.Queue.Capacity, queue.ParseFullPolicy(cfg.Queue.FullPolicy))

	var deadLetter dlq.Writer
	var jsWriter *dlq.JetStreamWriter
	if cfg.DLQ.Enabled {
		var err error
		jsWriter, err = dlq.NewJetStreamWriter(context.Background(), cfg.DLQ.NatsURL)
		if err != nil {
			slog.Error("Failed to connect to NATS JetStream", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer jsWriter.Close()
		deadLetter = jsWriter
		slog.Info("Dead-letter stream enabled", slog.String("nats_url", cfg.DLQ.NatsURL))
	}

	proc := processor.New(q, repo, deadLetter, cfg.Batch.MaxSize, cfg.Batch.MaxWait, logger.Logger)
	procCtx, stopProc := context.WithCancel(context.Background())
	go proc.Run(procCtx)

	// HTTP layer
	authenticator := middleware.NewAuthenticator(repo, store, cfg.Auth.CacheTTL)
	var limiter ratelimit.Limiter = ratelimit.NoOp{}
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(store, cfg.RateLimit.RequestsPerMinute)
	} else {
		slog.Warn("Rate limiting disabled by configuration")
	}

	trackingSvc := service.NewTrackingService(repo, q, logger)
	partnerSvc := service.NewPartnerService(repo, authenticator, logger)
	reportSvc := service.NewReportService(repo)

	router := server.NewRouter(server.Handlers{
		Tracking: handlers.NewTrackingHandler(trackingSvc, logger),
		Partners: handlers.NewPartnerHandler(partnerSvc, logger),
		Reports:  handlers.NewReportHandler(reportSvc, logger),
		Health:   handlers.NewHealthHandler(q, nil),
	}, authenticator, limiter)

	srv := server.New(cfg.Server.Addr(), router, logger)

	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("Server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	// Stop accepting requests first, then drain the queue so accepted
	// events reach storage.
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.String("error", err.Error()))
	}

	stopProc()
	select {
	case <-proc.Done():
		slog.Info("Event queue drained")
	case <-ctx.Done():
		slog.Error("Shutdown deadline reached before queue drained",
			slog.Int("remaining", q.Len()))
	}

	if jsWriter != nil {
		slog.Info("Dead-letter summary", slog.Uint64("batches_written", jsWriter.Written()))
	}
	slog.Info("Server stopped gracefully")
}
