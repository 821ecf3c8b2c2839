// Command councild runs the grants council decision-orchestration service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	councilhttp "github.com/opengrants/councild/internal/adapter/http"
	"github.com/opengrants/councild/internal/adapter/llm"
	councilnats "github.com/opengrants/councild/internal/adapter/nats"
	"github.com/opengrants/councild/internal/adapter/otel"
	"github.com/opengrants/councild/internal/adapter/postgres"
	"github.com/opengrants/councild/internal/adapter/ristretto"
	"github.com/opengrants/councild/internal/adapter/ws"
	"github.com/opengrants/councild/internal/config"
	"github.com/opengrants/councild/internal/domain/observation"
	"github.com/opengrants/councild/internal/resilience"
	"github.com/opengrants/councild/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger.With("service", cfg.Logging.Service))

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"panelists", len(cfg.Council.Panelists),
		"max_rounds", cfg.Council.MaxRounds,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	shutdownMetrics := otel.InitMeterProvider()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownMetrics(shutdownCtx)
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := councilnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	cache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	oracleClient := llm.NewClient(cfg.Oracle.URL, cfg.Oracle.APIKey, cfg.Oracle.Timeout)
	oracleClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---

	hub := ws.NewHub()
	store := postgres.NewStore(pool)

	pruneRule := observation.PruneRule{
		MinEvidence:  cfg.Learning.PruneMinEvidence,
		MaxAge:       cfg.Learning.PruneMaxAge,
		MinRetrieval: cfg.Learning.PruneMinRetrieval,
	}
	observationSvc := service.NewObservationService(store, pruneRule)
	teamSvc := service.NewTeamService(store, cache, cfg.Cache.TeamTTL)
	proposalSvc := service.NewProposalService(store)
	coordinatorSvc := service.NewCoordinatorService(oracleClient, observationSvc, cfg.Council, metrics)
	deliberationSvc := service.NewDeliberationService(oracleClient, cfg.Council, metrics)
	synthesisSvc := service.NewSynthesisService(oracleClient, cfg.Oracle.SynthesisModel, cfg.Council)
	learningSvc := service.NewLearningService(store, oracleClient, cfg.Council.Panelists, cfg.Learning, metrics)
	councilSvc := service.NewCouncilService(
		store, coordinatorSvc, deliberationSvc, synthesisSvc, teamSvc, learningSvc,
		queue, hub, cfg.Routing, metrics,
	)

	cancelLearning, err := learningSvc.Subscribe(ctx, queue)
	if err != nil {
		return fmt.Errorf("learning subscriber: %w", err)
	}
	defer cancelLearning()

	// --- HTTP ---

	handlers := councilhttp.NewHandlers(proposalSvc, councilSvc, observationSvc, teamSvc, queue, hub)

	r := chi.NewRouter()
	r.Use(councilhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(councilhttp.Logger)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	councilhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(r, "councild"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Evaluation runs stream for minutes over SSE; no write deadline.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
