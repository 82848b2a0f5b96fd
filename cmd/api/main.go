// Package main is the entry point for the API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"

	"github.com/civiclabs/votegrity/internal/api"
	"github.com/civiclabs/votegrity/internal/auth"
	"github.com/civiclabs/votegrity/internal/ballot"
	"github.com/civiclabs/votegrity/internal/config"
	"github.com/civiclabs/votegrity/internal/election"
	"github.com/civiclabs/votegrity/internal/health"
	"github.com/civiclabs/votegrity/internal/identity"
	"github.com/civiclabs/votegrity/internal/middleware"
	"github.com/civiclabs/votegrity/internal/security"
	"github.com/civiclabs/votegrity/internal/stream"
	"github.com/civiclabs/votegrity/internal/tally"
	"github.com/civiclabs/votegrity/internal/tracing"
	"github.com/civiclabs/votegrity/internal/verify"
	"github.com/civiclabs/votegrity/internal/voter"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Votegrity API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summary := make([]any, 0, len(cfg.LogSummary())*2)
	for k, v := range cfg.LogSummary() {
		summary = append(summary, k, v)
	}
	logger.Info("configuration loaded", summary...)

	tracer, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "votegrity-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporterType,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Storage backends. Empty DATABASE_URL means in-memory repositories,
	// which is the dev/test configuration.
	var (
		voters     voter.Repository
		elections  election.Repository
		ballots    ballot.Repository
		events     security.EventStore
		results    tally.ResultStore
		dbChecker  api.HealthChecker
		redisCheck api.HealthChecker
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			cancel()
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		cancel()

		voters = voter.NewPostgresRepository(db)
		elections = election.NewPostgresRepository(db)
		ballots = ballot.NewPostgresRepository(db)
		events = security.NewPostgresEventStore(db)
		results = tally.NewPostgresResultStore(db)
		dbChecker = health.NewDBChecker(db)
		logger.Info("using postgres repositories")
	} else {
		voters = voter.NewInMemoryRepository()
		elections = election.NewInMemoryRepository()
		ballots = ballot.NewInMemoryRepository()
		events = security.NewInMemoryEventStore()
		results = tally.NewInMemoryResultStore()
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
	}

	// Redis backs the single-use assertion store and the rate limiter when
	// available so multiple instances share state.
	var (
		assertions     identity.AssertionStore
		rateLimitStore middleware.RateLimitStore
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		assertions = identity.NewRedisAssertionStore(client, cfg.AssertionTTL)
		rateLimitStore = middleware.NewRedisRateLimitStore(client)
		redisCheck = health.NewRedisChecker(client)
		logger.Info("using redis assertion store")
	} else {
		memAssertions := identity.NewInMemoryAssertionStore(cfg.AssertionTTL)
		memLimits := middleware.NewInMemoryRateLimitStore()
		assertions = memAssertions
		rateLimitStore = memLimits
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memAssertions.Cleanup()
				memLimits.Cleanup()
			}
		}()
		logger.Warn("REDIS_URL not set, using in-memory assertion store")
	}

	// Biometric templates go to an S3-compatible bucket when configured.
	var templates identity.TemplateStore
	if cfg.TemplateBucketName != "" {
		s3Store, err := identity.NewS3TemplateStore(identity.S3Config{
			BucketName:      cfg.TemplateBucketName,
			AccessKeyID:     cfg.TemplateAccessKeyID,
			SecretAccessKey: cfg.TemplateSecretAccessKey,
			Endpoint:        cfg.TemplateEndpoint,
		})
		if err != nil {
			logger.Error("failed to initialize template store", "error", err)
			os.Exit(1)
		}
		templates = s3Store
		logger.Info("using s3 template store", "bucket", cfg.TemplateBucketName)
	} else {
		templates = identity.NewInMemoryTemplateStore()
		logger.Warn("template bucket not configured, using in-memory template store")
	}

	// Domain services
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	voterService := voter.NewService(voters, templates, logger)
	monitor := security.NewMonitor(events, security.MonitorConfig{
		Window:              time.Duration(cfg.SuspiciousWindowHours) * time.Hour,
		FailureThreshold:    cfg.SuspiciousFailureThreshold,
		DistinctIPThreshold: cfg.SuspiciousDistinctIPThreshold,
	}, logger)
	gate := identity.NewGate(voters, templates, identity.NewCosineMatcher(), assertions, monitor, cfg.FaceMatchThreshold, logger)
	ledger := ballot.NewLedger(ballots, elections, voters, assertions, cfg.ReceiptSalt, logger)
	verifier := verify.NewService(ballots, cfg.ReceiptSalt, logger)
	hub := stream.NewHub()
	engine := tally.NewEngine(ballots, elections, voters, election.NewKeyring(elections), results, hub, cfg.AllowTallyBeforeClose, logger)

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := middleware.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Handlers{
		Voters:   api.NewVoterHandlers(voterService, monitor, jwtService),
		Identity: api.NewIdentityHandlers(gate),
		Ballots:  api.NewBallotHandlers(ledger, verifier),
		Election: api.NewElectionHandlers(elections, jwtService, cfg.AdminUsername, cfg.AdminPasswordHash),
		Tally:    api.NewTallyHandlers(engine),
		Security: api.NewSecurityHandlers(monitor),
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			DBChecker:    dbChecker,
			RedisChecker: redisCheck,
		}),
		Results: api.NewResultsWebSocketHandlers(elections, hub),
	}, api.RouterConfig{
		JWT:            jwtService,
		RateLimitStore: rateLimitStore,
		AuthLimit:      middleware.DefaultAuthLimit(),
	})

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"votegrity-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Middleware chain: RequestID -> Tracing -> Logging -> Metrics
	var handler http.Handler = mux
	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing("votegrity-api")(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown tracing", "error", err)
	}

	logger.Info("server stopped")
}
