package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/config"
	"github.com/kailas-cloud/sentinel/internal/db"
	dbMemory "github.com/kailas-cloud/sentinel/internal/db/memory"
	dbRedis "github.com/kailas-cloud/sentinel/internal/db/redis"
	dbSQLite "github.com/kailas-cloud/sentinel/internal/db/sqlite"
	"github.com/kailas-cloud/sentinel/internal/domain"
	domdet "github.com/kailas-cloud/sentinel/internal/domain/detection"
	domimg "github.com/kailas-cloud/sentinel/internal/domain/image"
	logpkg "github.com/kailas-cloud/sentinel/internal/logger"
	"github.com/kailas-cloud/sentinel/internal/metrics"
	budgetrepo "github.com/kailas-cloud/sentinel/internal/repository/budget"
	crawlrepo "github.com/kailas-cloud/sentinel/internal/repository/crawl"
	imagerepo "github.com/kailas-cloud/sentinel/internal/repository/image"
	subjectrepo "github.com/kailas-cloud/sentinel/internal/repository/subject"
	chiTransport "github.com/kailas-cloud/sentinel/internal/transport/chi"
	"github.com/kailas-cloud/sentinel/internal/transport/detector"
	detectionuc "github.com/kailas-cloud/sentinel/internal/usecase/detection"
	healthuc "github.com/kailas-cloud/sentinel/internal/usecase/health"
	imageuc "github.com/kailas-cloud/sentinel/internal/usecase/image"
	resultsuc "github.com/kailas-cloud/sentinel/internal/usecase/results"
	subjectuc "github.com/kailas-cloud/sentinel/internal/usecase/subject"
	usageuc "github.com/kailas-cloud/sentinel/internal/usecase/usage"
	"github.com/kailas-cloud/sentinel/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting sentinel API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("identity_mode", cfg.Identity.Mode),
		zap.String("on_duplicate", cfg.Images.OnDuplicate),
	)

	ctx := context.Background()

	store, err := openStore(ctx, cfg.Database, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	if err := db.WaitForReady(ctx, store, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register detection metrics explicitly (no init())
	metrics.RegisterDetectionMetrics()

	// Validated by config.Validate.
	mode, _ := domain.ParseTrustMode(cfg.Identity.Mode)
	policy, _ := domimg.ParsePolicy(cfg.Images.OnDuplicate)
	budgetAction, _ := detectionuc.ParseBudgetAction(cfg.Detector.Budget.Action)

	// One lock serializes every record operation across services.
	lock := &sync.Mutex{}

	imageRepo := imagerepo.New(store)
	crawlRepo := crawlrepo.New(store)
	subjectRepo := subjectrepo.New(store)

	var budget *detectionuc.BudgetTracker
	budgetCfg := cfg.Detector.Budget
	if budgetCfg.DailyLimit > 0 || budgetCfg.MonthlyLimit > 0 {
		budget = detectionuc.NewBudgetTracker(
			"detector", budgetCfg.DailyLimit, budgetCfg.MonthlyLimit, budgetAction, logger,
		)
		// Connect persistence store; loads current counters from DB.
		budget.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
	}

	// Pass nil interfaces (not typed nil pointers) if budget is not configured.
	var detectionOpts []detectionuc.Option
	var budgetReporter healthuc.BudgetReporter
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		detectionOpts = append(detectionOpts, detectionuc.WithBudget(budget))
		budgetReporter = budget
		budgetReader = budget
	}

	sender := detector.NewClient(&detector.Config{
		URL:          cfg.Detector.URL,
		Host:         cfg.Detector.Host,
		UserAgent:    cfg.Detector.UserAgent,
		Timeout:      time.Duration(cfg.Detector.TimeoutSec) * time.Second,
		MaxBodyBytes: int64(cfg.Detector.ExpectedResponseBytes),
		Logger:       logger,
	})
	cost := domdet.CostModel{
		Base:                  cfg.Detector.Cost.Base,
		PerByteIn:             cfg.Detector.Cost.PerByteIn,
		PerByteOut:            cfg.Detector.Cost.PerByteOut,
		ExpectedResponseBytes: cfg.Detector.ExpectedResponseBytes,
	}
	detectionOpts = append(detectionOpts, detectionuc.WithInlineCost(domdet.CostModel{
		Base:                  cfg.Detector.InlineCost.Base,
		PerByteIn:             cfg.Detector.InlineCost.PerByteIn,
		PerByteOut:            cfg.Detector.InlineCost.PerByteOut,
		ExpectedResponseBytes: cfg.Detector.ExpectedResponseBytes,
	}))

	// Create use case services
	imageSvc := imageuc.New(imageRepo, lock, policy)
	subjectSvc := subjectuc.New(subjectRepo, lock)
	resultsSvc := resultsuc.New(crawlRepo, lock)
	detectionSvc := detectionuc.New(imageRepo, crawlRepo, sender, lock, cost, detectionOpts...)
	healthSvc := healthuc.New(store, budgetReporter)
	usageSvc := usageuc.New(budgetReader)

	// Create chi server
	server := chiTransport.NewServer(
		imageSvc, subjectSvc, resultsSvc, detectionSvc, healthSvc, usageSvc,
		chiTransport.NewIdentity(mode), logger,
	).WithMaxImageBytes(cfg.HTTP.MaxImageBytes)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.Principals))
	r.Use(metrics.Middleware("/metrics"))
	chiTransport.Handler(server, chiTransport.ServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: chiTransport.DefaultParamErrorHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore creates the storage backend selected by the database driver.
func openStore(ctx context.Context, dbCfg config.DatabaseConfig, storageCfg config.StorageConfig) (db.Store, error) {
	switch dbCfg.Driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     dbCfg.Addrs,
			Password:  dbCfg.Password,
			KeyPrefix: storageCfg.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := dbSQLite.NewStore(ctx, dbSQLite.Config{Path: dbCfg.SQLitePath})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return dbMemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", dbCfg.Driver)
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    domain.KindInternal,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", chi.RouteContext(r.Context()).RoutePattern()),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
