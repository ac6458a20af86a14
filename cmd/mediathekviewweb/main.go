package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Frischifrisch/mediathekviewweb/internal/config"
	dbRedis "github.com/Frischifrisch/mediathekviewweb/internal/db/redis"
	"github.com/Frischifrisch/mediathekviewweb/internal/filmlist"
	bleveindex "github.com/Frischifrisch/mediathekviewweb/internal/index/bleve"
	logpkg "github.com/Frischifrisch/mediathekviewweb/internal/logger"
	"github.com/Frischifrisch/mediathekviewweb/internal/metrics"
	"github.com/Frischifrisch/mediathekviewweb/internal/query"
	entryrepo "github.com/Frischifrisch/mediathekviewweb/internal/repository/entry"
	importstaterepo "github.com/Frischifrisch/mediathekviewweb/internal/repository/importstate"
	chiTransport "github.com/Frischifrisch/mediathekviewweb/internal/transport/chi"
	healthuc "github.com/Frischifrisch/mediathekviewweb/internal/usecase/health"
	importeruc "github.com/Frischifrisch/mediathekviewweb/internal/usecase/importer"
	searchuc "github.com/Frischifrisch/mediathekviewweb/internal/usecase/search"
	"github.com/Frischifrisch/mediathekviewweb/internal/version"
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

	logger.Info("Starting mediathekviewweb API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("importer_disabled", cfg.Importer.Disabled),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterSearchMetrics()
	metrics.RegisterImporterMetrics()

	idx, err := bleveindex.Open(bleveindex.Config{Path: cfg.Index.Path})
	if err != nil {
		logger.Fatal("Failed to open index", zap.Error(err))
	}
	logger.Info("Index opened", zap.String("path", cfg.Index.Path))

	// The converter table is static, a broken one must stop the start.
	compiler, err := query.NewCompiler(query.DefaultConverters(), query.DefaultFields())
	if err != nil {
		logger.Fatal("Invalid selector table", zap.Error(err))
	}

	entryRepo := entryrepo.New(store)
	stateRepo := importstaterepo.New(store)

	searchSvc := searchuc.New(compiler, idx, entryRepo, stateRepo, cfg.Search.CacheSize, cfg.Search.MaxResults)
	healthSvc := healthuc.New(store, idx)

	// One importer per instance. All instances construct it (the HTTP
	// reindex endpoint needs it), only non-disabled ones run the loop.
	fetcher := filmlist.NewClient(cfg.Importer.URL, time.Duration(cfg.Importer.TimeoutSec)*time.Second)
	hostname, _ := os.Hostname()
	importSvc := importeruc.New(
		importeruc.Config{
			InstanceID: fmt.Sprintf("%s-%s", hostname, uuid.NewString()),
			Interval:   time.Duration(cfg.Importer.IntervalMin) * time.Minute,
			LockTTL:    time.Duration(cfg.Importer.LockTTLSec) * time.Second,
			BatchSize:  cfg.Importer.BatchSize,
		},
		fetcher, entryRepo, stateRepo, idx, store, logger,
	)

	importCtx, stopImporter := context.WithCancel(ctx)
	defer stopImporter()
	if cfg.Importer.Disabled {
		logger.Info("Importer disabled, serving queries only")
	} else {
		go importSvc.Run(importCtx)
	}

	server := chiTransport.NewServer(searchSvc, importSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

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

	stopImporter()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := idx.Close(); err != nil {
		logger.Error("Error closing index", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits one canonical log line per request and
// reflects the request ID back in the X-Request-ID header. Handlers
// reach the per-request logger through the context.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Minted upstream by chi's RequestID middleware.
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.Int64("bytes_in", r.ContentLength),
				zap.Int("bytes_out", ww.BytesWritten()),
				zap.String("remote", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)
		})
	}
}
