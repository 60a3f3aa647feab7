package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/igsr/popdex"
	"github.com/igsr/popdex/internal/config"
	logpkg "github.com/igsr/popdex/internal/logger"
	"github.com/igsr/popdex/internal/metrics"
	chiTransport "github.com/igsr/popdex/internal/transport/chi"
	healthuc "github.com/igsr/popdex/internal/usecase/health"
	"github.com/igsr/popdex/internal/version"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

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

	logger.Info("Starting popdex facade",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("portal_url", cfg.Portal.BaseURL),
		zap.Duration("portal_timeout", cfg.Portal.Timeout()),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := popdex.New(clientOptions(cfg, logger, reg)...)
	if err != nil {
		logger.Fatal("Failed to create population client", zap.Error(err))
	}
	pops := client.Populations()

	httpMetrics, err := metrics.NewHTTP(reg)
	if err != nil {
		logger.Fatal("Failed to register HTTP metrics", zap.Error(err))
	}

	server := chiTransport.NewServer(pops, healthuc.New(pops), logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		Logger:         logger,
		Metrics:        httpMetrics,
		Gatherer:       reg,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAgeSec:  cfg.CORS.MaxAgeSec,
	})

	// Warm the shared population list so the first UI request does not pay for it.
	go func() {
		warmCtx, cancel := context.WithTimeout(context.Background(), cfg.Portal.Timeout()+time.Second)
		defer cancel()
		if _, err := pops.GetAll(warmCtx); err != nil {
			logger.Warn("Population list warm-up failed", zap.Error(err))
			return
		}
		logger.Info("Population list cached", zap.Int("descriptions", len(pops.Descriptions())))
	}()

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// clientOptions maps the portal config onto SDK options.
func clientOptions(cfg config.Config, logger *zap.Logger, reg prometheus.Registerer) []popdex.Option {
	opts := []popdex.Option{
		popdex.WithBaseURL(cfg.Portal.BaseURL),
		popdex.WithTimeout(cfg.Portal.Timeout()),
		popdex.WithUserAgent(cfg.Portal.UserAgent),
		popdex.WithLogger(logger),
		popdex.WithPrometheus(reg),
	}
	if cfg.Portal.RateLimitRPS > 0 {
		opts = append(opts, popdex.WithRateLimit(cfg.Portal.RateLimitRPS, cfg.Portal.RateLimitBurst))
	}
	if len(cfg.Portal.ListSourceFields) > 0 {
		opts = append(opts, popdex.WithListSourceFields(cfg.Portal.ListSourceFields...))
	}
	return opts
}
