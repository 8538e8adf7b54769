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

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventrank/internal/app"
	"github.com/kailas-cloud/eventrank/internal/config"
	logpkg "github.com/kailas-cloud/eventrank/internal/logger"
	"github.com/kailas-cloud/eventrank/internal/metrics"
	chiTransport "github.com/kailas-cloud/eventrank/internal/transport/chi"
	"github.com/kailas-cloud/eventrank/internal/version"
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

	logger.Info("Starting eventrank API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("cache_capacity", cfg.Cache.Capacity),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRankingMetrics()

	components, err := app.Build(&cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build ranking service", zap.Error(err))
	}
	w := components.Ranking.DefaultWeights()
	logger.Info("Ranking service ready",
		zap.Float64("weight_sim", w.Sim),
		zap.Float64("weight_label", w.Label),
		zap.Float64("weight_recency", w.Recency),
		zap.Int("horizon_days", cfg.Ranking.HorizonDays),
		zap.Int("prefilter_top_k", cfg.Index.PrefilterTopK),
		zap.Int("majors", components.Majors.Len()),
	)

	server := chiTransport.NewServer(components.Ranking, components.Health, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)
	router := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys: cfg.Auth.APIKeys,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
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

	logger.Info("Server stopped gracefully", zap.Int("cached_vectors", components.Cache.Len()))
}
