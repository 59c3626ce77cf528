package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"exnotify/payloadhub/internal/bootstrap"
	"exnotify/payloadhub/internal/config"
	"exnotify/payloadhub/internal/handler"
	"exnotify/payloadhub/internal/service"
	jwtpkg "exnotify/payloadhub/pkg/jwt"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 4. Build hybrid storage (primary + replica)
	store, err := bootstrap.NewStorage(context.Background(), cfg, logger, registry)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}
	logger.Info("hybrid storage ready",
		zap.String("primary", cfg.Storage.PrimaryBackend),
		zap.String("replica", cfg.Storage.ReplicaBackend),
		zap.Bool("fallback", cfg.Storage.EnableFallback),
		zap.Bool("dual_write", cfg.Storage.EnableDualWrite),
	)

	// 5. Initialize services and handlers
	payloadHandler := handler.NewPayloadHandler(service.NewPayloadService(store, logger), logger)

	var jwtManager *jwtpkg.Manager
	var adminHandler *handler.AdminHandler
	if cfg.JWT.SigningKey != "" {
		jwtManager, err = jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AdminTokenTTL)
		if err != nil {
			logger.Fatal("failed to init jwt manager", zap.Error(err))
		}
		adminHandler = handler.NewAdminHandler(service.NewAdminService(store, logger))
		logger.Info("admin API enabled", zap.Int("subjects", len(cfg.Admin.Subjects)))
	} else {
		logger.Warn("jwt.signing_key not set; admin API disabled")
	}

	// 6. Setup router
	router := handler.SetupRouter(handler.RouterDeps{
		Config:         cfg,
		Logger:         logger,
		Registry:       registry,
		JWTManager:     jwtManager,
		PayloadHandler: payloadHandler,
		AdminHandler:   adminHandler,
	})

	// 7. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 8. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 9. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// In-flight dual writes finish before connections close.
	if err := store.Close(); err != nil {
		logger.Error("failed to close storage", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
