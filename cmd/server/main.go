package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/leaf-api/internal/config"
	"github.com/Brownie44l1/leaf-api/internal/dispatch"
	"github.com/Brownie44l1/leaf-api/internal/handlers"
	"github.com/Brownie44l1/leaf-api/internal/metrics"
	"github.com/Brownie44l1/leaf-api/internal/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	manifest, err := model.ReadManifest(cfg.ManifestPath)
	if err != nil {
		logger.Fatal("failed to read model manifest", zap.String("path", cfg.ManifestPath), zap.Error(err))
	}

	if err := model.InitEnvironment(cfg.OrtLibPath); err != nil {
		logger.Fatal("failed to initialize onnxruntime", zap.Error(err))
	}
	defer model.DestroyEnvironment()

	registry, err := model.LoadRegistry(manifest, model.OpenOnnxModel)
	if err != nil {
		logger.Fatal("failed to load models", zap.Error(err))
	}
	defer registry.Close()

	for _, name := range registry.Names() {
		mdl, _ := registry.Get(name)
		logger.Info("model loaded",
			zap.String("model", name),
			zap.Strings("classes", mdl.Metadata().Classes),
			zap.Int64s("input_shape", mdl.Metadata().InputShape))
	}

	m := metrics.New()
	dispatcher := dispatch.New(registry, m, logger, dispatch.Options{
		CacheTTL:       cfg.CacheTTL,
		MaxImagePixels: cfg.MaxImagePixels,
	})
	handler := handlers.NewHandler(dispatcher, registry, cfg.MaxUploadBytes, logger)
	router, endpoints := handlers.NewRouter(handler, registry, m, cfg.CORSOrigins, logger)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	logger.Info("server starting", zap.String("addr", cfg.Addr()), zap.Strings("cors_origins", cfg.CORSOrigins))
	for _, e := range endpoints {
		logger.Info("endpoint", zap.String("method", e.Method), zap.String("path", e.Path), zap.String("description", e.Description))
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		logger.Error("server failed", zap.Error(err))
		return
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
