package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/videotube-backend/internal/api"
	"github.com/dom/videotube-backend/internal/config"
	"github.com/dom/videotube-backend/internal/media"
	"github.com/dom/videotube-backend/internal/metrics"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/dom/videotube-backend/internal/repository/memory"
	"github.com/dom/videotube-backend/internal/repository/postgres"
	"github.com/dom/videotube-backend/internal/service"
	"github.com/dom/videotube-backend/internal/websocket"
	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if !cfg.IsProduction() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx := context.Background()

	// Initialize store
	repos, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	uploader, err := openUploader(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up media storage", "driver", cfg.MediaDriver, "error", err)
		os.Exit(1)
	}

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	collector := metrics.NewCollector()
	collector.TrackSessionSockets(hub.Connections)

	// Initialize services
	services, err := service.NewServices(repos, uploader, hub, collector, cfg)
	if err != nil {
		slog.Error("failed to build services", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(services, hub, collector, cfg)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver, "media", cfg.MediaDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	hub.Stop()

	slog.Info("server stopped")
}

func openStore(cfg *config.Config) (*repository.Repositories, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		return memory.NewRepositories(memory.NewStore()), nil
	}

	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}
	db, err := postgres.NewConnection(cfg.DatabaseURL, logLevel)
	if err != nil {
		return nil, err
	}
	return postgres.NewRepositories(db), nil
}

func openUploader(ctx context.Context, cfg *config.Config) (media.Uploader, error) {
	if cfg.MediaDriver == config.MediaDriverDisk {
		return media.NewDiskUploader(cfg.MediaDir, cfg.MediaPublicURL)
	}
	return media.NewS3Uploader(ctx, media.S3Config{
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		PublicURL: cfg.S3PublicURL,
	})
}
