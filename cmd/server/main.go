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

	"github.com/VictoriaMetrics/metrics"
	"github.com/gin-gonic/gin"

	"github.com/muandane/special-stack/teamlogos/internal/cache"
	"github.com/muandane/special-stack/teamlogos/internal/config"
	"github.com/muandane/special-stack/teamlogos/internal/handlers"
	"github.com/muandane/special-stack/teamlogos/internal/janitor"
	"github.com/muandane/special-stack/teamlogos/internal/logo"
	"github.com/muandane/special-stack/teamlogos/internal/router"
	"github.com/muandane/special-stack/teamlogos/internal/storage"
	"github.com/muandane/special-stack/teamlogos/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := upstream.NewClient(cfg.Upstream.BaseURL,
		upstream.WithTimeout(cfg.Upstream.FetchTimeout),
		upstream.WithRateLimit(cfg.Upstream.RPS, cfg.Upstream.Burst),
	)
	if err != nil {
		return err
	}

	logoMetrics := logo.NewMetrics()
	metrics.RegisterSet(logoMetrics.Set())
	logos := logo.NewService(fetcher, logo.Options{
		WebPSupported:        cfg.Logo.WebPSupported,
		TTL:                  cfg.Logo.CacheTTL,
		FailureCooldown:      cfg.Logo.FailureCooldown,
		FetchTimeout:         cfg.Upstream.FetchTimeout,
		PreloadConcurrency:   cfg.Logo.PreloadConcurrency,
		CooldownClientErrors: cfg.Logo.CooldownClientErrors,
		Logger:               logger.With("component", "logo"),
		Metrics:              logoMetrics,
	})

	minioClient, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return err
	}
	imageCache := cache.NewStore(cfg.Images.CacheTTL, cfg.Images.CacheMaxBytes)
	stats := handlers.NewStatsHandler(imageCache)
	images, err := handlers.NewImageHandler(storage.NewMinioObjects(minioClient, cfg.Storage.Bucket), imageCache, stats, logger)
	if err != nil {
		return err
	}

	logoJanitor := janitor.New("logo", cfg.Logo.SweepInterval, logos.ClearExpiredCache, logger)
	imageJanitor := janitor.New("images", time.Minute, imageCache.Sweep, logger)
	logoJanitor.Start(ctx)
	imageJanitor.Start(ctx)
	defer logoJanitor.Stop()
	defer imageJanitor.Stop()

	r := router.NewRouter(logger, cfg.Admin, cfg.Images)
	handler := r.Setup(router.Handlers{
		Logos:  handlers.NewLogoHandler(logos, logger),
		Images: images,
		Stats:  stats,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			"addr", cfg.ListenAddr,
			"upstream", cfg.Upstream.BaseURL,
			"webp_supported", logos.WebPSupported(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := logos.Wait(shutdownCtx); err != nil {
		logger.Warn("preload pass abandoned at shutdown", "error", err, "queued", logos.Stats().Queued)
	}
	return nil
}
