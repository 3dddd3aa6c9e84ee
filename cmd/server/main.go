package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventify/internal/config"
	"github.com/eventify/internal/db"
	"github.com/eventify/internal/handler"
	"github.com/eventify/internal/logger"
	"github.com/eventify/internal/metrics"
	"github.com/eventify/internal/realtime"
	"github.com/eventify/internal/router"
	"github.com/eventify/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logr, err := logger.New(cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logr.Sync()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Init(cfg.DatabasePath); err != nil {
		logr.Fatalw("failed to initialize database", "path", cfg.DatabasePath, "error", err)
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		logr.Fatalw("failed to open blob store", "backend", cfg.StorageBackend, "error", err)
	}

	if cfg.RoutePassword == config.DefaultRoutePassword {
		logr.Warn("ROUTE_PASSWORD is not set, admin routes use the default password")
	}

	opts := handler.Options{
		Blobs:                blobs,
		MediaURLPath:         cfg.MediaURLPath,
		MaxUploadBytes:       cfg.MaxUploadBytes,
		RoutePassword:        cfg.RoutePassword,
		ContactRatePerMinute: cfg.ContactRatePerMinute,
		Metrics:              metrics.New("eventify"),
		Logger:               logr,
	}

	var redisNotifier *realtime.RedisNotifier
	if cfg.RedisURL != "" {
		redisNotifier, err = realtime.NewRedisNotifier(cfg.RedisURL, cfg.RedisChannel, logr)
		if err != nil {
			logr.Fatalw("invalid REDIS_URL", "error", err)
		}
		defer redisNotifier.Close()
		if err := redisNotifier.Ping(ctx); err != nil {
			logr.Fatalw("redis unreachable", "error", err)
		}
		opts.Notifier = redisNotifier
	}

	api := handler.NewAPI(db.DB, opts)
	if redisNotifier != nil {
		go listenForChanges(ctx, redisNotifier, api, logr)
	}

	r := router.SetupRouter(api, router.Config{
		SessionSecret: cfg.SessionSecret,
		MediaURLPath:  cfg.MediaURLPath,
		SecureCookie:  gin.Mode() == gin.ReleaseMode,
		Logger:        logr,
	})

	srv := newServer(ctx, cfg.ListenAddr, r)

	go func() {
		logr.Infow("server listening", "addr", cfg.ListenAddr, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatalw("failed to run server", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Errorw("graceful shutdown failed", "error", err)
	}
}

// newServer derives every request context from ctx, so open live streams
// end when ctx is cancelled and Shutdown does not wait on them.
func newServer(ctx context.Context, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

func openBlobStore(ctx context.Context, cfg config.AppConfig) (storage.BlobStore, error) {
	if cfg.StorageBackend != config.StorageS3 {
		return storage.NewLocalStore(cfg.UploadDir)
	}

	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		ForcePathStyle: cfg.S3.ForcePathStyle,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// listenForChanges refreshes local subscribers for every change announced
// by any instance, reconnecting until ctx ends.
func listenForChanges(ctx context.Context, n *realtime.RedisNotifier, api *handler.API, logr *zap.SugaredLogger) {
	for {
		err := n.Listen(ctx, api.Feed().Refresh)
		if ctx.Err() != nil {
			return
		}
		logr.Warnw("redis listener stopped, retrying", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}
