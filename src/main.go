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

	"github.com/Shashank-765/NhaiTrackingSystem/internal/config"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/events"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/httpapi"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/httpclient"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/media"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/middleware"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/service"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/store"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const serviceName = "nhai-tracker"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "development" || cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting "+serviceName,
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store_type", cfg.StoreType,
		"notify_transport", cfg.NotifyTransport,
		"media_type", cfg.MediaType,
		"auth_mode", cfg.AuthMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batchStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := batchStore.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	transport, closeTransport, err := openTransport(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize notification transport", "error", err)
		os.Exit(1)
	}
	defer closeTransport()

	mediaStore, mediaFiles, err := openMedia(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize media store", "error", err)
		os.Exit(1)
	}

	var auth middleware.Authenticator
	switch cfg.AuthMode {
	case "header":
		slog.Warn("header authentication enabled; callers are trusted as declared")
		auth = middleware.HeaderAuthenticator{}
	default:
		auth = middleware.NewJWTAuthenticator(cfg.JWTSecret, cfg.TokenTTL)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute)
		go pruneLimiter(limiter)
	}

	// Initialize service
	svc := service.New(batchStore, events.NewDispatcher(transport), mediaStore)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpapi.NewRouter(svc, auth, mediaFiles, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func pruneLimiter(rl *middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.Prune(10 * time.Minute)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.BatchStore, error) {
	switch cfg.StoreType {
	case "mongo":
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, err
		}
		if err := mongoClient.Ping(ctx, nil); err != nil {
			return nil, err
		}
		mongoStore := store.NewMongoBatchStore(mongoClient, cfg.MongoDB)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			slog.Warn("failed to create indexes", "error", err)
		}
		slog.Info("using mongodb store", "uri", cfg.RedactedMongoURI(), "db", cfg.MongoDB)
		return &mongoCloser{MongoBatchStore: mongoStore, client: mongoClient}, nil

	case "firestore":
		fsStore, err := store.NewFirestoreStore(ctx, cfg.FirestoreProject, cfg.FirestoreBatches)
		if err != nil {
			return nil, err
		}
		slog.Info("using firestore store", "project", cfg.FirestoreProject, "collection", cfg.FirestoreBatches)
		return fsStore, nil

	default:
		slog.Info("using in-memory store")
		return store.NewMemoryStore(), nil
	}
}

// mongoCloser disconnects the client the store was built on.
type mongoCloser struct {
	*store.MongoBatchStore
	client *mongo.Client
}

func (m *mongoCloser) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func openTransport(ctx context.Context, cfg *config.Config) (events.Transport, func(), error) {
	noop := func() {}

	var transports events.MultiTransport
	var rt *events.RedisTransport

	if cfg.NotifyTransport == "redis" || cfg.NotifyTransport == "multi" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, noop, err
		}
		rt = events.NewRedisTransport(rdb, cfg.RedisPrefix, serviceName)
		transports = append(transports, rt)
		slog.Info("publishing notifications to redis", "addr", cfg.RedisAddr, "prefix", cfg.RedisPrefix)
	}

	if cfg.NotifyTransport == "webhook" || cfg.NotifyTransport == "multi" {
		client := httpclient.NewClient(serviceName, cfg.WebhookTimeout)
		switch {
		case cfg.WebhookToken == "":
		case cfg.WebhookKeyHeader != "":
			client = client.WithAuth(&httpclient.APIKeyAuth{Header: cfg.WebhookKeyHeader, Key: cfg.WebhookToken})
		default:
			client = client.WithAuth(&httpclient.BearerTokenAuth{Token: cfg.WebhookToken})
		}
		transports = append(transports, events.NewWebhookTransport(serviceName, cfg.WebhookURL, client))
		slog.Info("publishing notifications to webhook", "url", cfg.WebhookURL)
	}

	closeFn := noop
	if rt != nil {
		closeFn = func() {
			if err := rt.Close(); err != nil {
				slog.Error("failed to close redis", "error", err)
			}
		}
	}

	switch len(transports) {
	case 0:
		return events.LogTransport{}, closeFn, nil
	case 1:
		return transports[0], closeFn, nil
	}
	return transports, closeFn, nil
}

func openMedia(ctx context.Context, cfg *config.Config) (media.Store, http.Handler, error) {
	switch cfg.MediaType {
	case "minio":
		ms, err := media.NewMinioStore(media.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			URLExpiry: cfg.MinioURLExpiry,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		slog.Info("storing payment media in minio", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
		return ms, media.RedirectHandler(ms), nil
	default:
		ls, err := media.NewLocalStore(cfg.MediaDir)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("storing payment media on disk", "dir", cfg.MediaDir)
		return ls, ls, nil
	}
}
