// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carterperez-dev/usergate/internal/admin"
	"github.com/carterperez-dev/usergate/internal/config"
	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/gateway"
	"github.com/carterperez-dev/usergate/internal/health"
	"github.com/carterperez-dev/usergate/internal/middleware"
	"github.com/carterperez-dev/usergate/internal/server"
	"github.com/carterperez-dev/usergate/internal/upload"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath, config.ServiceGateway)
	if err != nil {
		return err
	}

	logger := core.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting gateway",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"transport", cfg.Gateway.Transport,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("failed to initialize telemetry", "error", err)
	} else if cfg.Otel.Enabled {
		logger.Info("OpenTelemetry tracer initialized",
			"endpoint", cfg.Otel.Endpoint,
		)
	}

	redis, err := core.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	storage, closeStorage, err := newStorage(ctx, cfg.Upload)
	if err != nil {
		return err
	}
	avatars := upload.NewAvatars(storage, cfg.Upload.Dir, cfg.Upload.MaxSize, logger)
	logger.Info("avatar storage ready",
		"backend", cfg.Upload.Backend,
		"dir", cfg.Upload.Dir,
	)

	restBackend := gateway.NewRESTBackend(gateway.RESTConfig{
		BaseURL:         cfg.Gateway.UserServiceURL,
		Timeout:         cfg.Gateway.HTTPTimeout,
		RetryAttempts:   cfg.Gateway.RetryAttempts,
		RetryDelay:      cfg.Gateway.RetryDelay,
		BreakerFailures: cfg.Gateway.BreakerFailures,
		BreakerTimeout:  cfg.Gateway.BreakerTimeout,
	}, logger)

	var (
		backend     gateway.Backend = restBackend
		grpcBackend *gateway.GRPCBackend
	)
	if cfg.Gateway.Transport == config.TransportGRPC {
		grpcBackend, err = gateway.DialGRPCBackend(cfg.Gateway.UserServiceGRPCAddr, logger)
		if err != nil {
			return err
		}
		backend = grpcBackend
	}

	healthHandler := health.NewHandler(
		health.Check{Name: "redis", Checker: redis, Optional: true},
		health.Check{Name: "user-service", Checker: restBackend},
	)

	httpMiddleware := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.Tracing,
		middleware.Logger(logger),
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			KeyPrefix:  string(config.ServiceGateway) + ":",
			FailOpen:   true,
			BypassFunc: middleware.IsProbe,
			Logger:     logger,
		})
		defer limiter.Close()
		httpMiddleware = append(httpMiddleware, limiter.Handler)
	}
	httpMiddleware = append(httpMiddleware,
		middleware.SecurityHeaders(cfg.IsProduction()),
		middleware.CORS(cfg.CORS),
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
		Middleware:    httpMiddleware,
	})

	router := srv.Router()
	healthHandler.RegisterRoutes(router)
	gateway.NewHandler(backend, avatars, logger).
		WithRESTList(restBackend).
		RegisterRoutes(router)

	if !cfg.IsProduction() {
		admin.NewHandler(admin.HandlerConfig{
			Service:    string(config.ServiceGateway),
			RedisStats: redis.PoolStats,
			Upstream: func() admin.UpstreamStats {
				stats := admin.UpstreamStats{
					Transport: cfg.Gateway.Transport,
					Target:    cfg.Gateway.UserServiceURL,
					Breaker:   restBackend.BreakerState(),
				}
				if grpcBackend != nil {
					stats.Target = cfg.Gateway.UserServiceGRPCAddr
				}
				return stats
			},
			Pings: map[string]func(context.Context) error{
				"redis":        redis.Ping,
				"user-service": restBackend.HealthCheck,
			},
		}).RegisterRoutes(router)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if grpcBackend != nil {
		if err := grpcBackend.Close(); err != nil {
			logger.Error("grpc client close error", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := closeStorage(); err != nil {
		logger.Error("storage close error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func newStorage(
	ctx context.Context,
	cfg config.UploadConfig,
) (upload.Storage, func() error, error) {
	switch cfg.Backend {
	case config.UploadBackendGCS:
		client, err := upload.NewGCSClient(ctx, cfg.GCSCredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("create gcs client: %w", err)
		}
		storage := upload.NewGCSStorage(client, cfg.GCSBucket)
		return storage, storage.Close, nil
	default:
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve working directory: %w", err)
		}
		storage, err := upload.NewLocalStorage(wd, cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() error { return nil }, nil
	}
}
