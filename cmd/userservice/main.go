// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carterperez-dev/usergate/internal/admin"
	"github.com/carterperez-dev/usergate/internal/config"
	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/events"
	"github.com/carterperez-dev/usergate/internal/health"
	"github.com/carterperez-dev/usergate/internal/middleware"
	"github.com/carterperez-dev/usergate/internal/server"
	"github.com/carterperez-dev/usergate/internal/user"
	"github.com/carterperez-dev/usergate/internal/usergrpc"
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

	cfg, err := config.Load(configPath, config.ServiceUser)
	if err != nil {
		return err
	}

	logger := core.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting user service",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("failed to initialize telemetry", "error", err)
	} else if cfg.Otel.Enabled {
		logger.Info("OpenTelemetry tracer initialized",
			"endpoint", cfg.Otel.Endpoint,
		)
	}

	db, err := core.NewDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := core.RunMigrations(db.DB.DB, logger); err != nil {
			return err
		}
	}

	redis, err := core.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	var publisher user.EventPublisher = user.NopPublisher{}
	var eventsPub *events.Publisher
	if cfg.Events.Enabled {
		eventsPub, err = events.NewPublisher(cfg.Events.URL, cfg.Events.Exchange, logger)
		if err != nil {
			return err
		}
		publisher = eventsPub
		logger.Info("event publisher connected",
			"exchange", cfg.Events.Exchange,
		)
	}

	userStore := user.NewRepository(db.DB)
	if cfg.Cache.Enabled {
		userStore = user.NewCachedStore(userStore, redis.Client, cfg.Cache.TTL, logger)
	}
	userSvc := user.NewService(userStore, publisher, logger)
	userHandler := user.NewHandler(userSvc)

	healthHandler := health.NewHandler(
		health.Check{Name: "database", Checker: db},
		health.Check{Name: "redis", Checker: redis, Optional: true},
	)

	httpMiddleware := []func(http.Handler) http.Handler{
		middleware.RequestID,
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
			KeyPrefix:  string(config.ServiceUser) + ":",
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
	userHandler.RegisterRoutes(router)

	if !cfg.IsProduction() {
		admin.NewHandler(admin.HandlerConfig{
			Service:    string(config.ServiceUser),
			DBStats:    db.Stats,
			RedisStats: redis.PoolStats,
			CountUsers: db.CountUsers,
			Pings: map[string]func(context.Context) error{
				"database": db.Ping,
				"redis":    redis.Ping,
			},
		}).RegisterRoutes(router)
	}

	grpcServer := usergrpc.NewGRPCServer(logger)
	usergrpc.RegisterUserServiceServer(grpcServer, usergrpc.NewServer(userSvc, logger))
	grpcSrv := server.NewGRPC(grpcServer, cfg.GRPC.Address(), cfg.GRPC.Reflection, logger)

	errChan := make(chan error, 2)
	go func() {
		errChan <- srv.Start()
	}()
	go func() {
		errChan <- grpcSrv.Start()
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
	grpcSrv.Shutdown(shutdownCtx)

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if eventsPub != nil {
		if err := eventsPub.Close(); err != nil {
			logger.Error("event publisher close error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("user service stopped")
	return nil
}
