// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Service selects which binary's requirements validate() enforces.
type Service string

const (
	ServiceUser    Service = "userservice"
	ServiceGateway Service = "gateway"
)

const (
	TransportGRPC = "grpc"
	TransportREST = "rest"

	UploadBackendLocal = "local"
	UploadBackendGCS   = "gcs"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	GRPC      GRPCConfig      `koanf:"grpc"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Cache     CacheConfig     `koanf:"cache"`
	Events    EventsConfig    `koanf:"events"`
	Gateway   GatewayConfig   `koanf:"gateway"`
	Upload    UploadConfig    `koanf:"upload"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type GRPCConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Reflection bool   `koanf:"reflection"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

type RedisConfig struct {
	URL            string        `koanf:"url"`
	PoolSize       int           `koanf:"pool_size"`
	MinIdleConns   int           `koanf:"min_idle_conns"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	TTL     time.Duration `koanf:"ttl"`
}

type EventsConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URL      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
}

// GatewayConfig points the gateway at the user service. Both addresses are
// always taken from here; there is no compiled-in fallback host.
type GatewayConfig struct {
	Transport           string        `koanf:"transport"`
	UserServiceURL      string        `koanf:"user_service_url"`
	UserServiceGRPCAddr string        `koanf:"user_service_grpc_addr"`
	HTTPTimeout         time.Duration `koanf:"http_timeout"`
	RetryAttempts       int           `koanf:"retry_attempts"`
	RetryDelay          time.Duration `koanf:"retry_delay"`
	BreakerFailures     uint32        `koanf:"breaker_failures"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
}

type UploadConfig struct {
	Backend            string `koanf:"backend"`
	Dir                string `koanf:"dir"`
	MaxSize            int64  `koanf:"max_size"`
	GCSBucket          string `koanf:"gcs_bucket"`
	GCSCredentialsFile string `koanf:"gcs_credentials_file"`
}

type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

// MaxUploadSize caps avatar uploads at 5 MiB.
const MaxUploadSize = 5 * 1024 * 1024

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Load reads defaults, then the optional YAML file, then the environment,
// and validates the result for the given binary.
func Load(configPath string, service Service) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k, service); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// a missing file is fine: defaults plus environment are a full config
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c, service); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf, service Service) error {
	defaults := map[string]any{
		"app.name":        "User Service",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             3001,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"grpc.host":       "0.0.0.0",
		"grpc.port":       50051,
		"grpc.reflection": false,

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,
		"database.connect_timeout":    "30s",

		"redis.pool_size":       10,
		"redis.min_idle_conns":  5,
		"redis.connect_timeout": "30s",

		"cache.enabled": true,
		"cache.ttl":     "5m",

		"events.enabled":  false,
		"events.exchange": "users",

		"gateway.transport":              TransportGRPC,
		"gateway.user_service_url":       "http://localhost:3001",
		"gateway.user_service_grpc_addr": "localhost:50051",
		"gateway.http_timeout":           "5s",
		"gateway.retry_attempts":         3,
		"gateway.retry_delay":            "1s",
		"gateway.breaker_failures":       5,
		"gateway.breaker_timeout":        "30s",

		"upload.backend":  UploadBackendLocal,
		"upload.dir":      "uploads/avatars",
		"upload.max_size": MaxUploadSize,

		"rate_limit.enabled":  true,
		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "user-service",
	}

	if service == ServiceGateway {
		defaults["app.name"] = "API Gateway"
		defaults["server.port"] = 3000
		defaults["otel.service_name"] = "api-gateway"
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"AUTO_MIGRATE":                "database.auto_migrate",
	"REDIS_URL":                   "redis.url",
	"CACHE_ENABLED":               "cache.enabled",
	"CACHE_TTL":                   "cache.ttl",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"GRPC_PORT":                   "grpc.port",
	"GRPC_REFLECTION":             "grpc.reflection",
	"AMQP_URL":                    "events.url",
	"EVENTS_ENABLED":              "events.enabled",
	"EVENTS_EXCHANGE":             "events.exchange",
	"GATEWAY_TRANSPORT":           "gateway.transport",
	"USER_SERVICE_URL":            "gateway.user_service_url",
	"USER_SERVICE_GRPC_ADDR":      "gateway.user_service_grpc_addr",
	"HTTP_TIMEOUT":                "gateway.http_timeout",
	"HTTP_RETRY_ATTEMPTS":         "gateway.retry_attempts",
	"HTTP_RETRY_DELAY":            "gateway.retry_delay",
	"UPLOAD_BACKEND":              "upload.backend",
	"UPLOAD_DIR":                  "upload.dir",
	"UPLOAD_MAX_SIZE":             "upload.max_size",
	"GCS_BUCKET":                  "upload.gcs_bucket",
	"GCS_CREDENTIALS_FILE":        "upload.gcs_credentials_file",
	"RATE_LIMIT_ENABLED":          "rate_limit.enabled",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config, service Service) error {
	switch service {
	case ServiceUser:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.Events.Enabled && c.Events.URL == "" {
			return fmt.Errorf("AMQP_URL is required when events are enabled")
		}
		if c.GRPC.Port <= 0 {
			return fmt.Errorf("grpc.port must be positive")
		}
	case ServiceGateway:
		if err := validateGateway(c); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown service %q", service)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func validateGateway(c *Config) error {
	g := c.Gateway

	switch g.Transport {
	case TransportGRPC:
		if g.UserServiceGRPCAddr == "" {
			return fmt.Errorf("USER_SERVICE_GRPC_ADDR is required for grpc transport")
		}
	case TransportREST:
	default:
		return fmt.Errorf("gateway.transport must be %q or %q", TransportGRPC, TransportREST)
	}

	// The REST client also backs the readiness probe, so the URL is
	// required whichever transport carries user calls.
	if g.UserServiceURL == "" {
		return fmt.Errorf("USER_SERVICE_URL is required")
	}

	if g.HTTPTimeout <= 0 {
		return fmt.Errorf("gateway.http_timeout must be positive")
	}

	if g.RetryAttempts < 0 {
		return fmt.Errorf("gateway.retry_attempts must not be negative")
	}

	if c.Upload.MaxSize <= 0 || c.Upload.MaxSize > MaxUploadSize {
		return fmt.Errorf("upload.max_size must be between 1 and %d bytes", MaxUploadSize)
	}

	switch c.Upload.Backend {
	case UploadBackendLocal:
		if c.Upload.Dir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for local uploads")
		}
	case UploadBackendGCS:
		if c.Upload.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for gcs uploads")
		}
	default:
		return fmt.Errorf("upload.backend must be %q or %q", UploadBackendLocal, UploadBackendGCS)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (g *GRPCConfig) Address() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}
