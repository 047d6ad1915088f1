// AngelaMos | 2026
// rest_backend.go

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/propagation"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/middleware"
	"github.com/carterperez-dev/usergate/internal/user"
)

const maxResponseSize = 4 << 20

type RESTConfig struct {
	BaseURL         string
	Timeout         time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// RESTBackend calls the user service's HTTP API. GET, PUT and DELETE are
// retried with a constant delay; POST is sent exactly once. Every attempt
// passes through a circuit breaker that opens after consecutive transport
// failures or 5xx responses.
type RESTBackend struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	retries uint64
	delay   time.Duration
	logger  *slog.Logger
}

func NewRESTBackend(cfg RESTConfig, logger *slog.Logger) *RESTBackend {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "user-service",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || (errors.As(err, &se) && se.code < http.StatusInternalServerError)
		},
	})

	retries := 0
	if cfg.RetryAttempts > 1 {
		retries = cfg.RetryAttempts - 1
	}

	return &RESTBackend{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		retries: uint64(retries),
		delay:   cfg.RetryDelay,
		logger:  logger,
	}
}

func (b *RESTBackend) List(ctx context.Context) ([]user.UserResponse, error) {
	var out []user.UserResponse

	err := observe(ctx, transportREST, operationList, func(ctx context.Context) error {
		return b.do(ctx, operationList, http.MethodGet, "/users/all", nil, &out)
	})
	if err != nil {
		return nil, err
	}

	if out == nil {
		out = []user.UserResponse{}
	}
	return out, nil
}

func (b *RESTBackend) Get(ctx context.Context, id string) (*user.UserResponse, error) {
	var out user.UserResponse

	err := observe(ctx, transportREST, operationGet, func(ctx context.Context) error {
		return b.do(ctx, operationGet, http.MethodGet, userPath(id), nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *RESTBackend) Create(
	ctx context.Context,
	req user.CreateUserRequest,
) (*user.UserResponse, error) {
	var out user.UserResponse

	err := observe(ctx, transportREST, operationCreate, func(ctx context.Context) error {
		return b.do(ctx, operationCreate, http.MethodPost, "/users", req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *RESTBackend) Update(
	ctx context.Context,
	id string,
	req user.UpdateUserRequest,
) (*user.UserResponse, error) {
	var out user.UserResponse

	err := observe(ctx, transportREST, operationUpdate, func(ctx context.Context) error {
		return b.do(ctx, operationUpdate, http.MethodPut, userPath(id), req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *RESTBackend) Delete(ctx context.Context, id string) error {
	return observe(ctx, transportREST, operationDelete, func(ctx context.Context) error {
		return b.do(ctx, operationDelete, http.MethodDelete, userPath(id), nil, nil)
	})
}

// HealthCheck reports whether the user service answers its liveness probe.
// It bypasses the breaker and retries so readiness reflects the present.
func (b *RESTBackend) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("user service health: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("user service health: status %d", resp.StatusCode)
	}
	return nil
}

// BreakerState reports the circuit breaker state for operator views.
func (b *RESTBackend) BreakerState() string {
	return b.breaker.State().String()
}

// Ping lets the backend serve as a health.Checker.
func (b *RESTBackend) Ping(ctx context.Context) error {
	return b.HealthCheck(ctx)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *core.ErrorBody `json:"error"`
}

// statusError is a non-2xx answer from the user service.
type statusError struct {
	code       int
	body       *core.ErrorBody
	retryAfter int
}

func (e *statusError) Error() string {
	if e.body != nil {
		return fmt.Sprintf("status %d: %s", e.code, e.body.Message)
	}
	return fmt.Sprintf("status %d", e.code)
}

func (b *RESTBackend) do(
	ctx context.Context,
	operation, method, path string,
	body, out any,
) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempt := func() error {
		_, err := b.breaker.Execute(func() (any, error) {
			return nil, b.send(ctx, method, path, payload, out)
		})

		var se *statusError
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(err)
		case errors.As(err, &se) && se.code < http.StatusInternalServerError:
			return backoff.Permanent(err)
		case ctx.Err() != nil:
			return backoff.Permanent(err)
		default:
			return err
		}
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if retryable(method) && b.retries > 0 {
		policy = backoff.WithMaxRetries(backoff.NewConstantBackOff(b.delay), b.retries)
	}

	err := backoff.RetryNotify(attempt, backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			b.logger.Warn("retrying user service call",
				"operation", operation,
				"method", method,
				"wait", wait,
				"error", err,
			)
		},
	)
	if err == nil {
		return nil
	}

	return b.classify(operation, err)
}

func (b *RESTBackend) send(
	ctx context.Context,
	method, path string,
	payload []byte,
	out any,
) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	core.InjectTrace(ctx, propagation.HeaderCarrier(req.Header))
	// the user service rate limits per client, so it must see the
	// caller's address rather than ours
	if ip := middleware.GetClientIP(ctx); ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
		req.Header.Set("X-Real-IP", ip)
	}
	if id := middleware.GetRequestID(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &statusError{code: resp.StatusCode, body: env.Error, retryAfter: retryAfter}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func (b *RESTBackend) classify(operation string, err error) error {
	var se *statusError
	if errors.As(err, &se) {
		message := http.StatusText(se.code)
		if se.body != nil && se.body.Message != "" {
			message = se.body.Message
		}

		switch se.code {
		case http.StatusNotFound:
			return core.NotFoundError(resourceName)
		case http.StatusConflict:
			return core.ConflictError(message)
		case http.StatusBadRequest:
			return core.ValidationError(message)
		case http.StatusTooManyRequests:
			return core.RateLimitedError(message, max(se.retryAfter, 1))
		}
	}

	b.logger.Error("user service call failed",
		"transport", transportREST,
		"operation", operation,
		"breaker", b.breaker.State().String(),
		"error", err,
	)
	return core.UpstreamError(upstreamName)
}

func retryable(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func userPath(id string) string {
	return "/users/" + url.PathEscape(id)
}

var _ Backend = (*RESTBackend)(nil)
