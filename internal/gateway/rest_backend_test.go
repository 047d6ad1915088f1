// AngelaMos | 2026
// rest_backend_test.go

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/middleware"
	"github.com/carterperez-dev/usergate/internal/user"
)

func newRESTBackend(t *testing.T, handler http.HandlerFunc, attempts int) (*RESTBackend, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	backend := NewRESTBackend(RESTConfig{
		BaseURL:         srv.URL,
		Timeout:         2 * time.Second,
		RetryAttempts:   attempts,
		RetryDelay:      time.Millisecond,
		BreakerFailures: 100,
		BreakerTimeout:  time.Minute,
	}, discardLogger())

	return backend, &hits
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	if status >= 400 {
		core.JSONError(w, core.NewAppError(nil, http.StatusText(status), status, "ERR"))
		return
	}
	core.JSON(w, status, data)
}

func TestREST_Get(t *testing.T) {
	backend, _ := newRESTBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/"+testID {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeEnvelope(w, http.StatusOK, user.UserResponse{
			ID:          testID,
			Email:       "a@b.com",
			Role:        "user",
			Permissions: []string{"read"},
		})
	}, 3)

	u, err := backend.Get(context.Background(), testID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.ID != testID || u.Email != "a@b.com" || len(u.Permissions) != 1 {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestREST_RetriesIdempotentCalls(t *testing.T) {
	backend, hits := newRESTBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusServiceUnavailable, nil)
	}, 3)

	_, err := backend.Get(context.Background(), testID)
	if !errors.Is(err, core.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestREST_RecoversOnRetry(t *testing.T) {
	var calls atomic.Int32
	backend, _ := newRESTBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			writeEnvelope(w, http.StatusInternalServerError, nil)
			return
		}
		writeEnvelope(w, http.StatusOK, user.MessageResponse{Message: "User deleted successfully"})
	}, 3)

	if err := backend.Delete(context.Background(), testID); err != nil {
		t.Fatalf("expected delete to succeed on retry, got %v", err)
	}
}

func TestREST_NeverRetriesCreate(t *testing.T) {
	backend, hits := newRESTBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusServiceUnavailable, nil)
	}, 3)

	_, err := backend.Create(context.Background(), user.CreateUserRequest{
		Email:    "a@b.com",
		Password: "secret1",
		FullName: "Ann Lee",
	})
	if !errors.Is(err, core.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
}

func TestREST_ClientErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		wantErr error
	}{
		{"not found", http.StatusNotFound, "user not found", core.ErrNotFound},
		{"conflict", http.StatusConflict, "email already exists", core.ErrConflict},
		{"bad request", http.StatusBadRequest, "email must be a valid email address", core.ErrInvalidInput},
		{"rate limited", http.StatusTooManyRequests, "Rate limit exceeded. Retry after 1 seconds.", core.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, hits := newRESTBackend(t, func(w http.ResponseWriter, _ *http.Request) {
				core.JSONError(w, core.NewAppError(nil, tt.message, tt.status, "X"))
			}, 3)

			email := "a@b.com"
			_, err := backend.Update(context.Background(), testID, user.UpdateUserRequest{Email: &email})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := hits.Load(); got != 1 {
				t.Errorf("expected 1 attempt, got %d", got)
			}

			if tt.status != http.StatusNotFound {
				appErr, _ := core.AsAppError(err)
				if appErr.Message != tt.message {
					t.Errorf("expected message %q, got %q", tt.message, appErr.Message)
				}
			}
		})
	}
}

func TestREST_ForwardsCallerAndKeepsRateLimit(t *testing.T) {
	var forwarded, realIP, requestID string
	backend, hits := newRESTBackend(t, func(w http.ResponseWriter, r *http.Request) {
		forwarded = r.Header.Get("X-Forwarded-For")
		realIP = r.Header.Get("X-Real-IP")
		requestID = r.Header.Get(middleware.RequestIDHeader)
		core.JSONError(w, core.RateLimitedError("Rate limit exceeded. Retry after 7 seconds.", 7))
	}, 3)

	ctx := middleware.WithClientIP(context.Background(), "203.0.113.9")
	_, err := backend.Get(ctx, testID)

	if forwarded != "203.0.113.9" || realIP != "203.0.113.9" {
		t.Errorf("expected caller address forwarded, got xff=%q real=%q", forwarded, realIP)
	}
	if requestID != "" {
		t.Errorf("expected no request id without one on the context, got %q", requestID)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected 429 not retried, got %d attempts", got)
	}

	appErr, ok := core.AsAppError(err)
	if !ok || appErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 app error, got %v", err)
	}
	if appErr.RetryAfter != 7 {
		t.Errorf("expected Retry-After 7 carried over, got %d", appErr.RetryAfter)
	}
	if backend.BreakerState() != "closed" {
		t.Errorf("expected breaker closed after 429, got %s", backend.BreakerState())
	}

	w := httptest.NewRecorder()
	core.JSONError(w, err)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "7" {
		t.Errorf("expected 429 with Retry-After to the client, got %d %q",
			w.Code, w.Header().Get("Retry-After"))
	}
}

func TestREST_UpdateSendsOnlyPresentFields(t *testing.T) {
	var body map[string]any
	backend, _ := newRESTBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeEnvelope(w, http.StatusOK, user.UserResponse{ID: testID})
	}, 1)

	bio := ""
	if _, err := backend.Update(context.Background(), testID, user.UpdateUserRequest{Bio: &bio}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(body) != 1 {
		t.Fatalf("expected only bio in body, got %v", body)
	}
	if v, ok := body["bio"]; !ok || v != "" {
		t.Errorf("expected explicit empty bio, got %v", body)
	}
}

func TestREST_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeEnvelope(w, http.StatusServiceUnavailable, nil)
	}))
	t.Cleanup(srv.Close)

	backend := NewRESTBackend(RESTConfig{
		BaseURL:         srv.URL,
		Timeout:         time.Second,
		RetryAttempts:   1,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}, discardLogger())

	for range 4 {
		_, err := backend.List(context.Background())
		if !errors.Is(err, core.ErrUpstreamUnavailable) {
			t.Fatalf("expected upstream unavailable, got %v", err)
		}
	}

	if got := hits.Load(); got != 2 {
		t.Errorf("expected breaker to stop calls after 2 failures, got %d hits", got)
	}
}

func TestREST_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	backend := NewRESTBackend(RESTConfig{
		BaseURL:       url,
		Timeout:       time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, discardLogger())

	_, err := backend.Get(context.Background(), testID)
	appErr, ok := core.AsAppError(err)
	if !ok || appErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 app error, got %v", err)
	}
	if appErr.Message != "user service unavailable" {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}

func TestREST_HealthCheck(t *testing.T) {
	backend, _ := newRESTBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, 1)

	if err := backend.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}
}
