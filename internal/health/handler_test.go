// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func ok(context.Context) error { return nil }

func refused(context.Context) error { return errors.New("refused") }

func TestLiveness(t *testing.T) {
	h := NewHandler()

	for _, path := range []string{"/healthz", "/livez"} {
		if w := serve(h, path); w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}

	h.SetShutdown(true)
	if w := serve(h, "/healthz"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while shutting down, got %d", w.Code)
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		checks   []Check
		wantCode int
		wantBody string
	}{
		{
			name:     "all healthy",
			checks:   []Check{{Name: "database", Checker: CheckerFunc(ok)}, {Name: "redis", Checker: CheckerFunc(ok)}},
			wantCode: http.StatusOK,
			wantBody: "ok",
		},
		{
			name: "critical failing",
			checks: []Check{
				{Name: "database", Checker: CheckerFunc(ok)},
				{Name: "user-service", Checker: CheckerFunc(refused)},
			},
			wantCode: http.StatusServiceUnavailable,
			wantBody: "unavailable",
		},
		{
			name: "optional failing",
			checks: []Check{
				{Name: "database", Checker: CheckerFunc(ok)},
				{Name: "redis", Checker: CheckerFunc(refused), Optional: true},
			},
			wantCode: http.StatusOK,
			wantBody: "degraded",
		},
		{
			name: "optional and critical failing",
			checks: []Check{
				{Name: "redis", Checker: CheckerFunc(refused), Optional: true},
				{Name: "database", Checker: CheckerFunc(refused)},
			},
			wantCode: http.StatusServiceUnavailable,
			wantBody: "unavailable",
		},
		{
			name:     "missing checker",
			checks:   []Check{{Name: "redis"}},
			wantCode: http.StatusServiceUnavailable,
			wantBody: "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(NewHandler(tt.checks...), "/readyz")
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}

			var resp ReadinessResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantBody || len(resp.Checks) != len(tt.checks) {
				t.Errorf("unexpected response %+v", resp)
			}
			for i, c := range resp.Checks {
				if c.Name != tt.checks[i].Name {
					t.Errorf("expected check %q at %d, got %q", tt.checks[i].Name, i, c.Name)
				}
			}
		})
	}
}

func TestReadiness_NotReady(t *testing.T) {
	h := NewHandler()
	h.SetReady(false)

	if w := serve(h, "/readyz"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
