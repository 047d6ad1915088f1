// AngelaMos | 2026
// core_test.go

package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/carterperez-dev/usergate/internal/config"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"app error passes through", ConflictError("email already exists"), http.StatusConflict, "email already exists"},
		{"wrapped not found", fmt.Errorf("find: %w", ErrNotFound), http.StatusNotFound, "user not found"},
		{"duplicate key", fmt.Errorf("insert: %w", ErrDuplicateKey), http.StatusConflict, "user already exists"},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest, "invalid input"},
		{"upstream", ErrUpstreamUnavailable, http.StatusBadGateway, "upstream service unavailable"},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, "user")
			if got.StatusCode != tt.wantStatus || got.Message != tt.wantMsg {
				t.Errorf("expected %d %q, got %d %q", tt.wantStatus, tt.wantMsg, got.StatusCode, got.Message)
			}
		})
	}
}

func TestJSONError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	JSONError(w, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Errorf("internal detail leaked: %s", w.Body.String())
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Error == nil || resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected envelope %+v", resp)
	}
}

func TestUpstreamError(t *testing.T) {
	err := UpstreamError("user service")

	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Error("expected upstream sentinel")
	}
	if err.StatusCode != http.StatusBadGateway || err.Message != "user service unavailable" {
		t.Errorf("unexpected error %+v", err)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret1" || !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash %q", hash)
	}

	ok, err := VerifyPassword("secret1", hash)
	if err != nil || !ok {
		t.Errorf("expected match, got %v %v", ok, err)
	}

	ok, err = VerifyPassword("secret2", hash)
	if err != nil || ok {
		t.Errorf("expected mismatch, got %v %v", ok, err)
	}

	other, _ := HashPassword("secret1")
	if other == hash {
		t.Error("expected distinct salts")
	}

	for _, bad := range []string{
		"not-a-hash",
		strings.Replace(hash, "argon2id", "argon2i", 1),
		strings.Replace(hash, "v=19", "v=16", 1),
	} {
		if _, err := VerifyPassword("secret1", bad); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("expected ErrInvalidHash for %q, got %v", bad, err)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info should be filtered at warn level")
	}

	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &line); err != nil {
		t.Fatalf("expected one json line, got %q", out)
	}
	if line["msg"] != "shown" || line["key"] != "value" {
		t.Errorf("unexpected log line %v", line)
	}
}
