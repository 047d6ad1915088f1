// AngelaMos | 2026
// handler_test.go

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/upload"
	"github.com/carterperez-dev/usergate/internal/user"
)

const (
	testID    = "7f1c1a5e-0a52-4d7e-9b7e-2f0c1f0e9d11"
	avatarDir = "uploads/avatars"
)

type mockBackend struct {
	listFn   func(ctx context.Context) ([]user.UserResponse, error)
	getFn    func(ctx context.Context, id string) (*user.UserResponse, error)
	createFn func(ctx context.Context, req user.CreateUserRequest) (*user.UserResponse, error)
	updateFn func(ctx context.Context, id string, req user.UpdateUserRequest) (*user.UserResponse, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockBackend) List(ctx context.Context) ([]user.UserResponse, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []user.UserResponse{}, nil
}

func (m *mockBackend) Get(ctx context.Context, id string) (*user.UserResponse, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, core.NotFoundError("user")
}

func (m *mockBackend) Create(
	ctx context.Context,
	req user.CreateUserRequest,
) (*user.UserResponse, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &user.UserResponse{ID: testID, Email: req.Email, FullName: req.FullName}, nil
}

func (m *mockBackend) Update(
	ctx context.Context,
	id string,
	req user.UpdateUserRequest,
) (*user.UserResponse, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &user.UserResponse{ID: id, AvatarURL: req.AvatarURL}, nil
}

func (m *mockBackend) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testGateway struct {
	router http.Handler
	root   string
}

func newTestGateway(t *testing.T, backend Backend) testGateway {
	t.Helper()

	root := t.TempDir()
	storage, err := upload.NewLocalStorage(root, avatarDir)
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}
	avatars := upload.NewAvatars(storage, avatarDir, upload.DefaultMaxSize, discardLogger())

	r := chi.NewRouter()
	NewHandler(backend, avatars, discardLogger()).RegisterRoutes(r)

	return testGateway{router: r, root: root}
}

func (g testGateway) storedFiles(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(g.root, avatarDir))
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (g testGateway) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func pngOfSize(size int) []byte {
	data := make([]byte, size)
	copy(data, "\x89PNG\r\n\x1a\n")
	return data
}

func multipartRequest(
	t *testing.T,
	fields map[string]string,
	filename string,
	file []byte,
) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile(upload.FieldName, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(file); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/users/"+testID, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
	return env
}

func TestUpdateUser_RejectsOversizedAvatar(t *testing.T) {
	called := false
	gw := newTestGateway(t, &mockBackend{
		updateFn: func(context.Context, string, user.UpdateUserRequest) (*user.UserResponse, error) {
			called = true
			return nil, nil
		},
	})

	w := gw.serve(multipartRequest(t, map[string]string{"fullName": "Ann Lee"},
		"big.png", pngOfSize(6*1024*1024)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if env := decodeEnvelope(t, w); env.Error == nil || env.Error.Message != upload.ErrFileTooLarge.Message {
		t.Errorf("unexpected error body: %s", w.Body.String())
	}
	if called {
		t.Error("user service must not be called for an oversized file")
	}
	if files := gw.storedFiles(t); len(files) != 0 {
		t.Errorf("expected no stored files, got %v", files)
	}
}

func TestUpdateUser_RejectsTextFile(t *testing.T) {
	called := false
	gw := newTestGateway(t, &mockBackend{
		updateFn: func(context.Context, string, user.UpdateUserRequest) (*user.UserResponse, error) {
			called = true
			return nil, nil
		},
	})

	w := gw.serve(multipartRequest(t, nil, "notes.txt", []byte("not an image at all\n")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if called {
		t.Error("user service must not be called for a non-image file")
	}
	if files := gw.storedFiles(t); len(files) != 0 {
		t.Errorf("expected no stored files, got %v", files)
	}
}

func TestUpdateUser_StoresAvatar(t *testing.T) {
	var got user.UpdateUserRequest
	gw := newTestGateway(t, &mockBackend{
		updateFn: func(_ context.Context, id string, req user.UpdateUserRequest) (*user.UserResponse, error) {
			got = req
			return &user.UserResponse{ID: id, FullName: *req.FullName, AvatarURL: req.AvatarURL}, nil
		},
	})

	w := gw.serve(multipartRequest(t,
		map[string]string{"fullName": "  Ann Lee  ", "avatarUrl": "http://elsewhere/x.png"},
		"me.png", pngOfSize(2*1024*1024)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if got.AvatarURL == nil {
		t.Fatal("expected avatarUrl to be forwarded")
	}
	pattern := regexp.MustCompile(`^uploads/avatars/avatar-\d+-\d+\.png$`)
	if !pattern.MatchString(*got.AvatarURL) {
		t.Errorf("unexpected avatar path %q", *got.AvatarURL)
	}
	if got.FullName == nil || *got.FullName != "Ann Lee" {
		t.Errorf("expected trimmed fullName, got %v", got.FullName)
	}

	if _, err := os.Stat(filepath.Join(gw.root, filepath.FromSlash(*got.AvatarURL))); err != nil {
		t.Errorf("expected stored avatar on disk: %v", err)
	}

	var resp user.UserResponse
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &resp); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if resp.AvatarURL == nil || *resp.AvatarURL != *got.AvatarURL {
		t.Errorf("expected response avatarUrl %q, got %v", *got.AvatarURL, resp.AvatarURL)
	}
}

func TestUpdateUser_WithoutFileLeavesAvatarAlone(t *testing.T) {
	var got user.UpdateUserRequest
	gw := newTestGateway(t, &mockBackend{
		updateFn: func(_ context.Context, id string, req user.UpdateUserRequest) (*user.UserResponse, error) {
			got = req
			return &user.UserResponse{ID: id}, nil
		},
	})

	w := gw.serve(multipartRequest(t,
		map[string]string{"bio": "", "isActive": "false"}, "", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got.AvatarURL != nil {
		t.Errorf("expected avatarUrl untouched, got %q", *got.AvatarURL)
	}
	if got.Bio == nil || *got.Bio != "" {
		t.Errorf("expected explicit empty bio, got %v", got.Bio)
	}
	if got.IsActive == nil || *got.IsActive {
		t.Errorf("expected isActive=false, got %v", got.IsActive)
	}
	if got.FullName != nil {
		t.Errorf("expected fullName absent, got %q", *got.FullName)
	}
}

func TestUpdateUser_RemovesAvatarWhenUpdateFails(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		err      error
		wantCode int
	}{
		{
			name:     "upstream unavailable",
			fields:   map[string]string{"fullName": "Ann Lee"},
			err:      core.UpstreamError(upstreamName),
			wantCode: http.StatusBadGateway,
		},
		{
			name:     "user missing",
			fields:   map[string]string{"fullName": "Ann Lee"},
			err:      core.NotFoundError(resourceName),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "invalid field",
			fields:   map[string]string{"email": "not-an-email"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad boolean",
			fields:   map[string]string{"isActive": "maybe"},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, &mockBackend{
				updateFn: func(context.Context, string, user.UpdateUserRequest) (*user.UserResponse, error) {
					if tt.err == nil {
						t.Error("backend must not be called")
					}
					return nil, tt.err
				},
			})

			w := gw.serve(multipartRequest(t, tt.fields, "me.png", pngOfSize(1024)))

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if files := gw.storedFiles(t); len(files) != 0 {
				t.Errorf("expected avatar removed, found %v", files)
			}
		})
	}
}

func TestUpdateUser_JSONIgnoresAvatarURL(t *testing.T) {
	var got user.UpdateUserRequest
	gw := newTestGateway(t, &mockBackend{
		updateFn: func(_ context.Context, id string, req user.UpdateUserRequest) (*user.UserResponse, error) {
			got = req
			return &user.UserResponse{ID: id}, nil
		},
	})

	w := gw.serve(jsonRequest(http.MethodPatch, "/users/"+testID,
		`{"country":"NZ","avatarUrl":"uploads/avatars/someone-else.png"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got.AvatarURL != nil {
		t.Errorf("expected avatarUrl dropped, got %q", *got.AvatarURL)
	}
	if got.Country == nil || *got.Country != "NZ" {
		t.Errorf("expected country forwarded, got %v", got.Country)
	}
}

func TestCreateUser_ValidatesBeforeForwarding(t *testing.T) {
	called := false
	gw := newTestGateway(t, &mockBackend{
		createFn: func(context.Context, user.CreateUserRequest) (*user.UserResponse, error) {
			called = true
			return nil, nil
		},
	})

	w := gw.serve(jsonRequest(http.MethodPost, "/users",
		`{"email":"bad","fullName":"A","password":"123"}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if called {
		t.Error("invalid create must not reach the user service")
	}
}

func TestCreateUser_Forwards(t *testing.T) {
	var got user.CreateUserRequest
	gw := newTestGateway(t, &mockBackend{
		createFn: func(_ context.Context, req user.CreateUserRequest) (*user.UserResponse, error) {
			got = req
			return &user.UserResponse{ID: testID, Email: req.Email}, nil
		},
	})

	w := gw.serve(jsonRequest(http.MethodPost, "/users",
		`{"email":" Ann@Example.COM ","fullName":"Ann Lee","password":"secret1"}`))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if got.Email != "ann@example.com" {
		t.Errorf("expected normalized email, got %q", got.Email)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", core.NotFoundError(resourceName), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", core.ConflictError("email already exists"), http.StatusConflict, "CONFLICT"},
		{"upstream", core.UpstreamError(upstreamName), http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, &mockBackend{
				getFn: func(context.Context, string) (*user.UserResponse, error) {
					return nil, tt.err
				},
			})

			w := gw.serve(httptest.NewRequest(http.MethodGet, "/users/"+testID, nil))

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			env := decodeEnvelope(t, w)
			if env.Success || env.Error == nil || env.Error.Code != tt.wantBody {
				t.Errorf("unexpected envelope: %s", w.Body.String())
			}
		})
	}
}

func TestDeleteUser(t *testing.T) {
	var deleted string
	gw := newTestGateway(t, &mockBackend{
		deleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	})

	w := gw.serve(httptest.NewRequest(http.MethodDelete, "/users/"+testID, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if deleted != testID {
		t.Errorf("expected delete of %s, got %q", testID, deleted)
	}

	var msg user.MessageResponse
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Message != deletedMessage {
		t.Errorf("unexpected message %q", msg.Message)
	}
}

func TestListUsersREST_AlwaysUsesREST(t *testing.T) {
	var upstreamPath string
	rest, _ := newRESTBackend(t, func(w http.ResponseWriter, r *http.Request) {
		upstreamPath = r.URL.Path
		writeEnvelope(w, http.StatusOK, []user.UserResponse{{ID: testID, Email: "a@b.com"}})
	}, 1)

	primaryCalled := false
	primary := &mockBackend{
		listFn: func(context.Context) ([]user.UserResponse, error) {
			primaryCalled = true
			return []user.UserResponse{}, nil
		},
	}

	r := chi.NewRouter()
	NewHandler(primary, nil, discardLogger()).WithRESTList(rest).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/all", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if upstreamPath != "/users/all" {
		t.Errorf("expected REST upstream call, got path %q", upstreamPath)
	}
	if primaryCalled {
		t.Error("expected configured backend untouched")
	}

	var users []user.UserResponse
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 1 || users[0].ID != testID {
		t.Errorf("unexpected users %+v", users)
	}
}

func TestListUsersREST_NotMountedWithoutLister(t *testing.T) {
	var gotID string
	gw := newTestGateway(t, &mockBackend{
		getFn: func(_ context.Context, id string) (*user.UserResponse, error) {
			gotID = id
			return nil, core.NotFoundError("user")
		},
	})

	w := gw.serve(httptest.NewRequest(http.MethodGet, "/users/all", nil))
	if w.Code != http.StatusNotFound || gotID != "all" {
		t.Errorf("expected /users/all to fall through to get by id, got %d id=%q", w.Code, gotID)
	}
}
