// AngelaMos | 2026
// handler.go

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/metrics"
	"github.com/carterperez-dev/usergate/internal/upload"
	"github.com/carterperez-dev/usergate/internal/user"
	"github.com/carterperez-dev/usergate/internal/usergrpc"
)

const (
	deletedMessage = "User deleted successfully"
	formSlack      = 1 << 20
)

// Lister is the one call the REST-only listing route needs.
type Lister interface {
	List(ctx context.Context) ([]user.UserResponse, error)
}

type Handler struct {
	backend Backend
	restAll Lister
	avatars *upload.Avatars
	logger  *slog.Logger
}

func NewHandler(backend Backend, avatars *upload.Avatars, logger *slog.Logger) *Handler {
	return &Handler{
		backend: backend,
		avatars: avatars,
		logger:  logger,
	}
}

// WithRESTList mounts GET /users/all, which always lists over the REST
// transport whatever the configured backend is.
func (h *Handler) WithRESTList(l Lister) *Handler {
	h.restAll = l
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		if h.restAll != nil {
			r.Get("/all", h.ListUsersREST)
		}
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
		r.Patch("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.backend.List(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, users)
}

func (h *Handler) ListUsersREST(w http.ResponseWriter, r *http.Request) {
	users, err := h.restAll.List(r.Context())
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, users)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.backend.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, u)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req user.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Normalize()
	if err := user.Validate(req); err != nil {
		core.JSONError(w, err)
		return
	}

	u, err := h.backend.Create(r.Context(), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, u)
}

// UpdateUser accepts either JSON or a multipart form carrying at most one
// avatar file. A stored avatar is removed again if the update does not go
// through.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var (
		req        user.UpdateUserRequest
		avatarPath string
	)

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, h.avatars.MaxSize()+formSlack)

		mr, err := r.MultipartReader()
		if err != nil {
			core.BadRequest(w, "malformed multipart body")
			return
		}

		form, err := h.avatars.ReadForm(ctx, mr)
		if err != nil {
			err = formError(err)
			metrics.ObserveAvatarUpload(uploadOutcome(err))
			core.JSONError(w, err)
			return
		}
		avatarPath = form.AvatarPath

		decoded, err := usergrpc.DecodeUpdateRequest(updateFromForm(id, form.Fields))
		if err != nil {
			h.discard(ctx, avatarPath)
			core.JSONError(w, err)
			return
		}
		req = decoded
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			core.BadRequest(w, "invalid request body")
			return
		}
	}

	// the avatar is only ever set from an upload
	req.AvatarURL = nil
	if avatarPath != "" {
		req.AvatarURL = &avatarPath
	}

	req.Normalize()
	if err := user.Validate(req); err != nil {
		h.discard(ctx, avatarPath)
		core.JSONError(w, err)
		return
	}

	u, err := h.backend.Update(ctx, id, req)
	if err != nil {
		h.discard(ctx, avatarPath)
		core.JSONError(w, err)
		return
	}

	if avatarPath != "" {
		metrics.ObserveAvatarUpload("accepted")
	}
	core.OK(w, u)
}

func (h *Handler) discard(ctx context.Context, avatarPath string) {
	if avatarPath == "" {
		return
	}
	metrics.ObserveAvatarUpload("discarded")
	h.avatars.Remove(ctx, avatarPath)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, user.MessageResponse{Message: deletedMessage})
}

// updateFromForm maps multipart fields onto the wire update. avatarUrl is
// not among them: it only comes from the uploaded file.
func updateFromForm(id string, fields map[string]string) *usergrpc.UpdateUserRequest {
	in := &usergrpc.UpdateUserRequest{ID: id}

	targets := map[string]**string{
		"email":            &in.Email,
		"password":         &in.Password,
		"phoneNumber":      &in.PhoneNumber,
		"emailVerified":    &in.EmailVerified,
		"phoneVerified":    &in.PhoneVerified,
		"fullName":         &in.FullName,
		"bio":              &in.Bio,
		"country":          &in.Country,
		"role":             &in.Role,
		"permissions":      &in.Permissions,
		"packageType":      &in.PackageType,
		"packageExpiresAt": &in.PackageExpiresAt,
		"isSuspended":      &in.IsSuspended,
		"suspensionReason": &in.SuspensionReason,
		"isActive":         &in.IsActive,
	}

	for name, dst := range targets {
		if value, ok := fields[name]; ok {
			*dst = &value
		}
	}

	return in
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.EqualFold(mediaType, "multipart/form-data")
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return upload.ErrFileTooLarge
	}
	if core.IsAppError(err) {
		return err
	}
	return core.ValidationError("malformed multipart body")
}

func uploadOutcome(err error) string {
	switch {
	case errors.Is(err, upload.ErrFileTooLarge):
		return "too_large"
	case errors.Is(err, upload.ErrUnsupportedType):
		return "unsupported_type"
	default:
		return "rejected"
	}
}
