// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/usergate/internal/core"
)

const (
	bannerMessage  = "User Service API"
	deletedMessage = "User deleted successfully"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.Banner)
		r.Get("/all", h.ListUsers)
		r.Get("/email/{email}", h.GetUserByEmail)
		r.Get("/{id}", h.GetUser)
		r.Post("/", h.CreateUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

func (h *Handler) Banner(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, MessageResponse{Message: bannerMessage})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAllUsers(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToUserResponseList(users))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		core.BadRequest(w, "invalid email")
		return
	}

	u, err := h.service.GetUserByEmail(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Normalize()
	if err := Validate(req); err != nil {
		core.JSONError(w, err)
		return
	}

	u, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToUserResponse(u))
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	req.Normalize()
	if err := Validate(req); err != nil {
		core.JSONError(w, err)
		return
	}

	u, err := h.service.UpdateUser(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToUserResponse(u))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: deletedMessage})
}

func writeError(w http.ResponseWriter, err error) {
	appErr := core.Classify(err, "user")
	if appErr.StatusCode >= http.StatusInternalServerError {
		core.InternalServerError(w, err)
		return
	}
	core.JSONError(w, appErr)
}
