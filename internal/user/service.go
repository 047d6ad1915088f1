// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/usergate/internal/core"
)

var ErrEmailExists = core.DuplicateError("email")

const (
	EventCreated = "user.created"
	EventUpdated = "user.updated"
	EventDeleted = "user.deleted"
)

type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

type Service struct {
	store  Store
	events EventPublisher
	logger *slog.Logger
}

func NewService(store Store, events EventPublisher, logger *slog.Logger) *Service {
	if events == nil {
		events = NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:  store,
		events: events,
		logger: logger,
	}
}

func (s *Service) GetAllUsers(ctx context.Context) ([]User, error) {
	users, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all users: %w", err)
	}
	return users, nil
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*User, error) {
	if !isUUID(id) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}

	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}

	return u, nil
}

func (s *Service) GetUserByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	u, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}

	return u, nil
}

func (s *Service) CreateUser(
	ctx context.Context,
	req CreateUserRequest,
) (*User, error) {
	req.Normalize()

	exists, err := s.store.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("create user: %w", ErrEmailExists)
	}

	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	u := &User{
		ID:               uuid.New().String(),
		Email:            req.Email,
		PasswordHash:     hash,
		PhoneNumber:      optional(req.PhoneNumber),
		EmailVerified:    req.EmailVerified,
		PhoneVerified:    req.PhoneVerified,
		FullName:         req.FullName,
		AvatarURL:        optional(req.AvatarURL),
		Bio:              optional(req.Bio),
		Country:          optional(req.Country),
		Role:             req.Role,
		Permissions:      Permissions(req.Permissions),
		PackageType:      req.PackageType,
		PackageExpiresAt: req.PackageExpiresAt,
		IsSuspended:      req.IsSuspended != nil && *req.IsSuspended,
		SuspensionReason: optional(req.SuspensionReason),
		IsActive:         req.IsActive == nil || *req.IsActive,
	}
	u.ApplyDefaults()

	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, fmt.Errorf("create user: %w", ErrEmailExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, EventCreated, u)
	return u, nil
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	if !isUUID(id) {
		return nil, fmt.Errorf("update user: %w", core.ErrNotFound)
	}

	req.Normalize()

	patch, err := s.buildPatch(req)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if patch.Email != nil {
		other, err := s.store.FindByEmail(ctx, *patch.Email)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, fmt.Errorf("update user: %w", ErrEmailExists)
		}
	}

	u, err := s.store.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, fmt.Errorf("update user: %w", ErrEmailExists)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("update user: %w", core.ErrNotFound)
	}

	s.publish(ctx, EventUpdated, u)
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if !isUUID(id) {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	s.publish(ctx, EventDeleted, &User{ID: id})
	return nil
}

func (s *Service) buildPatch(req UpdateUserRequest) (Patch, error) {
	patch := Patch{
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		EmailVerified:    req.EmailVerified,
		PhoneVerified:    req.PhoneVerified,
		FullName:         req.FullName,
		AvatarURL:        req.AvatarURL,
		Bio:              req.Bio,
		Country:          req.Country,
		PackageExpiresAt: req.PackageExpiresAt,
		IsSuspended:      req.IsSuspended,
		SuspensionReason: req.SuspensionReason,
		IsActive:         req.IsActive,
	}

	if req.Password != nil {
		hash, err := core.HashPassword(*req.Password)
		if err != nil {
			return Patch{}, err
		}
		patch.PasswordHash = &hash
	}

	if req.Role != nil {
		role := *req.Role
		if role == "" {
			role = RoleUser
		}
		patch.Role = &role
	}

	if req.PackageType != nil {
		pkg := *req.PackageType
		if pkg == "" {
			pkg = PackageFree
		}
		patch.PackageType = &pkg
	}

	if req.Permissions != nil {
		perms := Permissions(*req.Permissions)
		patch.Permissions = &perms
	}

	return patch, nil
}

func (s *Service) publish(ctx context.Context, eventType string, u *User) {
	event := Event{
		Type:       eventType,
		UserID:     u.ID,
		Email:      u.Email,
		OccurredAt: time.Now().UTC(),
	}

	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish user event failed",
			"event", eventType,
			"user_id", u.ID,
			"error", err,
		)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
