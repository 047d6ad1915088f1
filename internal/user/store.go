// AngelaMos | 2026
// store.go

package user

import (
	"context"
	"time"
)

// Store persists users. A missing record is reported as (nil, nil) from the
// lookups and Update, and as false from Delete; a returned error always means
// the backing store failed. An email uniqueness violation wraps
// core.ErrDuplicateKey.
type Store interface {
	FindAll(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id string, patch Patch) (*User, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Patch lists the columns an update touches. Nil fields are left alone.
type Patch struct {
	Email            *string
	PasswordHash     *string
	PhoneNumber      *string
	EmailVerified    *bool
	PhoneVerified    *bool
	FullName         *string
	AvatarURL        *string
	Bio              *string
	Country          *string
	Role             *string
	Permissions      *Permissions
	PackageType      *string
	PackageExpiresAt *time.Time
	IsSuspended      *bool
	SuspensionReason *string
	IsActive         *bool
}

func (p Patch) IsEmpty() bool {
	return len(p.columns()) == 0
}

type column struct {
	name  string
	value any
	cast  string
}

func (p Patch) columns() []column {
	var cols []column

	add := func(name string, set bool, value any) {
		if set {
			cols = append(cols, column{name: name, value: value})
		}
	}

	add("email", p.Email != nil, deref(p.Email))
	add("password_hash", p.PasswordHash != nil, deref(p.PasswordHash))
	add("phone_number", p.PhoneNumber != nil, deref(p.PhoneNumber))
	add("email_verified", p.EmailVerified != nil, derefBool(p.EmailVerified))
	add("phone_verified", p.PhoneVerified != nil, derefBool(p.PhoneVerified))
	add("full_name", p.FullName != nil, deref(p.FullName))
	add("avatar_url", p.AvatarURL != nil, deref(p.AvatarURL))
	add("bio", p.Bio != nil, deref(p.Bio))
	add("country", p.Country != nil, deref(p.Country))
	if p.Role != nil {
		cols = append(cols, column{name: "role", value: *p.Role, cast: "user_role"})
	}
	if p.Permissions != nil {
		cols = append(cols, column{name: "permissions", value: *p.Permissions})
	}
	if p.PackageType != nil {
		cols = append(cols, column{
			name:  "package_type",
			value: *p.PackageType,
			cast:  "package_type",
		})
	}
	if p.PackageExpiresAt != nil {
		cols = append(cols, column{name: "package_expires_at", value: *p.PackageExpiresAt})
	}
	add("is_suspended", p.IsSuspended != nil, derefBool(p.IsSuspended))
	add("suspension_reason", p.SuspensionReason != nil, deref(p.SuspensionReason))
	add("is_active", p.IsActive != nil, derefBool(p.IsActive))

	return cols
}

// Apply copies every set field onto u. Timestamps are left to the caller.
func (p Patch) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = ptr(*p.PhoneNumber)
	}
	if p.EmailVerified != nil {
		u.EmailVerified = ptr(*p.EmailVerified)
	}
	if p.PhoneVerified != nil {
		u.PhoneVerified = ptr(*p.PhoneVerified)
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.AvatarURL != nil {
		u.AvatarURL = ptr(*p.AvatarURL)
	}
	if p.Bio != nil {
		u.Bio = ptr(*p.Bio)
	}
	if p.Country != nil {
		u.Country = ptr(*p.Country)
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Permissions != nil {
		u.Permissions = append(Permissions(nil), (*p.Permissions)...)
	}
	if p.PackageType != nil {
		u.PackageType = *p.PackageType
	}
	if p.PackageExpiresAt != nil {
		u.PackageExpiresAt = ptr(*p.PackageExpiresAt)
	}
	if p.IsSuspended != nil {
		u.IsSuspended = *p.IsSuspended
	}
	if p.SuspensionReason != nil {
		u.SuspensionReason = ptr(*p.SuspensionReason)
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}

func ptr[T any](v T) *T {
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
