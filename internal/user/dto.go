// AngelaMos | 2026
// dto.go

package user

import (
	"strings"
	"time"
)

type CreateUserRequest struct {
	Email            string     `json:"email"                      validate:"required,email,max=255"`
	Password         string     `json:"password"                   validate:"required,min=6,max=128"`
	FullName         string     `json:"fullName"                   validate:"required,min=2,max=100"`
	PhoneNumber      string     `json:"phoneNumber,omitempty"      validate:"omitempty,max=50"`
	EmailVerified    *bool      `json:"emailVerified,omitempty"`
	PhoneVerified    *bool      `json:"phoneVerified,omitempty"`
	AvatarURL        string     `json:"avatarUrl,omitempty"        validate:"omitempty,max=512"`
	Bio              string     `json:"bio,omitempty"`
	Country          string     `json:"country,omitempty"          validate:"omitempty,max=100"`
	Role             string     `json:"role,omitempty"             validate:"omitempty,oneof=admin user"`
	Permissions      []string   `json:"permissions,omitempty"      validate:"omitempty,dive,required,excludesall=0x2C"`
	PackageType      string     `json:"packageType,omitempty"      validate:"omitempty,oneof=free standard premium"`
	PackageExpiresAt *time.Time `json:"packageExpiresAt,omitempty"`
	IsSuspended      *bool      `json:"isSuspended,omitempty"`
	SuspensionReason string     `json:"suspensionReason,omitempty"`
	IsActive         *bool      `json:"isActive,omitempty"`
}

// UpdateUserRequest is a partial update. A nil field is left unchanged; a
// non-nil field overwrites, even when it points at an empty string.
type UpdateUserRequest struct {
	Email            *string    `json:"email,omitempty"            validate:"omitnil,email,max=255"`
	Password         *string    `json:"password,omitempty"         validate:"omitnil,min=6,max=128"`
	FullName         *string    `json:"fullName,omitempty"         validate:"omitnil,min=2,max=100"`
	PhoneNumber      *string    `json:"phoneNumber,omitempty"      validate:"omitnil,max=50"`
	EmailVerified    *bool      `json:"emailVerified,omitempty"`
	PhoneVerified    *bool      `json:"phoneVerified,omitempty"`
	AvatarURL        *string    `json:"avatarUrl,omitempty"        validate:"omitnil,max=512"`
	Bio              *string    `json:"bio,omitempty"`
	Country          *string    `json:"country,omitempty"          validate:"omitnil,max=100"`
	Role             *string    `json:"role,omitempty"             validate:"omitnil,oneof=admin user|len=0"`
	Permissions      *[]string  `json:"permissions,omitempty"      validate:"omitnil,dive,required,excludesall=0x2C"`
	PackageType      *string    `json:"packageType,omitempty"      validate:"omitnil,oneof=free standard premium|len=0"`
	PackageExpiresAt *time.Time `json:"packageExpiresAt,omitempty"`
	IsSuspended      *bool      `json:"isSuspended,omitempty"`
	SuspensionReason *string    `json:"suspensionReason,omitempty"`
	IsActive         *bool      `json:"isActive,omitempty"`
}

type UserResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FullName         string     `json:"fullName"`
	PhoneNumber      *string    `json:"phoneNumber,omitempty"`
	EmailVerified    *bool      `json:"emailVerified,omitempty"`
	PhoneVerified    *bool      `json:"phoneVerified,omitempty"`
	AvatarURL        *string    `json:"avatarUrl,omitempty"`
	Bio              *string    `json:"bio,omitempty"`
	Country          *string    `json:"country,omitempty"`
	Role             string     `json:"role"`
	Permissions      []string   `json:"permissions"`
	PackageType      string     `json:"packageType"`
	PackageExpiresAt *time.Time `json:"packageExpiresAt,omitempty"`
	IsSuspended      bool       `json:"isSuspended"`
	SuspensionReason *string    `json:"suspensionReason,omitempty"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Normalize trims the free-text fields and lower-cases the email. The
// password is never altered.
func (r *CreateUserRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.AvatarURL = strings.TrimSpace(r.AvatarURL)
	r.Country = strings.TrimSpace(r.Country)
	r.Role = strings.TrimSpace(r.Role)
	r.PackageType = strings.TrimSpace(r.PackageType)
	r.SuspensionReason = strings.TrimSpace(r.SuspensionReason)
}

func (r *UpdateUserRequest) Normalize() {
	if r.Email != nil {
		r.Email = ptr(normalizeEmail(*r.Email))
	}
	trimPtr(&r.FullName)
	trimPtr(&r.PhoneNumber)
	trimPtr(&r.AvatarURL)
	trimPtr(&r.Country)
	trimPtr(&r.Role)
	trimPtr(&r.PackageType)
	trimPtr(&r.SuspensionReason)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimPtr(s **string) {
	if *s != nil {
		*s = ptr(strings.TrimSpace(**s))
	}
}

func ToUserResponse(u *User) UserResponse {
	perms := []string(u.Permissions)
	if perms == nil {
		perms = []string{}
	}

	return UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		FullName:         u.FullName,
		PhoneNumber:      u.PhoneNumber,
		EmailVerified:    u.EmailVerified,
		PhoneVerified:    u.PhoneVerified,
		AvatarURL:        u.AvatarURL,
		Bio:              u.Bio,
		Country:          u.Country,
		Role:             u.Role,
		Permissions:      perms,
		PackageType:      u.PackageType,
		PackageExpiresAt: u.PackageExpiresAt,
		IsSuspended:      u.IsSuspended,
		SuspensionReason: u.SuspensionReason,
		IsActive:         u.IsActive,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(&u))
	}
	return responses
}
