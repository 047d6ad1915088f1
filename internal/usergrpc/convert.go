// AngelaMos | 2026
// convert.go

package usergrpc

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/user"
)

const (
	wireTrue  = "true"
	wireFalse = "false"
)

func EncodeUser(u *user.User) *User {
	role := u.Role
	if role == "" {
		role = user.RoleUser
	}
	pkg := u.PackageType
	if pkg == "" {
		pkg = user.PackageFree
	}

	return &User{
		ID:               u.ID,
		Email:            u.Email,
		FullName:         u.FullName,
		PhoneNumber:      fromOptional(u.PhoneNumber),
		EmailVerified:    encodeOptionalBool(u.EmailVerified),
		PhoneVerified:    encodeOptionalBool(u.PhoneVerified),
		AvatarURL:        fromOptional(u.AvatarURL),
		Bio:              fromOptional(u.Bio),
		Country:          fromOptional(u.Country),
		Role:             role,
		Permissions:      u.Permissions.String(),
		PackageType:      pkg,
		PackageExpiresAt: encodeOptionalTime(u.PackageExpiresAt),
		IsSuspended:      encodeBool(u.IsSuspended),
		SuspensionReason: fromOptional(u.SuspensionReason),
		IsActive:         encodeBool(u.IsActive),
		CreatedAt:        encodeTime(u.CreatedAt),
		UpdatedAt:        encodeTime(u.UpdatedAt),
	}
}

// DecodeUser turns a wire user into the JSON-native response shape.
func DecodeUser(in *User) (user.UserResponse, error) {
	out := user.UserResponse{
		ID:               in.ID,
		Email:            in.Email,
		FullName:         in.FullName,
		PhoneNumber:      toOptional(in.PhoneNumber),
		AvatarURL:        toOptional(in.AvatarURL),
		Bio:              toOptional(in.Bio),
		Country:          toOptional(in.Country),
		Role:             in.Role,
		Permissions:      []string(user.ParsePermissions(in.Permissions)),
		PackageType:      in.PackageType,
		SuspensionReason: toOptional(in.SuspensionReason),
	}
	if out.Permissions == nil {
		out.Permissions = []string{}
	}

	var err error
	if out.EmailVerified, err = decodeOptionalBool("emailVerified", in.EmailVerified); err != nil {
		return user.UserResponse{}, err
	}
	if out.PhoneVerified, err = decodeOptionalBool("phoneVerified", in.PhoneVerified); err != nil {
		return user.UserResponse{}, err
	}
	if out.PackageExpiresAt, err = decodeOptionalTime("packageExpiresAt", in.PackageExpiresAt); err != nil {
		return user.UserResponse{}, err
	}
	if out.IsSuspended, err = decodeBool("isSuspended", in.IsSuspended, false); err != nil {
		return user.UserResponse{}, err
	}
	if out.IsActive, err = decodeBool("isActive", in.IsActive, true); err != nil {
		return user.UserResponse{}, err
	}

	created, err := decodeOptionalTime("createdAt", in.CreatedAt)
	if err != nil {
		return user.UserResponse{}, err
	}
	if created != nil {
		out.CreatedAt = *created
	}

	updated, err := decodeOptionalTime("updatedAt", in.UpdatedAt)
	if err != nil {
		return user.UserResponse{}, err
	}
	if updated != nil {
		out.UpdatedAt = *updated
	}

	return out, nil
}

func EncodeCreateRequest(req user.CreateUserRequest) *CreateUserRequest {
	return &CreateUserRequest{
		Email:            req.Email,
		Password:         req.Password,
		FullName:         req.FullName,
		PhoneNumber:      req.PhoneNumber,
		EmailVerified:    encodeOptionalBool(req.EmailVerified),
		PhoneVerified:    encodeOptionalBool(req.PhoneVerified),
		AvatarURL:        req.AvatarURL,
		Bio:              req.Bio,
		Country:          req.Country,
		Role:             req.Role,
		Permissions:      user.Permissions(req.Permissions).String(),
		PackageType:      req.PackageType,
		PackageExpiresAt: encodeOptionalTime(req.PackageExpiresAt),
		IsSuspended:      encodeOptionalBool(req.IsSuspended),
		SuspensionReason: req.SuspensionReason,
		IsActive:         encodeOptionalBool(req.IsActive),
	}
}

func DecodeCreateRequest(in *CreateUserRequest) (user.CreateUserRequest, error) {
	out := user.CreateUserRequest{
		Email:            in.Email,
		Password:         in.Password,
		FullName:         in.FullName,
		PhoneNumber:      in.PhoneNumber,
		AvatarURL:        in.AvatarURL,
		Bio:              in.Bio,
		Country:          in.Country,
		Role:             in.Role,
		Permissions:      []string(user.ParsePermissions(in.Permissions)),
		PackageType:      in.PackageType,
		SuspensionReason: in.SuspensionReason,
	}

	var err error
	if out.EmailVerified, err = decodeOptionalBool("emailVerified", in.EmailVerified); err != nil {
		return user.CreateUserRequest{}, err
	}
	if out.PhoneVerified, err = decodeOptionalBool("phoneVerified", in.PhoneVerified); err != nil {
		return user.CreateUserRequest{}, err
	}
	if out.IsSuspended, err = decodeOptionalBool("isSuspended", in.IsSuspended); err != nil {
		return user.CreateUserRequest{}, err
	}
	if out.IsActive, err = decodeOptionalBool("isActive", in.IsActive); err != nil {
		return user.CreateUserRequest{}, err
	}
	if out.PackageExpiresAt, err = decodeOptionalTime("packageExpiresAt", in.PackageExpiresAt); err != nil {
		return user.CreateUserRequest{}, err
	}

	return out, nil
}

func EncodeUpdateRequest(id string, req user.UpdateUserRequest) *UpdateUserRequest {
	out := &UpdateUserRequest{
		ID:               id,
		Email:            req.Email,
		Password:         req.Password,
		FullName:         req.FullName,
		PhoneNumber:      req.PhoneNumber,
		AvatarURL:        req.AvatarURL,
		Bio:              req.Bio,
		Country:          req.Country,
		Role:             req.Role,
		PackageType:      req.PackageType,
		SuspensionReason: req.SuspensionReason,
	}

	if req.EmailVerified != nil {
		out.EmailVerified = ptr(encodeBool(*req.EmailVerified))
	}
	if req.PhoneVerified != nil {
		out.PhoneVerified = ptr(encodeBool(*req.PhoneVerified))
	}
	if req.IsSuspended != nil {
		out.IsSuspended = ptr(encodeBool(*req.IsSuspended))
	}
	if req.IsActive != nil {
		out.IsActive = ptr(encodeBool(*req.IsActive))
	}
	if req.Permissions != nil {
		out.Permissions = ptr(user.Permissions(*req.Permissions).String())
	}
	if req.PackageExpiresAt != nil {
		out.PackageExpiresAt = ptr(encodeTime(*req.PackageExpiresAt))
	}

	return out
}

// DecodeUpdateRequest keeps presence: an explicit empty string overwrites a
// text field, while an empty boolean or timestamp is treated as not sent.
func DecodeUpdateRequest(in *UpdateUserRequest) (user.UpdateUserRequest, error) {
	out := user.UpdateUserRequest{
		Email:            in.Email,
		Password:         in.Password,
		FullName:         in.FullName,
		PhoneNumber:      in.PhoneNumber,
		AvatarURL:        in.AvatarURL,
		Bio:              in.Bio,
		Country:          in.Country,
		Role:             in.Role,
		PackageType:      in.PackageType,
		SuspensionReason: in.SuspensionReason,
	}

	if in.Permissions != nil {
		perms := []string(user.ParsePermissions(*in.Permissions))
		if perms == nil {
			perms = []string{}
		}
		out.Permissions = &perms
	}

	var err error
	if out.EmailVerified, err = decodeOptionalBool("emailVerified", deref(in.EmailVerified)); err != nil {
		return user.UpdateUserRequest{}, err
	}
	if out.PhoneVerified, err = decodeOptionalBool("phoneVerified", deref(in.PhoneVerified)); err != nil {
		return user.UpdateUserRequest{}, err
	}
	if out.IsSuspended, err = decodeOptionalBool("isSuspended", deref(in.IsSuspended)); err != nil {
		return user.UpdateUserRequest{}, err
	}
	if out.IsActive, err = decodeOptionalBool("isActive", deref(in.IsActive)); err != nil {
		return user.UpdateUserRequest{}, err
	}
	if out.PackageExpiresAt, err = decodeOptionalTime("packageExpiresAt", deref(in.PackageExpiresAt)); err != nil {
		return user.UpdateUserRequest{}, err
	}

	return out, nil
}

func encodeBool(b bool) string {
	if b {
		return wireTrue
	}
	return wireFalse
}

func encodeOptionalBool(b *bool) string {
	if b == nil {
		return ""
	}
	return encodeBool(*b)
}

func decodeBool(field, s string, absent bool) (bool, error) {
	b, err := decodeOptionalBool(field, s)
	if err != nil {
		return false, err
	}
	if b == nil {
		return absent, nil
	}
	return *b, nil
}

func decodeOptionalBool(field, s string) (*bool, error) {
	switch s {
	case "":
		return nil, nil
	case wireTrue:
		return ptr(true), nil
	case wireFalse:
		return ptr(false), nil
	default:
		return nil, core.ValidationError(
			fmt.Sprintf("%s must be %q or %q", field, wireTrue, wireFalse),
		)
	}
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return encodeTime(*t)
}

func decodeOptionalTime(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, core.ValidationError(field + " must be an RFC 3339 timestamp")
	}

	t = t.UTC()
	return &t, nil
}

func fromOptional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toOptional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr[T any](v T) *T {
	return &v
}
