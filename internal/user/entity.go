// AngelaMos | 2026
// entity.go

package user

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID               string      `db:"id"`
	Email            string      `db:"email"`
	PasswordHash     string      `db:"password_hash"`
	PhoneNumber      *string     `db:"phone_number"`
	EmailVerified    *bool       `db:"email_verified"`
	PhoneVerified    *bool       `db:"phone_verified"`
	FullName         string      `db:"full_name"`
	AvatarURL        *string     `db:"avatar_url"`
	Bio              *string     `db:"bio"`
	Country          *string     `db:"country"`
	Role             string      `db:"role"`
	Permissions      Permissions `db:"permissions"`
	PackageType      string      `db:"package_type"`
	PackageExpiresAt *time.Time  `db:"package_expires_at"`
	IsSuspended      bool        `db:"is_suspended"`
	SuspensionReason *string     `db:"suspension_reason"`
	IsActive         bool        `db:"is_active"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

// ApplyDefaults fills the fields a new record must never be stored without.
func (u *User) ApplyDefaults() {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.PackageType == "" {
		u.PackageType = PackageFree
	}
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	PackageFree     = "free"
	PackageStandard = "standard"
	PackagePremium  = "premium"
)

const PermissionDelimiter = ","

// Permissions is stored as a single delimited TEXT column. Elements never
// contain the delimiter, so the split form rebuilds the list in order.
type Permissions []string

func ParsePermissions(s string) Permissions {
	if s == "" {
		return nil
	}
	return strings.Split(s, PermissionDelimiter)
}

func (p Permissions) String() string {
	return strings.Join(p, PermissionDelimiter)
}

func (p Permissions) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return p.String(), nil
}

func (p *Permissions) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
	case string:
		*p = ParsePermissions(v)
	case []byte:
		*p = ParsePermissions(string(v))
	default:
		return fmt.Errorf("scan permissions: unsupported type %T", src)
	}
	return nil
}
