// AngelaMos | 2026
// messages.go

package usergrpc

// Every non-identifier scalar crosses the wire as a string: booleans are
// "true" or "false", timestamps are RFC 3339 in UTC and permissions are
// comma-joined. An empty string means the value is absent.

type User struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	FullName         string `json:"fullName"`
	PhoneNumber      string `json:"phoneNumber"`
	EmailVerified    string `json:"emailVerified"`
	PhoneVerified    string `json:"phoneVerified"`
	AvatarURL        string `json:"avatarUrl"`
	Bio              string `json:"bio"`
	Country          string `json:"country"`
	Role             string `json:"role"`
	Permissions      string `json:"permissions"`
	PackageType      string `json:"packageType"`
	PackageExpiresAt string `json:"packageExpiresAt"`
	IsSuspended      string `json:"isSuspended"`
	SuspensionReason string `json:"suspensionReason"`
	IsActive         string `json:"isActive"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

type CreateUserRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"fullName"`
	PhoneNumber      string `json:"phoneNumber,omitempty"`
	EmailVerified    string `json:"emailVerified,omitempty"`
	PhoneVerified    string `json:"phoneVerified,omitempty"`
	AvatarURL        string `json:"avatarUrl,omitempty"`
	Bio              string `json:"bio,omitempty"`
	Country          string `json:"country,omitempty"`
	Role             string `json:"role,omitempty"`
	Permissions      string `json:"permissions,omitempty"`
	PackageType      string `json:"packageType,omitempty"`
	PackageExpiresAt string `json:"packageExpiresAt,omitempty"`
	IsSuspended      string `json:"isSuspended,omitempty"`
	SuspensionReason string `json:"suspensionReason,omitempty"`
	IsActive         string `json:"isActive,omitempty"`
}

// UpdateUserRequest keeps field presence: a nil field is not sent and is
// left unchanged by the service.
type UpdateUserRequest struct {
	ID               string  `json:"id"`
	Email            *string `json:"email,omitempty"`
	Password         *string `json:"password,omitempty"`
	FullName         *string `json:"fullName,omitempty"`
	PhoneNumber      *string `json:"phoneNumber,omitempty"`
	EmailVerified    *string `json:"emailVerified,omitempty"`
	PhoneVerified    *string `json:"phoneVerified,omitempty"`
	AvatarURL        *string `json:"avatarUrl,omitempty"`
	Bio              *string `json:"bio,omitempty"`
	Country          *string `json:"country,omitempty"`
	Role             *string `json:"role,omitempty"`
	Permissions      *string `json:"permissions,omitempty"`
	PackageType      *string `json:"packageType,omitempty"`
	PackageExpiresAt *string `json:"packageExpiresAt,omitempty"`
	IsSuspended      *string `json:"isSuspended,omitempty"`
	SuspensionReason *string `json:"suspensionReason,omitempty"`
	IsActive         *string `json:"isActive,omitempty"`
}

type GetUserRequest struct {
	ID string `json:"id"`
}

type DeleteUserRequest struct {
	ID string `json:"id"`
}

type DeleteUserResponse struct {
	Message string `json:"message"`
}

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []*User `json:"users"`
}
