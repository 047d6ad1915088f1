// AngelaMos | 2026
// convert_test.go

package usergrpc

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/carterperez-dev/usergate/internal/core"
	"github.com/carterperez-dev/usergate/internal/user"
)

func TestEncodeUser_WireFormat(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 800, time.FixedZone("NZDT", 13*3600))
	verified := true

	wire := EncodeUser(&user.User{
		ID:            "7f1c1a5e-0a52-4d7e-9b7e-2f0c1f0e9d11",
		Email:         "a@b.com",
		FullName:      "Ann Lee",
		EmailVerified: &verified,
		Permissions:   user.Permissions{"read", "write"},
		IsActive:      true,
		CreatedAt:     created,
		UpdatedAt:     created,
	})

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"role defaults", wire.Role, "user"},
		{"package defaults", wire.PackageType, "free"},
		{"bool true", wire.EmailVerified, "true"},
		{"absent optional bool", wire.PhoneVerified, ""},
		{"required bool false", wire.IsSuspended, "false"},
		{"required bool true", wire.IsActive, "true"},
		{"absent timestamp", wire.PackageExpiresAt, ""},
		{"timestamp utc", wire.CreatedAt, "2026-03-03T16:06:07.0000008Z"},
		{"permissions joined", wire.Permissions, "read,write"},
		{"absent string", wire.PhoneNumber, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, tt.got)
			}
		})
	}
}

func TestPermissions_RoundTripThroughWire(t *testing.T) {
	wire := EncodeUser(&user.User{Permissions: user.Permissions{"read", "write"}})

	resp, err := DecodeUser(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(resp.Permissions, []string{"read", "write"}) {
		t.Errorf("expected [read write], got %v", resp.Permissions)
	}
}

func TestDecodeUser_Timestamps(t *testing.T) {
	resp, err := DecodeUser(&User{
		CreatedAt:        "2026-03-03T16:06:07.0000008Z",
		UpdatedAt:        "2026-03-03T16:06:07Z",
		PackageExpiresAt: "",
		IsActive:         "true",
		IsSuspended:      "false",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := time.Date(2026, 3, 3, 16, 6, 7, 800, time.UTC)
	if !resp.CreatedAt.Equal(want) {
		t.Errorf("expected %v, got %v", want, resp.CreatedAt)
	}
	if resp.PackageExpiresAt != nil {
		t.Errorf("expected absent packageExpiresAt, got %v", resp.PackageExpiresAt)
	}
	if !resp.IsActive || resp.IsSuspended {
		t.Errorf("unexpected flags: active=%v suspended=%v", resp.IsActive, resp.IsSuspended)
	}
}

func TestDecodeCreateRequest_RejectsBadScalars(t *testing.T) {
	tests := []struct {
		name string
		in   CreateUserRequest
	}{
		{"bool yes", CreateUserRequest{EmailVerified: "yes"}},
		{"bool capitalised", CreateUserRequest{IsActive: "True"}},
		{"bad timestamp", CreateUserRequest{PackageExpiresAt: "tomorrow"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCreateRequest(&tt.in)
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestDecodeCreateRequest_AbsentValues(t *testing.T) {
	req, err := DecodeCreateRequest(&CreateUserRequest{
		Email:    "a@b.com",
		FullName: "Ann Lee",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if req.EmailVerified != nil || req.IsActive != nil || req.PackageExpiresAt != nil {
		t.Errorf("expected absent optionals, got %+v", req)
	}
	if req.Permissions != nil {
		t.Errorf("expected nil permissions, got %v", req.Permissions)
	}
}

func TestUpdateRequest_PresencePreserved(t *testing.T) {
	empty := ""
	active := false
	perms := []string{"read", "write"}

	wire := EncodeUpdateRequest("id-1", user.UpdateUserRequest{
		Bio:         &empty,
		IsActive:    &active,
		Permissions: &perms,
	})

	if wire.FullName != nil {
		t.Error("expected omitted field to stay nil on the wire")
	}
	if wire.Bio == nil || *wire.Bio != "" {
		t.Errorf("expected explicit empty bio, got %v", wire.Bio)
	}
	if wire.IsActive == nil || *wire.IsActive != "false" {
		t.Errorf("expected isActive \"false\", got %v", wire.IsActive)
	}

	req, err := DecodeUpdateRequest(wire)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if req.FullName != nil {
		t.Error("expected fullName absent after round trip")
	}
	if req.Bio == nil || *req.Bio != "" {
		t.Errorf("expected empty bio after round trip, got %v", req.Bio)
	}
	if req.IsActive == nil || *req.IsActive {
		t.Errorf("expected isActive false after round trip, got %v", req.IsActive)
	}
	if req.Permissions == nil || !reflect.DeepEqual(*req.Permissions, perms) {
		t.Errorf("expected %v, got %v", perms, req.Permissions)
	}
}

func TestDecodeUpdateRequest_EmptyPermissionsClears(t *testing.T) {
	empty := ""
	req, err := DecodeUpdateRequest(&UpdateUserRequest{Permissions: &empty})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Permissions == nil || len(*req.Permissions) != 0 {
		t.Errorf("expected present empty permissions, got %v", req.Permissions)
	}
}
