// AngelaMos | 2026
// entity_test.go

package user

import (
	"reflect"
	"testing"
)

func TestPermissions_RoundTrip(t *testing.T) {
	perms := Permissions{"read", "write"}

	v, err := perms.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != "read,write" {
		t.Fatalf("expected read,write, got %v", v)
	}

	var scanned Permissions
	if err := scanned.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !reflect.DeepEqual(scanned, perms) {
		t.Errorf("expected %v, got %v", perms, scanned)
	}
}

func TestPermissions_Empty(t *testing.T) {
	v, err := Permissions(nil).Value()
	if err != nil || v != nil {
		t.Fatalf("expected nil value, got %v (%v)", v, err)
	}

	var p Permissions
	for _, src := range []any{nil, "", []byte("")} {
		if err := p.Scan(src); err != nil {
			t.Fatalf("scan %v: %v", src, err)
		}
		if p != nil {
			t.Errorf("scan %#v: expected nil, got %v", src, p)
		}
	}

	if err := p.Scan(42); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestPatch_Columns(t *testing.T) {
	if !(Patch{}).IsEmpty() {
		t.Fatal("expected empty patch")
	}

	role := RoleAdmin
	bio := ""
	cols := Patch{Role: &role, Bio: &bio}.columns()
	if len(cols) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(cols))
	}

	got := map[string]column{}
	for _, c := range cols {
		got[c.name] = c
	}
	if got["role"].cast != "user_role" {
		t.Errorf("expected role cast, got %q", got["role"].cast)
	}
	if got["bio"].value != "" {
		t.Errorf("expected empty bio value, got %v", got["bio"].value)
	}
}

func TestPatch_Apply(t *testing.T) {
	country := "NZ"
	u := &User{FullName: "Ann Lee", Country: &country, IsActive: true}

	name := "Ann Smith"
	active := false
	perms := Permissions{"read"}
	Patch{FullName: &name, IsActive: &active, Permissions: &perms}.Apply(u)

	if u.FullName != "Ann Smith" || u.IsActive {
		t.Errorf("expected patched fields, got %+v", u)
	}
	if u.Country == nil || *u.Country != "NZ" {
		t.Errorf("expected country untouched, got %v", u.Country)
	}

	perms[0] = "mutated"
	if u.Permissions[0] != "read" {
		t.Error("expected permissions to be copied")
	}
}

func TestApplyDefaults(t *testing.T) {
	u := &User{}
	u.ApplyDefaults()
	if u.Role != RoleUser || u.PackageType != PackageFree {
		t.Errorf("expected defaults, got role=%q package=%q", u.Role, u.PackageType)
	}

	u = &User{Role: RoleAdmin, PackageType: PackagePremium}
	u.ApplyDefaults()
	if u.Role != RoleAdmin || u.PackageType != PackagePremium {
		t.Errorf("expected explicit values kept, got role=%q package=%q", u.Role, u.PackageType)
	}
}
