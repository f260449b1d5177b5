package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"ADMIN", RoleAdmin, true},
		{"moderator", RoleModerator, true},
		{" Employee ", RoleEmployee, true},
		{"trader", RoleTrader, true},
		{"client", RoleClient, true},
		{"user", RoleClient, true},
		{"USER", RoleClient, true},
		{"root", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAllRoles_InPriorityOrder(t *testing.T) {
	for i, r := range AllRoles {
		if r.Priority() != i {
			t.Errorf("%s has priority %d, want %d", r, r.Priority(), i)
		}
	}
	if Role("GUEST").Priority() <= RoleClient.Priority() {
		t.Errorf("unknown roles must rank after CLIENT")
	}
}

func TestIdentity_PassesGate(t *testing.T) {
	tests := []struct {
		name string
		id   Identity
		want bool
	}{
		{"active client", Identity{Role: RoleClient, IsActive: true}, true},
		{"inactive admin", Identity{Role: RoleAdmin}, false},
		{"verified trader", Identity{Role: RoleTrader, IsActive: true, IsVerified: true}, true},
		{"unverified trader", Identity{Role: RoleTrader, IsActive: true}, false},
		{"unverified employee ignores verification", Identity{Role: RoleEmployee, IsActive: true}, true},
	}
	for _, tt := range tests {
		if got := tt.id.PassesGate(); got != tt.want {
			t.Errorf("%s: PassesGate() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIdentity_ProjectExposesOnlyOwnRoleFields(t *testing.T) {
	trader := &Identity{ID: "t1", Role: RoleTrader, CompanyName: "Acme", IsVerified: true, EmployeeCode: "leak"}
	p := trader.Project()
	if p.UserType != RoleTrader || p.CompanyName != "Acme" || p.IsVerified == nil || !*p.IsVerified {
		t.Fatalf("unexpected trader projection: %+v", p)
	}
	if p.EmployeeCode != "" || p.IsSuperAdmin != nil || p.IsEmailVerified != nil {
		t.Fatalf("foreign role fields leaked: %+v", p)
	}

	admin := (&Identity{ID: "a1", Role: RoleAdmin}).Project()
	if admin.IsSuperAdmin == nil || admin.IsVerified != nil {
		t.Fatalf("unexpected admin projection: %+v", admin)
	}
}

func TestAuthError_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("login: %w", RoleNotFound(RoleClient))

	if !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("RoleNotFound must match its sentinel")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("different codes must not match")
	}
	ae, ok := AsAuthError(err)
	if !ok || ae.Message != "No CLIENT account found" || ae.Kind != KindNotFound {
		t.Fatalf("unexpected auth error: %+v", ae)
	}
	if errors.Is(ErrWrongPassword, ErrInvalidCredentials) {
		t.Fatalf("WRONG_PASSWORD and INVALID_CREDENTIALS are distinct internally")
	}
}
