package domain

import "strings"

// Role tags one of the five independently stored identity kinds.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleEmployee  Role = "EMPLOYEE"
	RoleTrader    Role = "TRADER"
	RoleClient    Role = "CLIENT"
)

// roleUserAlias is accepted on input as a synonym for RoleClient.
const roleUserAlias = "USER"

// AllRoles lists every role in primary-selection order.
var AllRoles = []Role{RoleAdmin, RoleModerator, RoleEmployee, RoleTrader, RoleClient}

// rolePriority is a total order: lower wins when several roles validate.
var rolePriority = map[Role]int{
	RoleAdmin:     0,
	RoleModerator: 1,
	RoleEmployee:  2,
	RoleTrader:    3,
	RoleClient:    4,
}

// ParseRole normalises a caller-supplied role tag. Matching is case-insensitive
// and "USER" maps to RoleClient.
func ParseRole(s string) (Role, bool) {
	tag := strings.ToUpper(strings.TrimSpace(s))
	if tag == roleUserAlias {
		return RoleClient, true
	}
	r := Role(tag)
	if _, ok := rolePriority[r]; !ok {
		return "", false
	}
	return r, true
}

// Priority returns the selection rank of r; unknown roles rank last.
func (r Role) Priority() int {
	if p, ok := rolePriority[r]; ok {
		return p
	}
	return len(rolePriority)
}

// Linkable reports whether r may coexist with another role through a
// client↔trader link and therefore receives its own token pair.
func (r Role) Linkable() bool {
	return r == RoleClient || r == RoleTrader
}

func (r Role) String() string { return string(r) }
