package permission

import "strings"

// Role is a tenant member role. Roles form a strict total order:
// viewer < member < manager < admin.
type Role string

const (
	RoleViewer  Role = "viewer"
	RoleMember  Role = "member"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

var roleLevels = map[Role]int{
	RoleViewer:  0,
	RoleMember:  1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// Roles returns every role from lowest to highest.
func Roles() []Role {
	return []Role{RoleViewer, RoleMember, RoleManager, RoleAdmin}
}

// ParseRole normalizes a role name. Unknown names report false.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	_, ok := roleLevels[role]
	return role, ok
}

// Level returns the rank of the role, or -1 when unknown.
func (r Role) Level() int {
	level, ok := roleLevels[r]
	if !ok {
		return -1
	}
	return level
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	level := r.Level()
	return level >= 0 && level >= min.Level()
}

func (r Role) Valid() bool {
	return r.Level() >= 0
}

func (r Role) String() string {
	return string(r)
}
