package domain

// Role is the ordinal membership level of a user within a workspace or
// project. Higher values carry more privilege; comparisons are always >=.
type Role int16

const (
	RoleGuest  Role = 5
	RoleViewer Role = 10
	RoleMember Role = 15
	RoleAdmin  Role = 20
)

// AtLeast reports whether r grants at least the given role's privilege.
func (r Role) AtLeast(required Role) bool {
	return r >= required
}

// Valid reports whether r is one of the defined role levels.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleViewer, RoleMember, RoleAdmin:
		return true
	}
	return false
}

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleViewer:
		return "viewer"
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}
