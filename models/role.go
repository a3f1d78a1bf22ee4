package models

type Role string

const (
	RoleMember         Role = "member"
	RoleProjectManager Role = "project_manager"
	RoleAdmin          Role = "admin"
)

// ParseRole maps free-form input onto a known role, defaulting to member.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleProjectManager:
		return RoleProjectManager
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleMember
	}
}

func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleProjectManager, RoleAdmin:
		return true
	}
	return false
}

// CanCreateTask reports whether the role may create and own tasks.
func (r Role) CanCreateTask() bool {
	return r == RoleAdmin || r == RoleProjectManager
}

// CanManageTeam reports whether the role may add or remove team members.
func (r Role) CanManageTeam() bool {
	return r == RoleProjectManager
}

func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

// ApplyTo rewrites the derived permission flags on a user so they can never
// drift from the persisted role. Flags coming from a client are discarded.
func (r Role) ApplyTo(u *User) {
	u.Role = r
	u.IsAdmin = r == RoleAdmin
	u.IsProjectManager = r == RoleProjectManager
}
