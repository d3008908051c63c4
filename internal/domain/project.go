package domain

import "time"

// Role is a member's access level within a project. The numeric encoding is
// persisted as-is; call sites resolve it through the policy package instead of
// comparing values directly.
type Role int

const (
	RoleOwner Role = iota + 1
	RoleManager
	RoleDeveloper
	RoleTester
)

// ValidRole reports whether r is one of the defined roles.
func ValidRole(r Role) bool {
	return r >= RoleOwner && r <= RoleTester
}

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleManager:
		return "manager"
	case RoleDeveloper:
		return "developer"
	case RoleTester:
		return "tester"
	default:
		return "unknown"
	}
}

// Project is the tenant boundary owning members, teams and issues.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ProjectMember links a user to a project. A row with neither flag set is a
// pending invitation; accepted rows are active members.
type ProjectMember struct {
	ID        int64
	ProjectID string
	UserID    string
	Role      Role
	Accepted  bool
	Rejected  bool
	CreatedAt time.Time
}

// Active reports whether the member accepted the invitation and was not
// rejected since.
func (m ProjectMember) Active() bool {
	return m.Accepted && !m.Rejected
}

// Pending reports whether the invitation is still unanswered.
func (m ProjectMember) Pending() bool {
	return !m.Accepted && !m.Rejected
}

// Team groups project members. Names are not unique within a project.
type Team struct {
	ID        string
	ProjectID string
	Name      string
	CreatedAt time.Time
}

// TeamMember links a team to a project member (not directly to a user).
type TeamMember struct {
	ID        int64
	TeamID    string
	MemberID  int64
	CreatedAt time.Time
}

// Counter holds the last issue number handed out for a project.
type Counter struct {
	ProjectID string
	Number    int
}
