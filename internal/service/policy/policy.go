// Package policy holds the capability rules consulted before every mutation.
// Decisions are pure functions of the actor's role in the selected project
// and, where relevant, whether the actor created the resource. Only this
// package interprets the numeric role encoding.
package policy

import "github.com/vitorwdson/hercules/internal/domain"

// Context carries everything a capability check needs.
type Context struct {
	Role      domain.Role
	IsCreator bool
}

func managerial(role domain.Role) bool {
	return role == domain.RoleOwner || role == domain.RoleManager
}

// CanInvite reports whether the role may invite project members.
func CanInvite(role domain.Role) bool { return managerial(role) }

// CanCreateTeam reports whether the role may create teams.
func CanCreateTeam(role domain.Role) bool { return managerial(role) }

// CanManageTeamMembers reports whether the role may assign members to teams.
func CanManageTeamMembers(role domain.Role) bool { return managerial(role) }

// CanCreateIssue reports whether the role may open issues. Every project
// member can.
func CanCreateIssue(role domain.Role) bool { return domain.ValidRole(role) }

// CanRenameIssue reports whether the actor may rename an issue.
func CanRenameIssue(c Context) bool { return c.IsCreator || managerial(c.Role) }

// CanChangeStatus reports whether the actor may transition an issue's status.
func CanChangeStatus(c Context) bool { return c.IsCreator || managerial(c.Role) }

// CanAssign reports whether the actor may assign users or teams to an issue.
func CanAssign(c Context) bool { return c.IsCreator || managerial(c.Role) }

// IsOwner reports whether the role is the project owner. Project and team
// deletion are owner-only.
func IsOwner(role domain.Role) bool { return role == domain.RoleOwner }
