package domain

import "time"

// NotificationType discriminates what a notification points at.
type NotificationType int

const (
	NotificationProjectInvitation NotificationType = iota + 1
	NotificationTeamAssignment
	NotificationIssueAssignment
	NotificationTeamIssueAssignment
)

func (t NotificationType) String() string {
	switch t {
	case NotificationProjectInvitation:
		return "project_invitation"
	case NotificationTeamAssignment:
		return "team_assignment"
	case NotificationIssueAssignment:
		return "issue_assignment"
	case NotificationTeamIssueAssignment:
		return "team_issue_assignment"
	default:
		return "unknown"
	}
}

// Notification is a per-user record of an event requiring attention. Exactly
// one reference is set, matching Type. The core only ever flips Read; rows
// disappear solely by cascade when their target is deleted.
type Notification struct {
	ID           int64
	UserID       string
	Type         NotificationType
	Read         bool
	MemberID     *int64
	TeamMemberID *int64
	AssignmentID *int64
	CreatedAt    time.Time
}
