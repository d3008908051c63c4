package notify

import (
	"time"

	"github.com/vitorwdson/hercules/internal/domain"
)

// Fan-out builders produce the notification rows a mutation owes its
// recipients. They are pure; the repository persists the rows inside the
// same transaction as the triggering mutation, so a failed mutation leaves
// no notifications behind.

// ProjectInvitation notifies a user they were invited to a project. The
// member reference is filled by the repository once the invitation row
// exists.
func ProjectInvitation(targetUserID string, at time.Time) *domain.Notification {
	return &domain.Notification{
		UserID:    targetUserID,
		Type:      domain.NotificationProjectInvitation,
		CreatedAt: at,
	}
}

// TeamAssignment notifies a member they were placed on a team.
func TeamAssignment(targetUserID string, at time.Time) *domain.Notification {
	return &domain.Notification{
		UserID:    targetUserID,
		Type:      domain.NotificationTeamAssignment,
		CreatedAt: at,
	}
}

// IssueAssignedUser notifies the single user an issue was assigned to.
func IssueAssignedUser(targetUserID string, at time.Time) []domain.Notification {
	return []domain.Notification{{
		UserID:    targetUserID,
		Type:      domain.NotificationIssueAssignment,
		CreatedAt: at,
	}}
}

// IssueAssignedTeam notifies every current accepted member of the assigned
// team, one row per recipient.
func IssueAssignedTeam(members []domain.ProjectMember, at time.Time) []domain.Notification {
	notes := make([]domain.Notification, 0, len(members))
	for _, m := range members {
		if !m.Active() {
			continue
		}
		notes = append(notes, domain.Notification{
			UserID:    m.UserID,
			Type:      domain.NotificationTeamIssueAssignment,
			CreatedAt: at,
		})
	}
	return notes
}
