package repository

import (
	"context"
	"iter"

	"github.com/vitorwdson/hercules/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	// SearchUsers returns users whose name or username starts with filter,
	// excluding everyone with a non-rejected membership of the project.
	SearchUsers(ctx context.Context, filter, excludeProjectID string, limit int) ([]domain.User, error)
	SetLastProject(ctx context.Context, userID string, projectID *string) error
}

// ProjectRepository persists projects and their counters.
type ProjectRepository interface {
	// CreateProject inserts the project, its zero-valued counter and the
	// owner's accepted membership in one transaction.
	CreateProject(ctx context.Context, project *domain.Project, owner *domain.ProjectMember) error
	GetProjectByID(ctx context.Context, id string) (*domain.Project, error)
	ListProjectsByUser(ctx context.Context, userID string) ([]domain.Project, error)
	// DeleteProject returns ErrRestricted when foreign keys refuse the delete.
	DeleteProject(ctx context.Context, id string) error
}

// MemberRepository manages project memberships and their invitation lifecycle.
type MemberRepository interface {
	GetMember(ctx context.Context, projectID, userID string) (*domain.ProjectMember, error)
	GetMemberByID(ctx context.Context, id int64) (*domain.ProjectMember, error)
	ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error)
	// CreateInvitation inserts the pending member row and its invitation
	// notification in one transaction, filling member.ID and note.MemberID.
	// supersededID, when non-zero, names a previously rejected row deleted in
	// the same transaction (its stale notification goes with it by cascade).
	CreateInvitation(ctx context.Context, member *domain.ProjectMember, note *domain.Notification, supersededID int64) error
	// RespondInvitation flips the accepted/rejected flags of the pending
	// invitation behind the notification and marks the notification read, all
	// in one transaction. ErrNotFound when the notification does not belong
	// to the user, is not a project invitation, or is already answered.
	RespondInvitation(ctx context.Context, notificationID int64, userID string, accept bool) (*domain.ProjectMember, error)
}

// TeamRepository manages teams and team membership.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team) error
	GetTeamByID(ctx context.Context, id string) (*domain.Team, error)
	ListTeamsByProject(ctx context.Context, projectID string) ([]domain.Team, error)
	// AddTeamMember inserts the link and its notification in one transaction,
	// filling tm.ID and note.TeamMemberID.
	AddTeamMember(ctx context.Context, tm *domain.TeamMember, note *domain.Notification) error
	// ListTeamMembers returns the accepted project members on the team.
	ListTeamMembers(ctx context.Context, teamID string) ([]domain.ProjectMember, error)
	// DeleteTeam returns ErrRestricted when foreign keys refuse the delete.
	DeleteTeam(ctx context.Context, id string) error
}

// IssueQuery filters and pages a project's issue list.
type IssueQuery struct {
	ProjectID string
	Status    *domain.Status
	// AssignedUserID restricts to issues assigned to the user directly or
	// through one of their teams.
	AssignedUserID string
	Limit         int
	Offset        int
}

// IssueRepository persists the issue aggregate. Every mutation appends its
// history rows inside the same transaction as the mutation itself.
type IssueRepository interface {
	// CreateIssue reserves the project's next number, inserts the issue, the
	// opening message and one message-history entry in a single transaction;
	// issue.Number is filled on return.
	CreateIssue(ctx context.Context, issue *domain.Issue, message *domain.Message) error
	GetIssueByID(ctx context.Context, id string) (*domain.Issue, error)
	GetIssueByNumber(ctx context.Context, projectID string, number int) (*domain.Issue, error)
	ListIssues(ctx context.Context, q IssueQuery) ([]domain.Issue, error)
	// RenameIssue updates the title and appends one title-history entry.
	RenameIssue(ctx context.Context, issueID, actorID, title string) error
	// AddComment inserts the message and its history entry; when newStatus is
	// set it also updates the issue and appends a status-history entry, all
	// atomically.
	AddComment(ctx context.Context, message *domain.Message, newStatus *domain.Status) error
	// CreateAssignment inserts the assignment, one assignment-history entry
	// and the fan-out notifications in a single transaction, filling a.ID and
	// each note's AssignmentID. ErrConflict when the principal is already
	// assigned.
	CreateAssignment(ctx context.Context, a *domain.Assignment, actorID string, notes []domain.Notification) error
	ListAssignments(ctx context.Context, issueID string) ([]domain.Assignment, error)
	// IssueHistory streams the audit trail ordered by created_at then id.
	// Each range over the sequence runs a fresh query.
	IssueHistory(ctx context.Context, issueID string) iter.Seq2[domain.History, error]
}

// NotificationRepository serves the per-user notification feed.
type NotificationRepository interface {
	CountUnread(ctx context.Context, userID string) (int, error)
	// ListNotifications returns newest-first pages: beforeID > 0 fetches older
	// rows (id < beforeID), afterID > 0 fetches rows newer than afterID. A
	// non-positive limit returns every matching row.
	ListNotifications(ctx context.Context, userID string, beforeID, afterID int64, limit int) ([]domain.Notification, error)
	// MarkReadThrough marks every notification with id <= throughID read.
	MarkReadThrough(ctx context.Context, userID string, throughID int64) error
}
