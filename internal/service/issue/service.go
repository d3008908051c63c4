// Package issue implements the issue aggregate: creation, renaming, the
// message thread, status transitions and assignments. Every mutation is
// policy-checked first and recorded in the append-only history inside the
// same transaction as the change itself.
package issue

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/fault"
	"github.com/vitorwdson/hercules/internal/repository"
	"github.com/vitorwdson/hercules/internal/service/notify"
	"github.com/vitorwdson/hercules/internal/service/policy"
)

// Service orchestrates the issue aggregate.
type Service struct {
	issues  repository.IssueRepository
	teams   repository.TeamRepository
	members repository.MemberRepository
	notify  notify.Service
	logger  *slog.Logger
}

// New constructs a Service.
func New(issues repository.IssueRepository, teams repository.TeamRepository, members repository.MemberRepository, notifySvc notify.Service, logger *slog.Logger) Service {
	return Service{issues: issues, teams: teams, members: members, notify: notifySvc, logger: logger}
}

// CreateInput holds issue creation attributes.
type CreateInput struct {
	Title   string
	Body    []byte
	DueDate *time.Time
}

// Create opens an issue: the next project number is reserved and the issue,
// its opening message and the first history entry are committed atomically.
func (s Service) Create(ctx context.Context, sel domain.Selection, input CreateInput) (*domain.Issue, error) {
	if !policy.CanCreateIssue(sel.Role()) {
		return nil, fault.Forbidden("you are not a member of this project")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fault.Invalid("title is required")
	}
	body, err := documentBody(input.Body)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	issue := &domain.Issue{
		ID:        uuid.NewString(),
		ProjectID: sel.Project.ID,
		Status:    domain.StatusOpen,
		Title:     title,
		CreatedBy: sel.UserID(),
		DueDate:   input.DueDate,
		CreatedAt: now,
	}
	message := &domain.Message{
		CreatedBy: sel.UserID(),
		Body:      body,
		CreatedAt: now,
	}
	if err := s.issues.CreateIssue(ctx, issue, message); err != nil {
		return nil, err
	}
	s.logger.Info("issue created",
		"issue_id", issue.ID,
		"project_id", sel.Project.ID,
		"number", issue.Number,
		"user_id", sel.UserID(),
	)
	return issue, nil
}

// Rename changes an issue's title and records the change. Renaming to the
// current title is a no-op: no save, no history entry.
func (s Service) Rename(ctx context.Context, sel domain.Selection, issueID, newTitle string) (*domain.Issue, error) {
	issue, err := s.resolveIssue(ctx, sel, issueID)
	if err != nil {
		return nil, err
	}
	if !policy.CanRenameIssue(actorContext(sel, issue)) {
		return nil, fault.Forbidden("only the issue creator, the project owner or a manager can rename it")
	}
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return nil, fault.Invalid("title is required")
	}
	if newTitle == issue.Title {
		return issue, nil
	}
	if err := s.issues.RenameIssue(ctx, issue.ID, sel.UserID(), newTitle); err != nil {
		return nil, err
	}
	issue.Title = newTitle
	s.logger.Info("issue renamed", "issue_id", issue.ID, "user_id", sel.UserID())
	return issue, nil
}

// Comment appends a message to the thread, optionally transitioning the
// status in the same transaction. The status permission is checked before
// anything is written.
func (s Service) Comment(ctx context.Context, sel domain.Selection, issueID string, body []byte, newStatus *domain.Status) (*domain.Message, error) {
	issue, err := s.resolveIssue(ctx, sel, issueID)
	if err != nil {
		return nil, err
	}
	doc, err := documentBody(body)
	if err != nil {
		return nil, err
	}
	if newStatus != nil {
		if !domain.ValidStatus(*newStatus) {
			return nil, fault.Invalid("invalid status")
		}
		if !policy.CanChangeStatus(actorContext(sel, issue)) {
			return nil, fault.Forbidden("only the issue creator, the project owner or a manager can change the status")
		}
		if *newStatus == issue.Status {
			newStatus = nil
		}
	}

	message := &domain.Message{
		IssueID:   issue.ID,
		CreatedBy: sel.UserID(),
		Body:      doc,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.issues.AddComment(ctx, message, newStatus); err != nil {
		return nil, err
	}
	if newStatus != nil {
		s.logger.Info("issue status changed", "issue_id", issue.ID, "status", newStatus.String(), "user_id", sel.UserID())
	}
	return message, nil
}

// AssignUser assigns an issue to a single user and notifies them. The target
// must be an active member of the project.
func (s Service) AssignUser(ctx context.Context, sel domain.Selection, issueID, targetUserID string) (*domain.Assignment, error) {
	issue, err := s.resolveIssue(ctx, sel, issueID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAssign(actorContext(sel, issue)) {
		return nil, fault.Forbidden("only the issue creator, the project owner or a manager can assign it")
	}
	target, err := s.members.GetMember(ctx, sel.Project.ID, targetUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fault.NotFound("member not found")
		}
		return nil, err
	}
	if !target.Active() {
		return nil, fault.Invalid("the user has not accepted the project invitation")
	}

	now := time.Now().UTC()
	assignment := &domain.Assignment{
		IssueID:   issue.ID,
		Type:      domain.AssignmentUser,
		UserID:    &target.UserID,
		CreatedAt: now,
	}
	notes := notify.IssueAssignedUser(target.UserID, now)
	if err := s.issues.CreateAssignment(ctx, assignment, sel.UserID(), notes); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fault.Conflict("the user is already assigned to this issue")
		}
		return nil, err
	}
	s.logger.Info("issue assigned to user", "issue_id", issue.ID, "target_user_id", target.UserID, "user_id", sel.UserID())
	s.notify.Push(ctx, target.UserID)
	return assignment, nil
}

// AssignTeam assigns an issue to a team and notifies every current accepted
// team member.
func (s Service) AssignTeam(ctx context.Context, sel domain.Selection, issueID, teamID string) (*domain.Assignment, error) {
	issue, err := s.resolveIssue(ctx, sel, issueID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAssign(actorContext(sel, issue)) {
		return nil, fault.Forbidden("only the issue creator, the project owner or a manager can assign it")
	}
	team, err := s.teams.GetTeamByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fault.NotFound("team not found")
		}
		return nil, err
	}
	if team.ProjectID != sel.Project.ID {
		return nil, fault.NotFound("team not found")
	}
	recipients, err := s.teams.ListTeamMembers(ctx, team.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	assignment := &domain.Assignment{
		IssueID:   issue.ID,
		Type:      domain.AssignmentTeam,
		TeamID:    &team.ID,
		CreatedAt: now,
	}
	notes := notify.IssueAssignedTeam(recipients, now)
	if err := s.issues.CreateAssignment(ctx, assignment, sel.UserID(), notes); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fault.Conflict("the team is already assigned to this issue")
		}
		return nil, err
	}
	s.logger.Info("issue assigned to team", "issue_id", issue.ID, "team_id", team.ID, "user_id", sel.UserID())

	userIDs := make([]string, 0, len(notes))
	for _, n := range notes {
		userIDs = append(userIDs, n.UserID)
	}
	s.notify.Push(ctx, userIDs...)
	return assignment, nil
}

// Get fetches an issue of the selected project by its number.
func (s Service) Get(ctx context.Context, sel domain.Selection, number int) (*domain.Issue, error) {
	issue, err := s.issues.GetIssueByNumber(ctx, sel.Project.ID, number)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fault.NotFound("issue not found")
		}
		return nil, err
	}
	return issue, nil
}

// ListInput filters and pages the issue list.
type ListInput struct {
	Status       *domain.Status
	AssignedToMe bool
	Limit        int
	Offset       int
}

// List returns newest-first pages of the selected project's issues.
func (s Service) List(ctx context.Context, sel domain.Selection, input ListInput) ([]domain.Issue, error) {
	q := repository.IssueQuery{
		ProjectID: sel.Project.ID,
		Status:    input.Status,
		Limit:     input.Limit,
		Offset:    input.Offset,
	}
	if input.AssignedToMe {
		q.AssignedUserID = sel.UserID()
	}
	return s.issues.ListIssues(ctx, q)
}

// Assignments returns an issue's assignments in insertion order.
func (s Service) Assignments(ctx context.Context, sel domain.Selection, issueID string) ([]domain.Assignment, error) {
	issue, err := s.resolveIssue(ctx, sel, issueID)
	if err != nil {
		return nil, err
	}
	return s.issues.ListAssignments(ctx, issue.ID)
}

// History streams an issue's audit trail oldest first. Ranging over the
// sequence again restarts it from the beginning.
func (s Service) History(ctx context.Context, sel domain.Selection, issueID string) (iter.Seq2[domain.History, error], error) {
	issue, err := s.resolveIssue(ctx, sel, issueID)
	if err != nil {
		return nil, err
	}
	return s.issues.IssueHistory(ctx, issue.ID), nil
}

func (s Service) resolveIssue(ctx context.Context, sel domain.Selection, issueID string) (*domain.Issue, error) {
	issue, err := s.issues.GetIssueByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fault.NotFound("issue not found")
		}
		return nil, err
	}
	if issue.ProjectID != sel.Project.ID {
		return nil, fault.NotFound("issue not found")
	}
	return issue, nil
}

func actorContext(sel domain.Selection, issue *domain.Issue) policy.Context {
	return policy.Context{
		Role:      sel.Role(),
		IsCreator: issue.CreatedBy == sel.UserID(),
	}
}
