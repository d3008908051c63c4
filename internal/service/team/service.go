package team

import (
	"context"
	"errors"
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

// Service handles team workflows within a selected project.
type Service struct {
	teams   repository.TeamRepository
	members repository.MemberRepository
	notify  notify.Service
	logger  *slog.Logger
}

// New constructs a Service.
func New(teams repository.TeamRepository, members repository.MemberRepository, notifySvc notify.Service, logger *slog.Logger) Service {
	return Service{teams: teams, members: members, notify: notifySvc, logger: logger}
}

// Create registers a team in the selected project.
func (s Service) Create(ctx context.Context, sel domain.Selection, name string) (*domain.Team, error) {
	if !policy.CanCreateTeam(sel.Role()) {
		return nil, fault.Forbidden("you must be the project owner or a manager to create teams")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fault.Invalid("team name is required")
	}
	team := &domain.Team{
		ID:        uuid.NewString(),
		ProjectID: sel.Project.ID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	s.logger.Info("team created", "team_id", team.ID, "project_id", sel.Project.ID, "user_id", sel.UserID())
	return team, nil
}

// List returns the selected project's teams.
func (s Service) List(ctx context.Context, sel domain.Selection) ([]domain.Team, error) {
	return s.teams.ListTeamsByProject(ctx, sel.Project.ID)
}

// Members returns the accepted project members on a team of the selected
// project.
func (s Service) Members(ctx context.Context, sel domain.Selection, teamID string) ([]domain.ProjectMember, error) {
	if _, err := s.resolveTeam(ctx, sel, teamID); err != nil {
		return nil, err
	}
	return s.teams.ListTeamMembers(ctx, teamID)
}

// AssignMember places a project member on a team and notifies them. The
// member must be an accepted, non-rejected member of the team's project.
func (s Service) AssignMember(ctx context.Context, sel domain.Selection, teamID string, memberID int64) (*domain.TeamMember, error) {
	if !policy.CanManageTeamMembers(sel.Role()) {
		return nil, fault.Forbidden("you must be the project owner or a manager to manage team members")
	}
	team, err := s.resolveTeam(ctx, sel, teamID)
	if err != nil {
		return nil, err
	}
	member, err := s.members.GetMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fault.NotFound("member not found")
		}
		return nil, err
	}
	if member.ProjectID != team.ProjectID {
		return nil, fault.NotFound("member not found")
	}
	if !member.Active() {
		return nil, fault.Invalid("the member has not accepted the project invitation")
	}

	now := time.Now().UTC()
	tm := &domain.TeamMember{
		TeamID:    team.ID,
		MemberID:  member.ID,
		CreatedAt: now,
	}
	note := notify.TeamAssignment(member.UserID, now)
	if err := s.teams.AddTeamMember(ctx, tm, note); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fault.Conflict("the member is already on this team")
		}
		return nil, err
	}

	s.logger.Info("team member assigned",
		"team_id", team.ID,
		"member_id", member.ID,
		"user_id", member.UserID,
		"assigned_by", sel.UserID(),
	)
	s.notify.Push(ctx, member.UserID)
	return tm, nil
}

// TryDelete removes a team when the actor owns the project. Referential
// refusals are reported as a normal outcome, not an error.
func (s Service) TryDelete(ctx context.Context, sel domain.Selection, teamID string) (bool, string, error) {
	if !policy.IsOwner(sel.Role()) {
		return false, "", fault.Forbidden("only the project owner can delete teams")
	}
	if _, err := s.resolveTeam(ctx, sel, teamID); err != nil {
		return false, "", err
	}
	if err := s.teams.DeleteTeam(ctx, teamID); err != nil {
		switch {
		case errors.Is(err, repository.ErrRestricted):
			return false, "the team is still assigned to issues and cannot be deleted", nil
		case errors.Is(err, repository.ErrNotFound):
			return false, "", fault.NotFound("team not found")
		default:
			s.logger.Error("team delete failed", "team_id", teamID, "error", err)
			return false, "the team could not be deleted", nil
		}
	}
	s.logger.Info("team deleted", "team_id", teamID, "user_id", sel.UserID())
	return true, "", nil
}

func (s Service) resolveTeam(ctx context.Context, sel domain.Selection, teamID string) (*domain.Team, error) {
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
	return team, nil
}
