package project

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
	"github.com/vitorwdson/hercules/internal/service/policy"
)

// Service orchestrates project lifecycle and selection.
type Service struct {
	projects repository.ProjectRepository
	members  repository.MemberRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

// New constructs a Service.
func New(projects repository.ProjectRepository, members repository.MemberRepository, users repository.UserRepository, logger *slog.Logger) Service {
	return Service{projects: projects, members: members, users: users, logger: logger}
}

// Create registers a project; the creator becomes its accepted owner.
func (s Service) Create(ctx context.Context, creatorID, name string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fault.Invalid("project name is required")
	}
	now := time.Now().UTC()
	project := &domain.Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
	}
	owner := &domain.ProjectMember{
		UserID:    creatorID,
		Role:      domain.RoleOwner,
		CreatedAt: now,
	}
	if err := s.projects.CreateProject(ctx, project, owner); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", project.ID, "owner_id", creatorID)
	return project, nil
}

// ListByUser returns the projects where the user is an accepted member.
func (s Service) ListByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	return s.projects.ListProjectsByUser(ctx, userID)
}

// Select validates the user's membership, records the project as their last
// selection and returns the explicit per-request context every core
// operation takes.
func (s Service) Select(ctx context.Context, userID, projectID string) (domain.Selection, error) {
	sel, err := s.Resolve(ctx, userID, projectID)
	if err != nil {
		return domain.Selection{}, err
	}
	if err := s.users.SetLastProject(ctx, userID, &projectID); err != nil {
		s.logger.Warn("persisting last project failed", "user_id", userID, "error", err)
	}
	return sel, nil
}

// Resolve builds the selection context for a user and project without
// touching the stored last-project pointer.
func (s Service) Resolve(ctx context.Context, userID, projectID string) (domain.Selection, error) {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Selection{}, fault.NotFound("project not found")
		}
		return domain.Selection{}, err
	}
	member, err := s.members.GetMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Selection{}, fault.Forbidden("you are not a member of this project")
		}
		return domain.Selection{}, err
	}
	if !member.Active() {
		return domain.Selection{}, fault.Forbidden("you are not a member of this project")
	}
	return domain.Selection{Project: *project, Member: *member}, nil
}

// TryDelete removes a project when the actor owns it. Referential refusals
// are reported as a normal outcome, not an error.
func (s Service) TryDelete(ctx context.Context, sel domain.Selection) (bool, string, error) {
	if !policy.IsOwner(sel.Role()) {
		return false, "", fault.Forbidden("only the project owner can delete it")
	}
	if err := s.projects.DeleteProject(ctx, sel.Project.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrRestricted):
			return false, "the project still has issues and cannot be deleted", nil
		case errors.Is(err, repository.ErrNotFound):
			return false, "", fault.NotFound("project not found")
		default:
			s.logger.Error("project delete failed", "project_id", sel.Project.ID, "error", err)
			return false, "the project could not be deleted", nil
		}
	}
	s.logger.Info("project deleted", "project_id", sel.Project.ID, "user_id", sel.UserID())
	return true, "", nil
}
