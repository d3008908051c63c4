// Package member implements project membership and its invitation lifecycle:
// a membership row starts as a pending invite and becomes active or rejected
// by the invitee's response.
package member

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/fault"
	"github.com/vitorwdson/hercules/internal/repository"
	"github.com/vitorwdson/hercules/internal/service/notify"
	"github.com/vitorwdson/hercules/internal/service/policy"
)

// Service handles membership workflows.
type Service struct {
	members repository.MemberRepository
	users   repository.UserRepository
	notify  notify.Service
	logger  *slog.Logger
}

// New constructs a Service.
func New(members repository.MemberRepository, users repository.UserRepository, notifySvc notify.Service, logger *slog.Logger) Service {
	return Service{members: members, users: users, notify: notifySvc, logger: logger}
}

// Invite creates a pending membership for the target user and notifies them.
// A previously rejected invitation is superseded by a fresh row; an accepted
// or still-pending one is a conflict.
func (s Service) Invite(ctx context.Context, sel domain.Selection, targetUserID string, role domain.Role) (*domain.ProjectMember, error) {
	if !policy.CanInvite(sel.Role()) {
		return nil, fault.Forbidden("you must be the project owner or a manager to invite members")
	}
	if !domain.ValidRole(role) || role == domain.RoleOwner {
		return nil, fault.Invalid("invalid role")
	}
	target, err := s.users.GetUserByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fault.NotFound("user not found")
		}
		return nil, err
	}

	var supersededID int64
	existing, err := s.members.GetMember(ctx, sel.Project.ID, target.ID)
	switch {
	case err == nil:
		if existing.Accepted {
			return nil, fault.Conflict("the selected user is already a member")
		}
		if !existing.Rejected {
			return nil, fault.Conflict("the selected user was already invited")
		}
		supersededID = existing.ID
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, err
	}

	now := time.Now().UTC()
	invited := &domain.ProjectMember{
		ProjectID: sel.Project.ID,
		UserID:    target.ID,
		Role:      role,
		CreatedAt: now,
	}
	note := notify.ProjectInvitation(target.ID, now)
	if err := s.members.CreateInvitation(ctx, invited, note, supersededID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost a race against a concurrent invitation.
			return nil, fault.Conflict("the selected user was already invited")
		}
		return nil, err
	}

	s.logger.Info("member invited",
		"project_id", sel.Project.ID,
		"user_id", target.ID,
		"role", role.String(),
		"invited_by", sel.UserID(),
	)
	s.notify.Push(ctx, target.ID)
	return invited, nil
}

// Respond answers the project invitation behind a notification, accepting or
// rejecting it and marking the notification read atomically.
func (s Service) Respond(ctx context.Context, userID string, notificationID int64, accept bool) (*domain.ProjectMember, error) {
	member, err := s.members.RespondInvitation(ctx, notificationID, userID, accept)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fault.NotFound("invitation not found")
		}
		return nil, err
	}
	s.logger.Info("invitation answered",
		"project_id", member.ProjectID,
		"user_id", userID,
		"accepted", accept,
	)
	s.notify.Push(ctx, userID)
	return member, nil
}

// List returns the project's membership rows, pending invitations included.
func (s Service) List(ctx context.Context, sel domain.Selection) ([]domain.ProjectMember, error) {
	return s.members.ListMembers(ctx, sel.Project.ID)
}

// SearchInvitees returns invite candidates matching a name or username
// prefix, excluding current non-rejected members of the selected project.
func (s Service) SearchInvitees(ctx context.Context, sel domain.Selection, filter string, limit int) ([]domain.User, error) {
	if !policy.CanInvite(sel.Role()) {
		return nil, fault.Forbidden("you must be the project owner or a manager to invite members")
	}
	return s.users.SearchUsers(ctx, filter, sel.Project.ID, limit)
}
