package member

import (
	"context"
	"io"
	"testing"

	"log/slog"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/fault"
	"github.com/vitorwdson/hercules/internal/repository"
	"github.com/vitorwdson/hercules/internal/service/notify"
)

const testProjectID = "project-1"

func testSelection(role domain.Role) domain.Selection {
	return domain.Selection{
		Project: domain.Project{ID: testProjectID, Name: "Hercules"},
		Member: domain.ProjectMember{
			ID:        1,
			ProjectID: testProjectID,
			UserID:    "actor",
			Role:      role,
			Accepted:  true,
		},
	}
}

func newTestService(members *fakeMemberRepo, users *fakeUserRepo) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if members == nil {
		members = &fakeMemberRepo{}
	}
	if users == nil {
		users = &fakeUserRepo{users: map[string]*domain.User{
			"target": {ID: "target", Username: "target"},
		}}
	}
	return New(members, users, notify.New(fakeNoteRepo{}, nil, logger, 5), logger)
}

func TestInviteRequiresManagerialRole(t *testing.T) {
	members := &fakeMemberRepo{}
	svc := newTestService(members, nil)

	for _, role := range []domain.Role{domain.RoleDeveloper, domain.RoleTester} {
		_, err := svc.Invite(context.Background(), testSelection(role), "target", domain.RoleDeveloper)
		if !fault.IsKind(err, fault.KindForbidden) {
			t.Fatalf("role %v: expected forbidden error, got %v", role, err)
		}
	}
	if members.inviteCalls != 0 {
		t.Fatalf("expected no invitation writes, got %d", members.inviteCalls)
	}
}

func TestInviteRejectsOwnerRole(t *testing.T) {
	svc := newTestService(nil, nil)

	_, err := svc.Invite(context.Background(), testSelection(domain.RoleOwner), "target", domain.RoleOwner)
	if !fault.IsKind(err, fault.KindInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestInviteUnknownUser(t *testing.T) {
	svc := newTestService(nil, &fakeUserRepo{})

	_, err := svc.Invite(context.Background(), testSelection(domain.RoleManager), "ghost", domain.RoleDeveloper)
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestInviteConflictsWithExistingMember(t *testing.T) {
	members := &fakeMemberRepo{existing: &domain.ProjectMember{
		ID: 5, ProjectID: testProjectID, UserID: "target", Role: domain.RoleDeveloper, Accepted: true,
	}}
	svc := newTestService(members, nil)

	_, err := svc.Invite(context.Background(), testSelection(domain.RoleOwner), "target", domain.RoleDeveloper)
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if members.inviteCalls != 0 {
		t.Fatalf("expected no invitation writes, got %d", members.inviteCalls)
	}
}

func TestInviteConflictsWithPendingInvitation(t *testing.T) {
	members := &fakeMemberRepo{existing: &domain.ProjectMember{
		ID: 5, ProjectID: testProjectID, UserID: "target", Role: domain.RoleDeveloper,
	}}
	svc := newTestService(members, nil)

	_, err := svc.Invite(context.Background(), testSelection(domain.RoleOwner), "target", domain.RoleDeveloper)
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestInviteSupersedesRejectedInvitation(t *testing.T) {
	members := &fakeMemberRepo{existing: &domain.ProjectMember{
		ID: 5, ProjectID: testProjectID, UserID: "target", Role: domain.RoleDeveloper, Rejected: true,
	}}
	svc := newTestService(members, nil)

	invited, err := svc.Invite(context.Background(), testSelection(domain.RoleOwner), "target", domain.RoleTester)
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if members.lastSuperseded != 5 {
		t.Fatalf("expected the rejected row to be superseded, got %d", members.lastSuperseded)
	}
	if invited.Role != domain.RoleTester {
		t.Fatalf("unexpected role %v", invited.Role)
	}
	if members.lastNote == nil || members.lastNote.Type != domain.NotificationProjectInvitation {
		t.Fatalf("expected an invitation notification, got %+v", members.lastNote)
	}
}

func TestInviteLosesRace(t *testing.T) {
	members := &fakeMemberRepo{inviteErr: repository.ErrConflict}
	svc := newTestService(members, nil)

	_, err := svc.Invite(context.Background(), testSelection(domain.RoleOwner), "target", domain.RoleDeveloper)
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRespondUnknownInvitation(t *testing.T) {
	members := &fakeMemberRepo{respondErr: repository.ErrNotFound}
	svc := newTestService(members, nil)

	_, err := svc.Respond(context.Background(), "target", 42, true)
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRespondAccept(t *testing.T) {
	members := &fakeMemberRepo{responded: &domain.ProjectMember{
		ID: 5, ProjectID: testProjectID, UserID: "target", Role: domain.RoleDeveloper, Accepted: true,
	}}
	svc := newTestService(members, nil)

	member, err := svc.Respond(context.Background(), "target", 42, true)
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if !member.Accepted {
		t.Fatal("expected an accepted membership")
	}
	if members.lastNotificationID != 42 {
		t.Fatalf("expected notification 42 to be answered, got %d", members.lastNotificationID)
	}
}

func TestSearchInviteesRequiresManagerialRole(t *testing.T) {
	svc := newTestService(nil, nil)

	_, err := svc.SearchInvitees(context.Background(), testSelection(domain.RoleTester), "al", 20)
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

type fakeMemberRepo struct {
	existing           *domain.ProjectMember
	responded          *domain.ProjectMember
	inviteErr          error
	respondErr         error
	inviteCalls        int
	lastSuperseded     int64
	lastNote           *domain.Notification
	lastNotificationID int64
}

func (f *fakeMemberRepo) GetMember(context.Context, string, string) (*domain.ProjectMember, error) {
	if f.existing == nil {
		return nil, repository.ErrNotFound
	}
	copied := *f.existing
	return &copied, nil
}

func (f *fakeMemberRepo) GetMemberByID(context.Context, int64) (*domain.ProjectMember, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeMemberRepo) ListMembers(context.Context, string) ([]domain.ProjectMember, error) {
	return nil, nil
}

func (f *fakeMemberRepo) CreateInvitation(_ context.Context, member *domain.ProjectMember, note *domain.Notification, supersededID int64) error {
	if f.inviteErr != nil {
		return f.inviteErr
	}
	f.inviteCalls++
	member.ID = int64(100 + f.inviteCalls)
	note.MemberID = &member.ID
	f.lastSuperseded = supersededID
	f.lastNote = note
	return nil
}

func (f *fakeMemberRepo) RespondInvitation(_ context.Context, notificationID int64, _ string, _ bool) (*domain.ProjectMember, error) {
	if f.respondErr != nil {
		return nil, f.respondErr
	}
	f.lastNotificationID = notificationID
	if f.responded == nil {
		return nil, repository.ErrNotFound
	}
	copied := *f.responded
	return &copied, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (f *fakeUserRepo) CreateUser(context.Context, *domain.User) error { return nil }

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByUsername(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) SearchUsers(context.Context, string, string, int) ([]domain.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) SetLastProject(context.Context, string, *string) error { return nil }

type fakeNoteRepo struct{}

func (fakeNoteRepo) CountUnread(context.Context, string) (int, error) { return 0, nil }

func (fakeNoteRepo) ListNotifications(context.Context, string, int64, int64, int) ([]domain.Notification, error) {
	return nil, nil
}

func (fakeNoteRepo) MarkReadThrough(context.Context, string, int64) error { return nil }
