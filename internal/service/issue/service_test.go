package issue

import (
	"context"
	"io"
	"iter"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/fault"
	"github.com/vitorwdson/hercules/internal/repository"
	"github.com/vitorwdson/hercules/internal/service/notify"
)

const testProjectID = "project-1"

func testSelection(role domain.Role, userID string) domain.Selection {
	return domain.Selection{
		Project: domain.Project{ID: testProjectID, Name: "Hercules"},
		Member: domain.ProjectMember{
			ID:        1,
			ProjectID: testProjectID,
			UserID:    userID,
			Role:      role,
			Accepted:  true,
		},
	}
}

func newTestService(issues *fakeIssueRepo, teams *fakeTeamRepo, members *fakeMemberRepo) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if issues == nil {
		issues = newFakeIssueRepo()
	}
	if teams == nil {
		teams = &fakeTeamRepo{}
	}
	if members == nil {
		members = &fakeMemberRepo{}
	}
	notifySvc := notify.New(fakeNoteRepo{}, nil, logger, 5)
	return New(issues, teams, members, notifySvc, logger)
}

func TestCreateRequiresTitle(t *testing.T) {
	issues := newFakeIssueRepo()
	svc := newTestService(issues, nil, nil)

	_, err := svc.Create(context.Background(), testSelection(domain.RoleDeveloper, "user-1"), CreateInput{
		Title: "   ",
		Body:  []byte(`{"text":"hello"}`),
	})
	if !fault.IsKind(err, fault.KindInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
	if issues.createCalls != 0 {
		t.Fatalf("expected no issue insert, got %d", issues.createCalls)
	}
}

func TestCreateRejectsNonMember(t *testing.T) {
	issues := newFakeIssueRepo()
	svc := newTestService(issues, nil, nil)

	sel := testSelection(domain.Role(0), "user-1")
	_, err := svc.Create(context.Background(), sel, CreateInput{
		Title: "Broken build",
		Body:  []byte(`{"text":"hello"}`),
	})
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	issues := newFakeIssueRepo()
	svc := newTestService(issues, nil, nil)

	_, err := svc.Create(context.Background(), testSelection(domain.RoleTester, "user-1"), CreateInput{
		Title: "Broken build",
		Body:  []byte(`{"text":`),
	})
	if !fault.IsKind(err, fault.KindInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
	if issues.createCalls != 0 {
		t.Fatalf("expected no issue insert, got %d", issues.createCalls)
	}
}

func TestCreateAssignsSequentialNumbers(t *testing.T) {
	issues := newFakeIssueRepo()
	svc := newTestService(issues, nil, nil)
	sel := testSelection(domain.RoleDeveloper, "user-1")

	first, err := svc.Create(context.Background(), sel, CreateInput{
		Title: "First",
		Body:  []byte(`{"text":"one"}`),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	second, err := svc.Create(context.Background(), sel, CreateInput{
		Title: "Second",
		Body:  []byte(`{"text":"two"}`),
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if first.Number != 1 || second.Number != 2 {
		t.Fatalf("expected numbers 1 and 2, got %d and %d", first.Number, second.Number)
	}
	if first.Status != domain.StatusOpen {
		t.Fatalf("expected new issues to open as open, got %v", first.Status)
	}
}

func TestRenameSameTitleIsNoOp(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "user-1", "Broken build")
	svc := newTestService(issues, nil, nil)

	got, err := svc.Rename(context.Background(), testSelection(domain.RoleOwner, "user-1"), existing.ID, "  Broken build ")
	if err != nil {
		t.Fatalf("Rename returned error: %v", err)
	}
	if got.Title != "Broken build" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if issues.renameCalls != 0 {
		t.Fatalf("expected no rename write, got %d", issues.renameCalls)
	}
}

func TestRenameForbiddenForNonCreator(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "author", "Broken build")
	svc := newTestService(issues, nil, nil)

	_, err := svc.Rename(context.Background(), testSelection(domain.RoleDeveloper, "bystander"), existing.ID, "New title")
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if issues.renameCalls != 0 {
		t.Fatalf("expected no rename write, got %d", issues.renameCalls)
	}
}

func TestRenameScopedToSelectedProject(t *testing.T) {
	issues := newFakeIssueRepo()
	foreign := issues.seed("other-project", "author", "Broken build")
	svc := newTestService(issues, nil, nil)

	_, err := svc.Rename(context.Background(), testSelection(domain.RoleOwner, "author"), foreign.ID, "New title")
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCommentDropsRedundantStatusTransition(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "author", "Broken build")
	svc := newTestService(issues, nil, nil)

	status := domain.StatusOpen
	_, err := svc.Comment(context.Background(), testSelection(domain.RoleOwner, "author"), existing.ID, []byte(`{"text":"ping"}`), &status)
	if err != nil {
		t.Fatalf("Comment returned error: %v", err)
	}
	if issues.commentCalls != 1 {
		t.Fatalf("expected one comment write, got %d", issues.commentCalls)
	}
	if issues.lastStatus != nil {
		t.Fatalf("expected the redundant transition to be dropped, got %v", *issues.lastStatus)
	}
}

func TestCommentStatusCheckedBeforeWrite(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "author", "Broken build")
	svc := newTestService(issues, nil, nil)

	status := domain.StatusDone
	_, err := svc.Comment(context.Background(), testSelection(domain.RoleTester, "bystander"), existing.ID, []byte(`{"text":"done?"}`), &status)
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if issues.commentCalls != 0 {
		t.Fatalf("expected no comment write, got %d", issues.commentCalls)
	}
}

func TestCommentWithStatusByCreator(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "author", "Broken build")
	svc := newTestService(issues, nil, nil)

	status := domain.StatusDone
	message, err := svc.Comment(context.Background(), testSelection(domain.RoleTester, "author"), existing.ID, []byte(`{"text":"fixed"}`), &status)
	if err != nil {
		t.Fatalf("Comment returned error: %v", err)
	}
	if message.IssueID != existing.ID {
		t.Fatalf("unexpected issue id %q", message.IssueID)
	}
	if issues.lastStatus == nil || *issues.lastStatus != domain.StatusDone {
		t.Fatal("expected the status transition to reach the repository")
	}
}

func TestAssignUserForbiddenForNonCreator(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "author", "Broken build")
	svc := newTestService(issues, nil, nil)

	_, err := svc.AssignUser(context.Background(), testSelection(domain.RoleDeveloper, "bystander"), existing.ID, "target")
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if issues.assignCalls != 0 {
		t.Fatalf("expected no assignment write, got %d", issues.assignCalls)
	}
}

func TestAssignUserRequiresActiveMember(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "author", "Broken build")
	members := &fakeMemberRepo{members: map[string]*domain.ProjectMember{
		"target": {ID: 7, ProjectID: testProjectID, UserID: "target", Role: domain.RoleDeveloper, Accepted: false},
	}}
	svc := newTestService(issues, nil, members)

	_, err := svc.AssignUser(context.Background(), testSelection(domain.RoleManager, "author"), existing.ID, "target")
	if !fault.IsKind(err, fault.KindInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
	if issues.assignCalls != 0 {
		t.Fatalf("expected no assignment write, got %d", issues.assignCalls)
	}
}

func TestAssignUserConflict(t *testing.T) {
	issues := newFakeIssueRepo()
	issues.assignErr = repository.ErrConflict
	existing := issues.seed(testProjectID, "author", "Broken build")
	members := &fakeMemberRepo{members: map[string]*domain.ProjectMember{
		"target": {ID: 7, ProjectID: testProjectID, UserID: "target", Role: domain.RoleDeveloper, Accepted: true},
	}}
	svc := newTestService(issues, nil, members)

	_, err := svc.AssignUser(context.Background(), testSelection(domain.RoleManager, "author"), existing.ID, "target")
	if !fault.IsKind(err, fault.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestAssignUserNotifiesTarget(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "author", "Broken build")
	members := &fakeMemberRepo{members: map[string]*domain.ProjectMember{
		"target": {ID: 7, ProjectID: testProjectID, UserID: "target", Role: domain.RoleDeveloper, Accepted: true},
	}}
	svc := newTestService(issues, nil, members)

	assignment, err := svc.AssignUser(context.Background(), testSelection(domain.RoleManager, "author"), existing.ID, "target")
	if err != nil {
		t.Fatalf("AssignUser returned error: %v", err)
	}
	if assignment.Type != domain.AssignmentUser || assignment.UserID == nil || *assignment.UserID != "target" {
		t.Fatalf("unexpected assignment %+v", assignment)
	}
	if len(issues.lastNotes) != 1 || issues.lastNotes[0].UserID != "target" {
		t.Fatalf("expected one notification for the target, got %+v", issues.lastNotes)
	}
	if issues.lastNotes[0].Type != domain.NotificationIssueAssignment {
		t.Fatalf("unexpected notification type %v", issues.lastNotes[0].Type)
	}
}

func TestAssignTeamScopedToSelectedProject(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "author", "Broken build")
	teams := &fakeTeamRepo{team: &domain.Team{ID: "team-1", ProjectID: "other-project", Name: "Backend"}}
	svc := newTestService(issues, teams, nil)

	_, err := svc.AssignTeam(context.Background(), testSelection(domain.RoleManager, "author"), existing.ID, "team-1")
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestAssignTeamNotifiesAcceptedMembers(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "author", "Broken build")
	teams := &fakeTeamRepo{
		team: &domain.Team{ID: "team-1", ProjectID: testProjectID, Name: "Backend"},
		teamMembers: []domain.ProjectMember{
			{ID: 7, ProjectID: testProjectID, UserID: "alice", Role: domain.RoleDeveloper, Accepted: true},
			{ID: 8, ProjectID: testProjectID, UserID: "bob", Role: domain.RoleTester, Accepted: true},
		},
	}
	svc := newTestService(issues, teams, nil)

	assignment, err := svc.AssignTeam(context.Background(), testSelection(domain.RoleManager, "author"), existing.ID, "team-1")
	if err != nil {
		t.Fatalf("AssignTeam returned error: %v", err)
	}
	if assignment.Type != domain.AssignmentTeam || assignment.TeamID == nil || *assignment.TeamID != "team-1" {
		t.Fatalf("unexpected assignment %+v", assignment)
	}
	if len(issues.lastNotes) != 2 {
		t.Fatalf("expected two notifications, got %d", len(issues.lastNotes))
	}
	for _, note := range issues.lastNotes {
		if note.Type != domain.NotificationTeamIssueAssignment {
			t.Fatalf("unexpected notification type %v", note.Type)
		}
	}
}

func TestHistoryRestartsPerRange(t *testing.T) {
	issues := newFakeIssueRepo()
	existing := issues.seed(testProjectID, "author", "Broken build")
	issues.history = []domain.History{
		{ID: 1, IssueID: existing.ID, ActorID: "author", Payload: domain.TitlePayload{Title: "Broken build"}},
		{ID: 2, IssueID: existing.ID, ActorID: "author", Payload: domain.StatusPayload{Status: domain.StatusDone}},
	}
	svc := newTestService(issues, nil, nil)

	seq, err := svc.History(context.Background(), testSelection(domain.RoleDeveloper, "author"), existing.ID)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	for range 2 {
		var ids []int64
		for entry, err := range seq {
			if err != nil {
				t.Fatalf("history iteration error: %v", err)
			}
			ids = append(ids, entry.ID)
		}
		if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
			t.Fatalf("unexpected history order %v", ids)
		}
	}
}

type fakeIssueRepo struct {
	issues       map[string]*domain.Issue
	counter      int
	createCalls  int
	renameCalls  int
	commentCalls int
	assignCalls  int
	lastStatus   *domain.Status
	lastNotes    []domain.Notification
	assignErr    error
	history      []domain.History
}

func newFakeIssueRepo() *fakeIssueRepo {
	return &fakeIssueRepo{issues: make(map[string]*domain.Issue)}
}

func (f *fakeIssueRepo) seed(projectID, createdBy, title string) *domain.Issue {
	f.counter++
	issue := &domain.Issue{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Number:    f.counter,
		Status:    domain.StatusOpen,
		Title:     title,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	f.issues[issue.ID] = issue
	return issue
}

func (f *fakeIssueRepo) CreateIssue(_ context.Context, issue *domain.Issue, _ *domain.Message) error {
	f.createCalls++
	f.counter++
	issue.Number = f.counter
	f.issues[issue.ID] = issue
	return nil
}

func (f *fakeIssueRepo) GetIssueByID(_ context.Context, id string) (*domain.Issue, error) {
	issue, ok := f.issues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *issue
	return &copied, nil
}

func (f *fakeIssueRepo) GetIssueByNumber(_ context.Context, projectID string, number int) (*domain.Issue, error) {
	for _, issue := range f.issues {
		if issue.ProjectID == projectID && issue.Number == number {
			copied := *issue
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIssueRepo) ListIssues(context.Context, repository.IssueQuery) ([]domain.Issue, error) {
	return nil, nil
}

func (f *fakeIssueRepo) RenameIssue(_ context.Context, issueID, _ string, title string) error {
	f.renameCalls++
	if issue, ok := f.issues[issueID]; ok {
		issue.Title = title
	}
	return nil
}

func (f *fakeIssueRepo) AddComment(_ context.Context, _ *domain.Message, newStatus *domain.Status) error {
	f.commentCalls++
	f.lastStatus = newStatus
	return nil
}

func (f *fakeIssueRepo) CreateAssignment(_ context.Context, a *domain.Assignment, _ string, notes []domain.Notification) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	f.assignCalls++
	a.ID = int64(f.assignCalls)
	f.lastNotes = notes
	return nil
}

func (f *fakeIssueRepo) ListAssignments(context.Context, string) ([]domain.Assignment, error) {
	return nil, nil
}

func (f *fakeIssueRepo) IssueHistory(_ context.Context, issueID string) iter.Seq2[domain.History, error] {
	return func(yield func(domain.History, error) bool) {
		for _, entry := range f.history {
			if entry.IssueID != issueID {
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

type fakeTeamRepo struct {
	team        *domain.Team
	teamMembers []domain.ProjectMember
}

func (f *fakeTeamRepo) CreateTeam(context.Context, *domain.Team) error { return nil }

func (f *fakeTeamRepo) GetTeamByID(_ context.Context, id string) (*domain.Team, error) {
	if f.team == nil || f.team.ID != id {
		return nil, repository.ErrNotFound
	}
	copied := *f.team
	return &copied, nil
}

func (f *fakeTeamRepo) ListTeamsByProject(context.Context, string) ([]domain.Team, error) {
	return nil, nil
}

func (f *fakeTeamRepo) AddTeamMember(context.Context, *domain.TeamMember, *domain.Notification) error {
	return nil
}

func (f *fakeTeamRepo) ListTeamMembers(context.Context, string) ([]domain.ProjectMember, error) {
	return f.teamMembers, nil
}

func (f *fakeTeamRepo) DeleteTeam(context.Context, string) error { return nil }

type fakeMemberRepo struct {
	members map[string]*domain.ProjectMember
}

func (f *fakeMemberRepo) GetMember(_ context.Context, _ string, userID string) (*domain.ProjectMember, error) {
	member, ok := f.members[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *member
	return &copied, nil
}

func (f *fakeMemberRepo) GetMemberByID(context.Context, int64) (*domain.ProjectMember, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeMemberRepo) ListMembers(context.Context, string) ([]domain.ProjectMember, error) {
	return nil, nil
}

func (f *fakeMemberRepo) CreateInvitation(context.Context, *domain.ProjectMember, *domain.Notification, int64) error {
	return nil
}

func (f *fakeMemberRepo) RespondInvitation(context.Context, int64, string, bool) (*domain.ProjectMember, error) {
	return nil, repository.ErrNotFound
}

type fakeNoteRepo struct{}

func (fakeNoteRepo) CountUnread(context.Context, string) (int, error) { return 0, nil }

func (fakeNoteRepo) ListNotifications(context.Context, string, int64, int64, int) ([]domain.Notification, error) {
	return nil, nil
}

func (fakeNoteRepo) MarkReadThrough(context.Context, string, int64) error { return nil }
