package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"log/slog"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/repository"
	"github.com/vitorwdson/hercules/internal/service/auth"
	"github.com/vitorwdson/hercules/internal/service/issue"
	"github.com/vitorwdson/hercules/internal/service/member"
	"github.com/vitorwdson/hercules/internal/service/notify"
	"github.com/vitorwdson/hercules/internal/service/project"
	"github.com/vitorwdson/hercules/internal/service/team"
	"github.com/vitorwdson/hercules/internal/ws"
	"github.com/vitorwdson/hercules/pkg/config"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := config.APIConfig{
		JWTSecret:            "test-secret",
		AccessTokenTTL:       time.Hour,
		RefreshTokenTTL:      24 * time.Hour,
		NotificationPageSize: 5,
		IssuePageSize:        15,
		InviteSearchLimit:    20,
	}
	users := newRouterUserRepo()
	projects := &routerProjectRepo{}
	hub := ws.NewHub()

	authSvc := auth.New(users, logger, cfg)
	notifySvc := notify.New(routerNoteRepo{}, hub, logger, cfg.NotificationPageSize)
	projectSvc := project.New(projects, routerMemberRepo{}, users, logger)
	memberSvc := member.New(routerMemberRepo{}, users, notifySvc, logger)
	teamSvc := team.New(nil, routerMemberRepo{}, notifySvc, logger)
	issueSvc := issue.New(nil, nil, routerMemberRepo{}, notifySvc, logger)

	router := NewRouter(logger, cfg, authSvc, projectSvc, memberSvc, teamSvc, issueSvc, notifySvc, hub, NewMemoryRateLimiter(), nil)
	t.Cleanup(router.Close)
	return router
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected status %v", payload["status"])
	}
}

func TestRegisterRejectsWrongMethod(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/register", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestProjectsRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRegisterLoginAndListProjects(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{
		"username":   "alice",
		"first_name": "Alice",
		"last_name":  "Doe",
		"email":      "alice@example.com",
		"password":   "longenough",
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-RateLimit-Limit") == "" {
		t.Fatal("expected rate limit headers on auth routes")
	}

	var registered struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &registered); err != nil {
		t.Fatalf("invalid register body: %v", err)
	}
	if registered.Tokens.AccessToken == "" {
		t.Fatal("expected an access token")
	}

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer "+registered.Tokens.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list projects: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var projects []projectView
	if err := json.Unmarshal(rec.Body.Bytes(), &projects); err != nil {
		t.Fatalf("invalid projects body: %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("expected no projects yet, got %d", len(projects))
	}
}

func TestLoginRateLimit(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"username":"ghost","password":"whatever"}`)
	var last int
	for range rateLimitLogin + 1 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
		req.RemoteAddr = "203.0.113.7:12345"
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exceeding the window, got %d", last)
	}
}

type routerUserRepo struct {
	byID       map[string]*domain.User
	byUsername map[string]*domain.User
}

func newRouterUserRepo() *routerUserRepo {
	return &routerUserRepo{
		byID:       make(map[string]*domain.User),
		byUsername: make(map[string]*domain.User),
	}
}

func (f *routerUserRepo) CreateUser(_ context.Context, user *domain.User) error {
	if _, exists := f.byUsername[user.Username]; exists {
		return repository.ErrConflict
	}
	f.byID[user.ID] = user
	f.byUsername[user.Username] = user
	return nil
}

func (f *routerUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *routerUserRepo) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	user, ok := f.byUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *routerUserRepo) SearchUsers(context.Context, string, string, int) ([]domain.User, error) {
	return nil, nil
}

func (f *routerUserRepo) SetLastProject(context.Context, string, *string) error { return nil }

type routerProjectRepo struct{}

func (routerProjectRepo) CreateProject(context.Context, *domain.Project, *domain.ProjectMember) error {
	return nil
}

func (routerProjectRepo) GetProjectByID(context.Context, string) (*domain.Project, error) {
	return nil, repository.ErrNotFound
}

func (routerProjectRepo) ListProjectsByUser(context.Context, string) ([]domain.Project, error) {
	return nil, nil
}

func (routerProjectRepo) DeleteProject(context.Context, string) error { return nil }

type routerMemberRepo struct{}

func (routerMemberRepo) GetMember(context.Context, string, string) (*domain.ProjectMember, error) {
	return nil, repository.ErrNotFound
}

func (routerMemberRepo) GetMemberByID(context.Context, int64) (*domain.ProjectMember, error) {
	return nil, repository.ErrNotFound
}

func (routerMemberRepo) ListMembers(context.Context, string) ([]domain.ProjectMember, error) {
	return nil, nil
}

func (routerMemberRepo) CreateInvitation(context.Context, *domain.ProjectMember, *domain.Notification, int64) error {
	return nil
}

func (routerMemberRepo) RespondInvitation(context.Context, int64, string, bool) (*domain.ProjectMember, error) {
	return nil, repository.ErrNotFound
}

type routerNoteRepo struct{}

func (routerNoteRepo) CountUnread(context.Context, string) (int, error) { return 0, nil }

func (routerNoteRepo) ListNotifications(context.Context, string, int64, int64, int) ([]domain.Notification, error) {
	return nil, nil
}

func (routerNoteRepo) MarkReadThrough(context.Context, string, int64) error { return nil }
