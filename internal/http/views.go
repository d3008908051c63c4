package httpx

import (
	"encoding/json"
	"time"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/fault"
	"github.com/vitorwdson/hercules/internal/service/auth"
)

// View types decouple JSON payloads from domain structs; enums render as
// their names, never as their stored encodings.

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func viewUser(u domain.User) userView {
	return userView{ID: u.ID, Username: u.Username, Name: u.DisplayName()}
}

type tokenView struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func viewTokens(t auth.TokenPair) tokenView {
	return tokenView{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    int64(t.ExpiresIn.Seconds()),
	}
}

type projectView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func viewProject(p domain.Project) projectView {
	return projectView{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt}
}

type memberView struct {
	ID        int64     `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Accepted  bool      `json:"accepted"`
	Rejected  bool      `json:"rejected"`
	CreatedAt time.Time `json:"created_at"`
}

func viewMember(m domain.ProjectMember) memberView {
	return memberView{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
		Role:      m.Role.String(),
		Accepted:  m.Accepted,
		Rejected:  m.Rejected,
		CreatedAt: m.CreatedAt,
	}
}

type teamView struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func viewTeam(t domain.Team) teamView {
	return teamView{ID: t.ID, ProjectID: t.ProjectID, Name: t.Name, CreatedAt: t.CreatedAt}
}

type issueView struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	Number    int        `json:"number"`
	Status    string     `json:"status"`
	Title     string     `json:"title"`
	CreatedBy string     `json:"created_by"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func viewIssue(i domain.Issue) issueView {
	return issueView{
		ID:        i.ID,
		ProjectID: i.ProjectID,
		Number:    i.Number,
		Status:    i.Status.String(),
		Title:     i.Title,
		CreatedBy: i.CreatedBy,
		DueDate:   i.DueDate,
		CreatedAt: i.CreatedAt,
	}
}

type messageView struct {
	ID        int64           `json:"id"`
	CreatedBy string          `json:"created_by"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"created_at"`
}

func viewMessage(m domain.Message) messageView {
	return messageView{ID: m.ID, CreatedBy: m.CreatedBy, Body: json.RawMessage(m.Body), CreatedAt: m.CreatedAt}
}

type assignmentView struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	UserID    *string   `json:"user_id,omitempty"`
	TeamID    *string   `json:"team_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func viewAssignment(a domain.Assignment) assignmentView {
	view := assignmentView{ID: a.ID, UserID: a.UserID, TeamID: a.TeamID, CreatedAt: a.CreatedAt}
	switch a.Type {
	case domain.AssignmentTeam:
		view.Type = "team"
	default:
		view.Type = "user"
	}
	return view
}

type historyView struct {
	ID         int64           `json:"id"`
	ActorID    string          `json:"actor_id"`
	Type       string          `json:"type"`
	Message    *messageView    `json:"message,omitempty"`
	Assignment *assignmentView `json:"assignment,omitempty"`
	Status     *string         `json:"status,omitempty"`
	Title      *string         `json:"title,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func viewHistory(h domain.History) historyView {
	view := historyView{
		ID:        h.ID,
		ActorID:   h.ActorID,
		Type:      h.Payload.HistoryType().String(),
		CreatedAt: h.CreatedAt,
	}
	switch p := h.Payload.(type) {
	case domain.MessagePayload:
		msg := viewMessage(p.Message)
		view.Message = &msg
	case domain.AssignmentPayload:
		asg := viewAssignment(p.Assignment)
		view.Assignment = &asg
	case domain.StatusPayload:
		status := p.Status.String()
		view.Status = &status
	case domain.TitlePayload:
		view.Title = &p.Title
	}
	return view
}

type notificationView struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	Read         bool      `json:"read"`
	MemberID     *int64    `json:"member_id,omitempty"`
	TeamMemberID *int64    `json:"team_member_id,omitempty"`
	AssignmentID *int64    `json:"assignment_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func viewNotification(n domain.Notification) notificationView {
	return notificationView{
		ID:           n.ID,
		Type:         n.Type.String(),
		Read:         n.Read,
		MemberID:     n.MemberID,
		TeamMemberID: n.TeamMemberID,
		AssignmentID: n.AssignmentID,
		CreatedAt:    n.CreatedAt,
	}
}

func parseRole(name string) (domain.Role, error) {
	switch name {
	case "manager":
		return domain.RoleManager, nil
	case "developer":
		return domain.RoleDeveloper, nil
	case "tester":
		return domain.RoleTester, nil
	default:
		return 0, fault.Invalid("invalid role")
	}
}

func parseStatus(name string) (domain.Status, error) {
	switch name {
	case "open":
		return domain.StatusOpen, nil
	case "done":
		return domain.StatusDone, nil
	case "closed":
		return domain.StatusClosed, nil
	default:
		return 0, fault.Invalid("invalid status")
	}
}
