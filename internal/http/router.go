package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/service/auth"
	"github.com/vitorwdson/hercules/internal/service/issue"
	"github.com/vitorwdson/hercules/internal/service/member"
	"github.com/vitorwdson/hercules/internal/service/notify"
	"github.com/vitorwdson/hercules/internal/service/project"
	"github.com/vitorwdson/hercules/internal/service/team"
	"github.com/vitorwdson/hercules/internal/ws"
	"github.com/vitorwdson/hercules/pkg/config"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	cfg      config.APIConfig
	auth     auth.Service
	project  project.Service
	member   member.Service
	team     team.Service
	issue    issue.Service
	notify   notify.Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitSignup    = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, cfg config.APIConfig, authSvc auth.Service, projectSvc project.Service, memberSvc member.Service, teamSvc team.Service, issueSvc issue.Service, notifySvc notify.Service, hub *ws.Hub, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		logger:  logger,
		cfg:     cfg,
		auth:    authSvc,
		project: projectSvc,
		member:  memberSvc,
		team:    teamSvc,
		issue:   issueSvc,
		notify:  notifySvc,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit(r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/auth/register", r.audit(r.withRateLimit("/auth/register", rateLimitSignup, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/auth/login", r.audit(r.withRateLimit("/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/projects", r.audit(r.handlerAuthRate("/projects", rateLimitUserWrite, rateWindowDefault, r.handleProjects)))
	r.mux.HandleFunc("/projects/", r.audit(r.handlerAuthRate("/projects", rateLimitUserWrite, rateWindowDefault, r.handleProjectSubroutes)))
	r.mux.HandleFunc("/notifications", r.audit(r.handlerAuthRate("/notifications", rateLimitUserRead, rateWindowDefault, r.handleNotifications)))
	r.mux.HandleFunc("/notifications/", r.audit(r.handlerAuthRate("/notifications", rateLimitUserWrite, rateWindowDefault, r.handleNotificationSubroutes)))
	r.mux.HandleFunc("/ws/notifications", r.audit(r.handlerAuthRate("/ws/notifications", rateLimitWebsocket, rateWindowRealtime, r.handleNotificationsWS)))
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Username  string `json:"username"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, tokens, err := r.auth.Register(req.Context(), auth.RegisterInput{
		Username:  payload.Username,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
	})
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":   viewUser(*user),
		"tokens": viewTokens(tokens),
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, tokens, err := r.auth.Login(req.Context(), payload.Username, payload.Password)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":            viewUser(*user),
		"tokens":          viewTokens(tokens),
		"last_project_id": user.LastProjectID,
	})
}

func (r *Router) handleProjects(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		projects, err := r.project.ListByUser(req.Context(), info.UserID)
		if err != nil {
			writeFault(w, err)
			return
		}
		views := make([]projectView, 0, len(projects))
		for _, p := range projects {
			views = append(views, viewProject(p))
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var payload struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		proj, err := r.project.Create(req.Context(), info.UserID, payload.Name)
		if err != nil {
			writeFault(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewProject(*proj))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProjectSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/projects/")
	parts := strings.Split(trimmed, "/")
	projectID := parts[0]
	if projectID == "" {
		r.notFound(w)
		return
	}
	switch {
	case len(parts) == 1:
		r.handleProject(w, req, projectID)
	case len(parts) == 2 && parts[1] == "select":
		r.handleProjectSelect(w, req, projectID)
	case len(parts) == 2 && parts[1] == "members":
		r.handleMembers(w, req, projectID)
	case len(parts) == 3 && parts[1] == "members" && parts[2] == "search":
		r.handleMemberSearch(w, req, projectID)
	case len(parts) == 2 && parts[1] == "teams":
		r.handleTeams(w, req, projectID)
	case len(parts) == 3 && parts[1] == "teams":
		r.handleTeam(w, req, projectID, parts[2])
	case len(parts) == 4 && parts[1] == "teams" && parts[3] == "members":
		r.handleTeamMembers(w, req, projectID, parts[2])
	case len(parts) == 2 && parts[1] == "issues":
		r.handleIssues(w, req, projectID)
	case len(parts) == 3 && parts[1] == "issues":
		r.handleIssue(w, req, projectID, parts[2])
	case len(parts) == 4 && parts[1] == "issues":
		r.handleIssueSubroute(w, req, projectID, parts[2], parts[3])
	default:
		r.notFound(w)
	}
}

func (r *Router) handleProject(w http.ResponseWriter, req *http.Request, projectID string) {
	sel, ok := r.selection(w, req, projectID)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, viewProject(sel.Project))
	case http.MethodDelete:
		deleted, reason, err := r.project.TryDelete(req.Context(), sel)
		if err != nil {
			writeFault(w, err)
			return
		}
		if !deleted {
			writeJSON(w, http.StatusConflict, map[string]any{"deleted": false, "reason": reason})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProjectSelect(w http.ResponseWriter, req *http.Request, projectID string) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	sel, err := r.project.Select(req.Context(), info.UserID, projectID)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project": viewProject(sel.Project),
		"member":  viewMember(sel.Member),
	})
}

func (r *Router) handleMembers(w http.ResponseWriter, req *http.Request, projectID string) {
	sel, ok := r.selection(w, req, projectID)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		members, err := r.member.List(req.Context(), sel)
		if err != nil {
			writeFault(w, err)
			return
		}
		views := make([]memberView, 0, len(members))
		for _, m := range members {
			views = append(views, viewMember(m))
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var payload struct {
			UserID string `json:"user_id"`
			Role   string `json:"role"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		role, err := parseRole(payload.Role)
		if err != nil {
			writeFault(w, err)
			return
		}
		invited, err := r.member.Invite(req.Context(), sel, payload.UserID, role)
		if err != nil {
			writeFault(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewMember(*invited))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleMemberSearch(w http.ResponseWriter, req *http.Request, projectID string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	sel, ok := r.selection(w, req, projectID)
	if !ok {
		return
	}
	filter := strings.TrimSpace(req.URL.Query().Get("filter"))
	users, err := r.member.SearchInvitees(req.Context(), sel, filter, r.cfg.InviteSearchLimit)
	if err != nil {
		writeFault(w, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, viewUser(u))
	}
	writeJSON(w, http.StatusOK, views)
}

func (r *Router) handleTeams(w http.ResponseWriter, req *http.Request, projectID string) {
	sel, ok := r.selection(w, req, projectID)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		teams, err := r.team.List(req.Context(), sel)
		if err != nil {
			writeFault(w, err)
			return
		}
		views := make([]teamView, 0, len(teams))
		for _, t := range teams {
			views = append(views, viewTeam(t))
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var payload struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.team.Create(req.Context(), sel, payload.Name)
		if err != nil {
			writeFault(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewTeam(*created))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTeam(w http.ResponseWriter, req *http.Request, projectID, teamID string) {
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	sel, ok := r.selection(w, req, projectID)
	if !ok {
		return
	}
	deleted, reason, err := r.team.TryDelete(req.Context(), sel, teamID)
	if err != nil {
		writeFault(w, err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusConflict, map[string]any{"deleted": false, "reason": reason})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (r *Router) handleTeamMembers(w http.ResponseWriter, req *http.Request, projectID, teamID string) {
	sel, ok := r.selection(w, req, projectID)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		members, err := r.team.Members(req.Context(), sel, teamID)
		if err != nil {
			writeFault(w, err)
			return
		}
		views := make([]memberView, 0, len(members))
		for _, m := range members {
			views = append(views, viewMember(m))
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var payload struct {
			MemberID int64 `json:"member_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		assigned, err := r.team.AssignMember(req.Context(), sel, teamID, payload.MemberID)
		if err != nil {
			writeFault(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":        assigned.ID,
			"team_id":   assigned.TeamID,
			"member_id": assigned.MemberID,
		})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleIssues(w http.ResponseWriter, req *http.Request, projectID string) {
	sel, ok := r.selection(w, req, projectID)
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		input := issue.ListInput{Limit: r.cfg.IssuePageSize}
		query := req.URL.Query()
		if raw := query.Get("status"); raw != "" {
			status, err := parseStatus(raw)
			if err != nil {
				writeFault(w, err)
				return
			}
			input.Status = &status
		}
		input.AssignedToMe = query.Get("assigned_to_me") == "true"
		if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
			input.Limit = limit
		}
		if offset, err := strconv.Atoi(query.Get("offset")); err == nil && offset > 0 {
			input.Offset = offset
		}
		issues, err := r.issue.List(req.Context(), sel, input)
		if err != nil {
			writeFault(w, err)
			return
		}
		views := make([]issueView, 0, len(issues))
		for _, i := range issues {
			views = append(views, viewIssue(i))
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var payload struct {
			Title   string          `json:"title"`
			Body    json.RawMessage `json:"body"`
			DueDate *time.Time      `json:"due_date"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		created, err := r.issue.Create(req.Context(), sel, issue.CreateInput{
			Title:   payload.Title,
			Body:    payload.Body,
			DueDate: payload.DueDate,
		})
		if err != nil {
			writeFault(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewIssue(*created))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleIssue(w http.ResponseWriter, req *http.Request, projectID, rawNumber string) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	sel, ok := r.selection(w, req, projectID)
	if !ok {
		return
	}
	found, ok := r.issueByNumber(w, req, sel, rawNumber)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewIssue(*found))
}

func (r *Router) handleIssueSubroute(w http.ResponseWriter, req *http.Request, projectID, rawNumber, action string) {
	sel, ok := r.selection(w, req, projectID)
	if !ok {
		return
	}
	found, ok := r.issueByNumber(w, req, sel, rawNumber)
	if !ok {
		return
	}
	switch action {
	case "title":
		r.handleIssueTitle(w, req, sel, found)
	case "comments":
		r.handleIssueComments(w, req, sel, found)
	case "assignments":
		r.handleIssueAssignments(w, req, sel, found)
	case "history":
		r.handleIssueHistory(w, req, sel, found)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleIssueTitle(w http.ResponseWriter, req *http.Request, sel domain.Selection, found *domain.Issue) {
	if req.Method != http.MethodPatch {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	renamed, err := r.issue.Rename(req.Context(), sel, found.ID, payload.Title)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewIssue(*renamed))
}

func (r *Router) handleIssueComments(w http.ResponseWriter, req *http.Request, sel domain.Selection, found *domain.Issue) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Body   json.RawMessage `json:"body"`
		Status *string         `json:"status"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var newStatus *domain.Status
	if payload.Status != nil {
		status, err := parseStatus(*payload.Status)
		if err != nil {
			writeFault(w, err)
			return
		}
		newStatus = &status
	}
	message, err := r.issue.Comment(req.Context(), sel, found.ID, payload.Body, newStatus)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewMessage(*message))
}

func (r *Router) handleIssueAssignments(w http.ResponseWriter, req *http.Request, sel domain.Selection, found *domain.Issue) {
	switch req.Method {
	case http.MethodGet:
		assignments, err := r.issue.Assignments(req.Context(), sel, found.ID)
		if err != nil {
			writeFault(w, err)
			return
		}
		views := make([]assignmentView, 0, len(assignments))
		for _, a := range assignments {
			views = append(views, viewAssignment(a))
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var payload struct {
			UserID string `json:"user_id"`
			TeamID string `json:"team_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		var assigned *domain.Assignment
		var err error
		switch {
		case payload.UserID != "" && payload.TeamID != "":
			writeError(w, http.StatusBadRequest, "assign either a user or a team, not both")
			return
		case payload.UserID != "":
			assigned, err = r.issue.AssignUser(req.Context(), sel, found.ID, payload.UserID)
		case payload.TeamID != "":
			assigned, err = r.issue.AssignTeam(req.Context(), sel, found.ID, payload.TeamID)
		default:
			writeError(w, http.StatusBadRequest, "user_id or team_id is required")
			return
		}
		if err != nil {
			writeFault(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, viewAssignment(*assigned))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleIssueHistory(w http.ResponseWriter, req *http.Request, sel domain.Selection, found *domain.Issue) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	history, err := r.issue.History(req.Context(), sel, found.ID)
	if err != nil {
		writeFault(w, err)
		return
	}
	views := make([]historyView, 0)
	for entry, err := range history {
		if err != nil {
			writeFault(w, err)
			return
		}
		views = append(views, viewHistory(entry))
	}
	writeJSON(w, http.StatusOK, views)
}

func (r *Router) handleNotifications(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	query := req.URL.Query()
	beforeID, _ := strconv.ParseInt(query.Get("before_id"), 10, 64)
	afterID, _ := strconv.ParseInt(query.Get("after_id"), 10, 64)
	page, err := r.notify.Feed(req.Context(), info.UserID, beforeID, afterID)
	if err != nil {
		writeFault(w, err)
		return
	}
	views := make([]notificationView, 0, len(page.Notifications))
	for _, n := range page.Notifications {
		views = append(views, viewNotification(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": views,
		"lazy_load":     page.LazyLoad,
	})
}

func (r *Router) handleNotificationSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/notifications/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 1 && parts[0] == "count" {
		r.handleNotificationCount(w, req)
		return
	}
	if len(parts) == 2 && parts[1] == "invitation" {
		notificationID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || notificationID <= 0 {
			r.notFound(w)
			return
		}
		r.handleInvitationResponse(w, req, notificationID)
		return
	}
	r.notFound(w)
}

func (r *Router) handleNotificationCount(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	unread, err := r.notify.UnreadCount(req.Context(), info.UserID)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": unread})
}

func (r *Router) handleInvitationResponse(w http.ResponseWriter, req *http.Request, notificationID int64) {
	if req.Method != http.MethodPut {
		r.methodNotAllowed(w)
		return
	}
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	var payload struct {
		Accept bool `json:"accept"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	responded, err := r.member.Respond(req.Context(), info.UserID, notificationID, payload.Accept)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewMember(*responded))
}

func (r *Router) handleNotificationsWS(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(info.UserID, client)
	go func() {
		defer func() {
			r.hub.Unregister(info.UserID, client)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// selection resolves the authenticated caller's membership in the routed
// project. Every project-scoped handler goes through here.
func (r *Router) selection(w http.ResponseWriter, req *http.Request, projectID string) (domain.Selection, bool) {
	info, ok := r.mustAuthInfo(w, req)
	if !ok {
		return domain.Selection{}, false
	}
	sel, err := r.project.Resolve(req.Context(), info.UserID, projectID)
	if err != nil {
		writeFault(w, err)
		return domain.Selection{}, false
	}
	return sel, true
}

func (r *Router) issueByNumber(w http.ResponseWriter, req *http.Request, sel domain.Selection, rawNumber string) (*domain.Issue, bool) {
	number, err := strconv.Atoi(rawNumber)
	if err != nil || number <= 0 {
		r.notFound(w)
		return nil, false
	}
	found, err := r.issue.Get(req.Context(), sel, number)
	if err != nil {
		writeFault(w, err)
		return nil, false
	}
	return found, true
}

func (r *Router) mustAuthInfo(w http.ResponseWriter, req *http.Request) (authInfo, bool) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return authInfo{}, false
	}
	return info, true
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
