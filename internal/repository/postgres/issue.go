package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/repository"
)

const issueColumns = `id, project_id, number, status, title, created_by, due_date, created_at`

func scanIssue(row pgx.Row) (*domain.Issue, error) {
	var i domain.Issue
	if err := row.Scan(&i.ID, &i.ProjectID, &i.Number, &i.Status, &i.Title, &i.CreatedBy, &i.DueDate, &i.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &i, nil
}

// CreateIssue reserves the next project number and inserts the issue, its
// opening message and the message-history entry in one transaction. Bumping
// the counter with a single UPDATE serializes concurrent creators on the
// counter row, so the (project, number) constraint only fires if the counter
// was tampered with out of band.
func (r *Repository) CreateIssue(ctx context.Context, issue *domain.Issue, message *domain.Message) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const counterBump = `UPDATE counters SET number = number + 1 WHERE project_id = $1 RETURNING number`
	if err := tx.QueryRow(ctx, counterBump, issue.ProjectID).Scan(&issue.Number); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}

	const issueInsert = `INSERT INTO issues (id, project_id, number, status, title, created_by, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.Exec(ctx, issueInsert, issue.ID, issue.ProjectID, issue.Number, issue.Status, issue.Title, issue.CreatedBy, issue.DueDate, issue.CreatedAt); err != nil {
		return mapWriteError(err)
	}

	message.IssueID = issue.ID
	if err := insertMessage(ctx, tx, message); err != nil {
		return err
	}
	if err := insertHistory(ctx, tx, &domain.History{
		IssueID:   issue.ID,
		ActorID:   issue.CreatedBy,
		Payload:   domain.MessagePayload{Message: *message},
		CreatedAt: message.CreatedAt,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetIssueByID fetches an issue.
func (r *Repository) GetIssueByID(ctx context.Context, id string) (*domain.Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues WHERE id = $1`
	return scanIssue(r.pool.QueryRow(ctx, query, id))
}

// GetIssueByNumber fetches an issue by its project-scoped number.
func (r *Repository) GetIssueByNumber(ctx context.Context, projectID string, number int) (*domain.Issue, error) {
	const query = `SELECT ` + issueColumns + ` FROM issues WHERE project_id = $1 AND number = $2`
	return scanIssue(r.pool.QueryRow(ctx, query, projectID, number))
}

// ListIssues returns newest-first pages of a project's issues.
func (r *Repository) ListIssues(ctx context.Context, q repository.IssueQuery) ([]domain.Issue, error) {
	query := `SELECT DISTINCT i.id, i.project_id, i.number, i.status, i.title, i.created_by, i.due_date, i.created_at
		FROM issues i`
	args := []any{q.ProjectID}

	if q.AssignedUserID != "" {
		query += `
		INNER JOIN assignments a ON a.issue_id = i.id
		LEFT JOIN team_members tm ON tm.team_id = a.team_id
		LEFT JOIN project_members m ON m.id = tm.member_id`
	}
	query += `
		WHERE i.project_id = $1`
	if q.AssignedUserID != "" {
		args = append(args, q.AssignedUserID)
		query += `
		AND (a.user_id = $2 OR (m.user_id = $2 AND m.accepted = TRUE AND m.rejected = FALSE))`
	}
	if q.Status != nil {
		args = append(args, *q.Status)
		query += `
		AND i.status = $` + strconv.Itoa(len(args))
	}
	args = append(args, q.Limit, q.Offset)
	query += `
		ORDER BY i.created_at DESC, i.number DESC
		LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	issues := make([]domain.Issue, 0)
	for rows.Next() {
		var i domain.Issue
		if err := rows.Scan(&i.ID, &i.ProjectID, &i.Number, &i.Status, &i.Title, &i.CreatedBy, &i.DueDate, &i.CreatedAt); err != nil {
			return nil, err
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// RenameIssue updates the title and appends the title-history entry.
func (r *Repository) RenameIssue(ctx context.Context, issueID, actorID, title string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const update = `UPDATE issues SET title = $2 WHERE id = $1`
	tag, err := tx.Exec(ctx, update, issueID, title)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if err := insertHistory(ctx, tx, &domain.History{
		IssueID: issueID,
		ActorID: actorID,
		Payload: domain.TitlePayload{Title: title},
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AddComment inserts the message plus history, and when newStatus is set also
// applies the transition with its own history entry, atomically.
func (r *Repository) AddComment(ctx context.Context, message *domain.Message, newStatus *domain.Status) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertMessage(ctx, tx, message); err != nil {
		return err
	}
	if err := insertHistory(ctx, tx, &domain.History{
		IssueID:   message.IssueID,
		ActorID:   message.CreatedBy,
		Payload:   domain.MessagePayload{Message: *message},
		CreatedAt: message.CreatedAt,
	}); err != nil {
		return err
	}

	if newStatus != nil {
		const update = `UPDATE issues SET status = $2 WHERE id = $1`
		tag, err := tx.Exec(ctx, update, message.IssueID, *newStatus)
		if err != nil {
			return mapWriteError(err)
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		if err := insertHistory(ctx, tx, &domain.History{
			IssueID:   message.IssueID,
			ActorID:   message.CreatedBy,
			Payload:   domain.StatusPayload{Status: *newStatus},
			CreatedAt: message.CreatedAt,
		}); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// CreateAssignment inserts the assignment, its history entry and the fan-out
// notifications in one transaction.
func (r *Repository) CreateAssignment(ctx context.Context, a *domain.Assignment, actorID string, notes []domain.Notification) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insert = `INSERT INTO assignments (issue_id, assignment_type, user_id, team_id, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := tx.QueryRow(ctx, insert, a.IssueID, a.Type, a.UserID, a.TeamID, a.CreatedAt).Scan(&a.ID); err != nil {
		return mapWriteError(err)
	}

	if err := insertHistory(ctx, tx, &domain.History{
		IssueID:   a.IssueID,
		ActorID:   actorID,
		Payload:   domain.AssignmentPayload{Assignment: *a},
		CreatedAt: a.CreatedAt,
	}); err != nil {
		return err
	}

	if len(notes) > 0 {
		const noteInsert = `INSERT INTO notifications (user_id, notification_type, read, assignment_id, created_at)
			VALUES ($1, $2, FALSE, $3, $4)`
		batch := &pgx.Batch{}
		for i := range notes {
			notes[i].AssignmentID = &a.ID
			batch.Queue(noteInsert, notes[i].UserID, notes[i].Type, a.ID, notes[i].CreatedAt)
		}
		br := tx.SendBatch(ctx, batch)
		for range notes {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return mapWriteError(err)
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListAssignments returns an issue's assignments in insertion order.
func (r *Repository) ListAssignments(ctx context.Context, issueID string) ([]domain.Assignment, error) {
	const query = `SELECT id, issue_id, assignment_type, user_id, team_id, created_at
		FROM assignments WHERE issue_id = $1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]domain.Assignment, 0)
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.ID, &a.IssueID, &a.Type, &a.UserID, &a.TeamID, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

func insertMessage(ctx context.Context, tx pgx.Tx, message *domain.Message) error {
	const query = `INSERT INTO messages (issue_id, created_by, body, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`
	if err := tx.QueryRow(ctx, query, message.IssueID, message.CreatedBy, message.Body, message.CreatedAt).Scan(&message.ID); err != nil {
		return mapWriteError(err)
	}
	return nil
}

