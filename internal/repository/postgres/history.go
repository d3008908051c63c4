package postgres

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vitorwdson/hercules/internal/domain"
)

// insertHistory appends one audit entry inside the caller's transaction,
// storing the discriminator plus the single reference matching the payload.
func insertHistory(ctx context.Context, tx pgx.Tx, h *domain.History) error {
	var (
		messageID    *int64
		assignmentID *int64
		status       *domain.Status
		title        *string
	)
	switch p := h.Payload.(type) {
	case domain.MessagePayload:
		messageID = &p.Message.ID
	case domain.AssignmentPayload:
		assignmentID = &p.Assignment.ID
	case domain.StatusPayload:
		status = &p.Status
	case domain.TitlePayload:
		title = &p.Title
	default:
		return fmt.Errorf("unsupported history payload %T", h.Payload)
	}

	var createdAt *time.Time
	if !h.CreatedAt.IsZero() {
		createdAt = &h.CreatedAt
	}

	const query = `INSERT INTO issue_history (issue_id, actor_id, history_type, message_id, assignment_id, status, title, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
		RETURNING id, created_at`
	if err := tx.QueryRow(ctx, query, h.IssueID, h.ActorID, h.Payload.HistoryType(), messageID, assignmentID, status, title, createdAt).Scan(&h.ID, &h.CreatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// IssueHistory streams an issue's audit trail oldest first, resolving each
// row to its concrete payload. The sequence is restartable: every range runs
// a fresh query.
func (r *Repository) IssueHistory(ctx context.Context, issueID string) iter.Seq2[domain.History, error] {
	const query = `SELECT h.id, h.issue_id, h.actor_id, h.history_type, h.status, h.title, h.created_at,
			m.id, m.issue_id, m.created_by, m.body, m.created_at,
			a.id, a.issue_id, a.assignment_type, a.user_id, a.team_id, a.created_at
		FROM issue_history h
		LEFT JOIN messages m ON m.id = h.message_id
		LEFT JOIN assignments a ON a.id = h.assignment_id
		WHERE h.issue_id = $1
		ORDER BY h.created_at ASC, h.id ASC`

	return func(yield func(domain.History, error) bool) {
		rows, err := r.pool.Query(ctx, query, issueID)
		if err != nil {
			yield(domain.History{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			h, err := scanHistory(rows)
			if err != nil {
				yield(domain.History{}, err)
				return
			}
			if !yield(h, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.History{}, err)
		}
	}
}

func scanHistory(rows pgx.Rows) (domain.History, error) {
	var (
		h        domain.History
		htype    domain.HistoryType
		status   *domain.Status
		title    *string
		msgID    *int64
		msgIssue *string
		msgBy    *string
		msgBody  []byte
		msgAt    *time.Time
		asgID    *int64
		asgIssue *string
		asgType  *domain.AssignmentType
		asgUser  *string
		asgTeam  *string
		asgAt    *time.Time
	)
	if err := rows.Scan(
		&h.ID, &h.IssueID, &h.ActorID, &htype, &status, &title, &h.CreatedAt,
		&msgID, &msgIssue, &msgBy, &msgBody, &msgAt,
		&asgID, &asgIssue, &asgType, &asgUser, &asgTeam, &asgAt,
	); err != nil {
		return domain.History{}, err
	}

	switch htype {
	case domain.HistoryMessage:
		if msgID == nil {
			return domain.History{}, fmt.Errorf("history %d: message payload missing", h.ID)
		}
		h.Payload = domain.MessagePayload{Message: domain.Message{
			ID:        *msgID,
			IssueID:   *msgIssue,
			CreatedBy: *msgBy,
			Body:      msgBody,
			CreatedAt: *msgAt,
		}}
	case domain.HistoryAssignment:
		if asgID == nil {
			return domain.History{}, fmt.Errorf("history %d: assignment payload missing", h.ID)
		}
		h.Payload = domain.AssignmentPayload{Assignment: domain.Assignment{
			ID:        *asgID,
			IssueID:   *asgIssue,
			Type:      *asgType,
			UserID:    asgUser,
			TeamID:    asgTeam,
			CreatedAt: *asgAt,
		}}
	case domain.HistoryStatus:
		if status == nil {
			return domain.History{}, fmt.Errorf("history %d: status payload missing", h.ID)
		}
		h.Payload = domain.StatusPayload{Status: *status}
	case domain.HistoryTitle:
		if title == nil {
			return domain.History{}, fmt.Errorf("history %d: title payload missing", h.ID)
		}
		h.Payload = domain.TitlePayload{Title: *title}
	default:
		return domain.History{}, fmt.Errorf("history %d: unknown type %d", h.ID, htype)
	}
	return h, nil
}
