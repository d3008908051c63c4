package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/repository"
)

const memberColumns = `id, project_id, user_id, role, accepted, rejected, created_at`

func scanMember(row pgx.Row) (*domain.ProjectMember, error) {
	var m domain.ProjectMember
	if err := row.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.Accepted, &m.Rejected, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetMember returns the membership row for (project, user).
func (r *Repository) GetMember(ctx context.Context, projectID, userID string) (*domain.ProjectMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM project_members WHERE project_id = $1 AND user_id = $2`
	return scanMember(r.pool.QueryRow(ctx, query, projectID, userID))
}

// GetMemberByID returns a membership row by identifier.
func (r *Repository) GetMemberByID(ctx context.Context, id int64) (*domain.ProjectMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM project_members WHERE id = $1`
	return scanMember(r.pool.QueryRow(ctx, query, id))
}

// ListMembers returns all membership rows of a project, invitations included.
func (r *Repository) ListMembers(ctx context.Context, projectID string) ([]domain.ProjectMember, error) {
	const query = `SELECT ` + memberColumns + ` FROM project_members WHERE project_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.ProjectMember, 0)
	for rows.Next() {
		var m domain.ProjectMember
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.Accepted, &m.Rejected, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CreateInvitation inserts the pending membership and its notification in one
// transaction. The unique (project, user) constraint serializes concurrent
// invitations; the loser gets ErrConflict.
func (r *Repository) CreateInvitation(ctx context.Context, member *domain.ProjectMember, note *domain.Notification, supersededID int64) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if supersededID != 0 {
		// Stale invitation notifications cascade with the old row.
		const supersede = `DELETE FROM project_members WHERE id = $1 AND rejected = TRUE`
		if _, err := tx.Exec(ctx, supersede, supersededID); err != nil {
			return mapWriteError(err)
		}
	}

	const memberInsert = `INSERT INTO project_members (project_id, user_id, role, accepted, rejected, created_at)
		VALUES ($1, $2, $3, FALSE, FALSE, $4) RETURNING id`
	if err := tx.QueryRow(ctx, memberInsert, member.ProjectID, member.UserID, member.Role, member.CreatedAt).Scan(&member.ID); err != nil {
		return mapWriteError(err)
	}

	note.MemberID = &member.ID
	const noteInsert = `INSERT INTO notifications (user_id, notification_type, read, member_id, created_at)
		VALUES ($1, $2, FALSE, $3, $4) RETURNING id`
	if err := tx.QueryRow(ctx, noteInsert, note.UserID, note.Type, note.MemberID, note.CreatedAt).Scan(&note.ID); err != nil {
		return mapWriteError(err)
	}

	return tx.Commit(ctx)
}

// RespondInvitation answers the pending invitation behind a notification and
// marks the notification read atomically.
func (r *Repository) RespondInvitation(ctx context.Context, notificationID int64, userID string, accept bool) (*domain.ProjectMember, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const lookup = `SELECT m.id, m.project_id, m.user_id, m.role, m.accepted, m.rejected, m.created_at
		FROM notifications n
		INNER JOIN project_members m ON m.id = n.member_id
		WHERE n.id = $1 AND n.user_id = $2 AND n.notification_type = $3
		AND m.accepted = FALSE AND m.rejected = FALSE
		FOR UPDATE OF m`
	member, err := scanMember(tx.QueryRow(ctx, lookup, notificationID, userID, domain.NotificationProjectInvitation))
	if err != nil {
		return nil, err
	}

	const update = `UPDATE project_members SET accepted = $2, rejected = $3 WHERE id = $1`
	if _, err := tx.Exec(ctx, update, member.ID, accept, !accept); err != nil {
		return nil, mapWriteError(err)
	}
	member.Accepted = accept
	member.Rejected = !accept

	const markRead = `UPDATE notifications SET read = TRUE WHERE id = $1`
	if _, err := tx.Exec(ctx, markRead, notificationID); err != nil {
		return nil, mapWriteError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return member, nil
}
