package postgres

import (
	"context"
	"strconv"

	"github.com/vitorwdson/hercules/internal/domain"
)

// CountUnread returns the number of unread notifications for a user.
func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(1) FROM notifications WHERE user_id = $1 AND read = FALSE`
	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListNotifications returns newest-first pages of the user's feed, keyed on
// the bigserial id as cursor. A non-positive limit returns every matching row.
func (r *Repository) ListNotifications(ctx context.Context, userID string, beforeID, afterID int64, limit int) ([]domain.Notification, error) {
	query := `SELECT id, user_id, notification_type, read, member_id, team_member_id, assignment_id, created_at
		FROM notifications WHERE user_id = $1`
	args := []any{userID}

	switch {
	case beforeID > 0:
		args = append(args, beforeID)
		query += ` AND id < $2`
	case afterID > 0:
		args = append(args, afterID)
		query += ` AND id > $2`
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Read, &n.MemberID, &n.TeamMemberID, &n.AssignmentID, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// MarkReadThrough marks every notification with id <= throughID as read.
func (r *Repository) MarkReadThrough(ctx context.Context, userID string, throughID int64) error {
	const query = `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND id <= $2 AND read = FALSE`
	_, err := r.pool.Exec(ctx, query, userID, throughID)
	return err
}
