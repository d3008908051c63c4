package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/repository"
)

// CreateTeam inserts a team.
func (r *Repository) CreateTeam(ctx context.Context, team *domain.Team) error {
	const query = `INSERT INTO teams (id, project_id, name, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, team.ID, team.ProjectID, team.Name, team.CreatedAt)
	return mapWriteError(err)
}

// GetTeamByID returns a team by identifier.
func (r *Repository) GetTeamByID(ctx context.Context, id string) (*domain.Team, error) {
	const query = `SELECT id, project_id, name, created_at FROM teams WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var t domain.Team
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListTeamsByProject returns the project's teams ordered by name.
func (r *Repository) ListTeamsByProject(ctx context.Context, projectID string) ([]domain.Team, error) {
	const query = `SELECT id, project_id, name, created_at FROM teams WHERE project_id = $1 ORDER BY name ASC, created_at ASC`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// AddTeamMember inserts the membership link and its notification in one
// transaction. The unique (team, member) constraint turns a duplicate into
// ErrConflict.
func (r *Repository) AddTeamMember(ctx context.Context, tm *domain.TeamMember, note *domain.Notification) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const memberInsert = `INSERT INTO team_members (team_id, member_id, created_at) VALUES ($1, $2, $3) RETURNING id`
	if err := tx.QueryRow(ctx, memberInsert, tm.TeamID, tm.MemberID, tm.CreatedAt).Scan(&tm.ID); err != nil {
		return mapWriteError(err)
	}

	note.TeamMemberID = &tm.ID
	const noteInsert = `INSERT INTO notifications (user_id, notification_type, read, team_member_id, created_at)
		VALUES ($1, $2, FALSE, $3, $4) RETURNING id`
	if err := tx.QueryRow(ctx, noteInsert, note.UserID, note.Type, note.TeamMemberID, note.CreatedAt).Scan(&note.ID); err != nil {
		return mapWriteError(err)
	}

	return tx.Commit(ctx)
}

// ListTeamMembers returns the accepted project members on the team.
func (r *Repository) ListTeamMembers(ctx context.Context, teamID string) ([]domain.ProjectMember, error) {
	const query = `SELECT m.id, m.project_id, m.user_id, m.role, m.accepted, m.rejected, m.created_at
		FROM team_members tm
		INNER JOIN project_members m ON m.id = tm.member_id
		WHERE tm.team_id = $1 AND m.accepted = TRUE AND m.rejected = FALSE
		ORDER BY tm.created_at ASC, tm.id ASC`
	rows, err := r.pool.Query(ctx, query, teamID)
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

// DeleteTeam removes a team. Teams referenced by assignments come back as
// ErrRestricted.
func (r *Repository) DeleteTeam(ctx context.Context, id string) error {
	const query = `DELETE FROM teams WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapDeleteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
