package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/repository"
)

// CreateProject inserts the project, its counter and the owner membership in
// one transaction.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project, owner *domain.ProjectMember) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const projectInsert = `INSERT INTO projects (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := tx.Exec(ctx, projectInsert, project.ID, project.Name, project.CreatedAt); err != nil {
		return mapWriteError(err)
	}

	const counterInsert = `INSERT INTO counters (project_id, number) VALUES ($1, 0)`
	if _, err := tx.Exec(ctx, counterInsert, project.ID); err != nil {
		return mapWriteError(err)
	}

	const memberInsert = `INSERT INTO project_members (project_id, user_id, role, accepted, rejected, created_at)
		VALUES ($1, $2, $3, TRUE, FALSE, $4) RETURNING id`
	if err := tx.QueryRow(ctx, memberInsert, project.ID, owner.UserID, owner.Role, owner.CreatedAt).Scan(&owner.ID); err != nil {
		return mapWriteError(err)
	}
	owner.ProjectID = project.ID
	owner.Accepted = true

	return tx.Commit(ctx)
}

// GetProjectByID fetches a project.
func (r *Repository) GetProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	const query = `SELECT id, name, created_at FROM projects WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var p domain.Project
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListProjectsByUser returns projects where the user is an accepted member.
func (r *Repository) ListProjectsByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	const query = `SELECT p.id, p.name, p.created_at
		FROM projects p
		INNER JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1 AND m.accepted = TRUE AND m.rejected = FALSE
		ORDER BY p.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project. Issues reference projects with RESTRICT,
// so a project with issues comes back as ErrRestricted.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	const query = `DELETE FROM projects WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapDeleteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
