package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/repository"
)

const userColumns = `id, username, first_name, last_name, email, password_hash, last_project_id, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.LastProjectID, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, username, first_name, last_name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.CreatedAt)
	return mapWriteError(err)
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByUsername fetches a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// escapeLike neutralizes LIKE metacharacters in a user-supplied filter so the
// pattern matches them literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// SearchUsers returns invite candidates: users whose full name or username
// starts with filter, excluding anyone already holding a non-rejected
// membership of the project.
func (r *Repository) SearchUsers(ctx context.Context, filter, excludeProjectID string, limit int) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users
		WHERE (trim(first_name || ' ' || last_name) ILIKE $1 || '%' OR username ILIKE $1 || '%')
		AND id NOT IN (
			SELECT user_id FROM project_members WHERE project_id = $2 AND rejected = FALSE
		)
		ORDER BY username
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, escapeLike(filter), excludeProjectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.LastProjectID, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetLastProject records the project a user last selected.
func (r *Repository) SetLastProject(ctx context.Context, userID string, projectID *string) error {
	const query = `UPDATE users SET last_project_id = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, userID, projectID)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
