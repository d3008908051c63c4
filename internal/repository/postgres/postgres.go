// Package postgres implements the repository interfaces on PostgreSQL. The
// uniqueness rules of the data model exist as real database constraints;
// violation codes are translated to repository sentinels so races lost at the
// database still surface as the expected outcome.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitorwdson/hercules/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository         = (*Repository)(nil)
	_ repository.ProjectRepository      = (*Repository)(nil)
	_ repository.MemberRepository       = (*Repository)(nil)
	_ repository.TeamRepository         = (*Repository)(nil)
	_ repository.IssueRepository        = (*Repository)(nil)
	_ repository.NotificationRepository = (*Repository)(nil)
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgInvalidTextRep      = "22P02"
)

// mapWriteError translates constraint violations raised by inserts and
// updates into repository sentinels.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return repository.ErrConflict
		case pgForeignKeyViolation:
			return repository.ErrNotFound
		case pgCheckViolation, pgInvalidTextRep:
			return repository.ErrInvalidArgument
		}
	}
	return err
}

// mapDeleteError translates constraint violations raised by deletes. A
// foreign key here means the row is still referenced, which is a legitimate
// refusal rather than a missing entity.
func mapDeleteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return repository.ErrRestricted
	}
	return err
}
