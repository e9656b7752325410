package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/staff-auth/internal/domain"
)

// SessionRepository handles persistence for login sessions. Sessions are
// never deleted; expiry and locking are logical states on the row.
type SessionRepository interface {
	Create(ctx context.Context, staffID uint64, lifetimeSeconds int64) (*domain.Session, error)
	GetByID(ctx context.Context, id uint64) (*domain.Session, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	IsValid(ctx context.Context, token string) (bool, error)
	Expire(ctx context.Context, id uint64) (bool, error)
	Lock(ctx context.Context, id uint64) (bool, error)
}

type sessionRepository struct {
	db DB
}

// NewSessionRepository instantiates the repository.
func NewSessionRepository(db DB) SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, staff_id, token, created_at, updated_at, expire_at, locked`

// epochNow keeps every timestamp on the store's clock, so validity checks
// never race an application clock that drifted.
const epochNow = `floor(extract(epoch from now()))::bigint`

// Create inserts a fresh session with a store-generated opaque token and
// re-reads the row by its generated id. The token column carries a unique
// constraint; two concurrent creations with colliding tokens cannot both
// land.
func (r *sessionRepository) Create(ctx context.Context, staffID uint64, lifetimeSeconds int64) (*domain.Session, error) {
	const query = `
        INSERT INTO staff_sessions (staff_id, token, created_at, updated_at, expire_at, locked)
        VALUES ($1, $2, ` + epochNow + `, ` + epochNow + `, ` + epochNow + ` + $3, FALSE)
        RETURNING id`

	var id uint64
	if err := r.db.QueryRow(ctx, query, staffID, uuid.NewString(), lifetimeSeconds).Scan(&id); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *sessionRepository) GetByID(ctx context.Context, id uint64) (*domain.Session, error) {
	const query = `
        SELECT ` + sessionColumns + `
        FROM staff_sessions WHERE id=$1`

	return scanSession(r.db.QueryRow(ctx, query, id))
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	const query = `
        SELECT ` + sessionColumns + `
        FROM staff_sessions WHERE token=$1`

	return scanSession(r.db.QueryRow(ctx, query, token))
}

// IsValid reports whether a usable session exists for the token. Existence,
// expiry and lock are checked in one query against the store clock, so a
// concurrent lock or expiry cannot slip between separate checks.
func (r *sessionRepository) IsValid(ctx context.Context, token string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM staff_sessions
            WHERE token=$1 AND expire_at > ` + epochNow + ` AND NOT locked
        )`

	var valid bool
	if err := r.db.QueryRow(ctx, query, token).Scan(&valid); err != nil {
		return false, err
	}
	return valid, nil
}

// Expire cuts the session's remaining lifetime to zero. Durable and
// immediately visible to IsValid. Returns false when no such session exists.
func (r *sessionRepository) Expire(ctx context.Context, id uint64) (bool, error) {
	const query = `
        UPDATE staff_sessions
        SET expire_at = ` + epochNow + `, updated_at = ` + epochNow + `
        WHERE id=$1`

	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// Lock revokes the session outright, regardless of remaining lifetime. A
// locked session never becomes valid again.
func (r *sessionRepository) Lock(ctx context.Context, id uint64) (bool, error) {
	const query = `
        UPDATE staff_sessions
        SET locked = TRUE, updated_at = ` + epochNow + `
        WHERE id=$1`

	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	if err := row.Scan(
		&session.ID,
		&session.StaffID,
		&session.Token,
		&session.CreatedAt,
		&session.UpdatedAt,
		&session.ExpireAt,
		&session.Locked,
	); err != nil {
		return nil, err
	}
	return &session, nil
}
