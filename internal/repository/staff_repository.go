package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/staff-auth/internal/domain"
)

// StaffRepository handles persistence for staff accounts.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffUser) (*domain.StaffUser, error)
	GetByID(ctx context.Context, id uint64) (*domain.StaffUser, error)
	FindActiveByLogin(ctx context.Context, login string) (*domain.StaffUser, error)
	ExistsByLogin(ctx context.Context, login string) (bool, error)
}

type staffRepository struct {
	db DB
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(db DB) StaffRepository {
	return &staffRepository{db: db}
}

const staffColumns = `id, project_id, email, login, password, salt, active, deleted, created_at, updated_at`

// Create inserts the account and re-reads the stored row by its generated
// id, so the caller sees exactly what was persisted. Login uniqueness among
// non-deleted rows is enforced by a partial unique index.
func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffUser) (*domain.StaffUser, error) {
	const query = `
        INSERT INTO staff_users (project_id, email, login, password, salt, active, deleted)
        VALUES ($1,$2,$3,$4,$5,TRUE,FALSE)
        RETURNING id`

	var id uint64
	if err := r.db.QueryRow(ctx, query,
		staff.ProjectID,
		staff.Email,
		staff.Login,
		staff.Password,
		staff.Salt,
	).Scan(&id); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *staffRepository) GetByID(ctx context.Context, id uint64) (*domain.StaffUser, error) {
	const query = `
        SELECT ` + staffColumns + `
        FROM staff_users WHERE id=$1`

	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// FindActiveByLogin returns the single account allowed to authenticate under
// this login. Inactive and soft-deleted rows are invisible here.
func (r *staffRepository) FindActiveByLogin(ctx context.Context, login string) (*domain.StaffUser, error) {
	const query = `
        SELECT ` + staffColumns + `
        FROM staff_users WHERE login=$1 AND active AND NOT deleted`

	return r.scanOne(r.db.QueryRow(ctx, query, login))
}

// ExistsByLogin checks registration conflicts on the same key the
// authentication lookup uses: login among non-deleted rows.
func (r *staffRepository) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM staff_users WHERE login=$1 AND NOT deleted)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, login).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *staffRepository) scanOne(row pgx.Row) (*domain.StaffUser, error) {
	var staff domain.StaffUser
	if err := row.Scan(
		&staff.ID,
		&staff.ProjectID,
		&staff.Email,
		&staff.Login,
		&staff.Password,
		&staff.Salt,
		&staff.Active,
		&staff.Deleted,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}
