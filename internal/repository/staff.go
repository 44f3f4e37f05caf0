package repository

import (
	"context"
	"database/sql"

	"tickbol/internal/database"
	"tickbol/internal/models"
)

type StaffRepository struct {
	db *database.DB
}

func NewStaffRepository(db *database.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*models.Staff, error) {
	staff := &models.Staff{}
	query := `
		SELECT id, email, password_hash, role, is_active, created_at
		FROM staff
		WHERE email = $1`

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&staff.ID,
		&staff.Email,
		&staff.PasswordHash,
		&staff.Role,
		&staff.IsActive,
		&staff.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return staff, err
}

func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*models.Staff, error) {
	staff := &models.Staff{}
	query := `
		SELECT id, email, password_hash, role, is_active, created_at
		FROM staff
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&staff.ID,
		&staff.Email,
		&staff.PasswordHash,
		&staff.Role,
		&staff.IsActive,
		&staff.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return staff, err
}
