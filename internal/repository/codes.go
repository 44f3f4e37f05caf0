package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"tickbol/internal/database"
	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
)

type CodeRepository struct {
	db *database.DB
}

func NewCodeRepository(db *database.DB) *CodeRepository {
	return &CodeRepository{db: db}
}

// Insert relies on the UNIQUE(type, code) constraint for collision
// detection: concurrent callers drawing the same code race on the index, and
// the loser gets ErrConflict to retry with a fresh draw.
func (r *CodeRepository) Insert(ctx context.Context, code *models.VerificationCode) error {
	query := `
		INSERT INTO verification_codes (id, code, type, related_id, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		code.ID,
		code.Code,
		code.Type,
		code.RelatedID,
		code.IsActive,
		code.ExpiresAt,
	).Scan(&code.CreatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("code %s already exists for type %s: %w", code.Code, code.Type, apperrors.ErrConflict)
	}

	return err
}

func (r *CodeRepository) GetByCode(ctx context.Context, codeType, code string) (*models.VerificationCode, error) {
	record := &models.VerificationCode{}
	query := `
		SELECT id, code, type, related_id, is_active, created_at, expires_at
		FROM verification_codes
		WHERE type = $1 AND code = $2`

	err := r.db.QueryRowContext(ctx, query, codeType, code).Scan(
		&record.ID,
		&record.Code,
		&record.Type,
		&record.RelatedID,
		&record.IsActive,
		&record.CreatedAt,
		&record.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return record, err
}

func (r *CodeRepository) Deactivate(ctx context.Context, codeType, code string) error {
	query := `
		UPDATE verification_codes
		SET is_active = false
		WHERE type = $1 AND code = $2`

	_, err := r.db.ExecContext(ctx, query, codeType, code)
	return err
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
