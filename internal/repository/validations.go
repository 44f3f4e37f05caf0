package repository

import (
	"context"

	"github.com/google/uuid"

	"tickbol/internal/database"
	"tickbol/internal/models"
)

type ValidationRepository struct {
	db *database.DB
}

func NewValidationRepository(db *database.DB) *ValidationRepository {
	return &ValidationRepository{db: db}
}

// Append writes one audit row. The table is append-only; nothing in the
// service updates or deletes validations.
func (r *ValidationRepository) Append(ctx context.Context, validation *models.PorteriaValidation) error {
	query := `
		INSERT INTO porteria_validations (id, ticket_id, verification_code, qr_code, staff_id, location, validated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		validation.ID,
		validation.TicketID,
		validation.VerificationCode,
		validation.QRCode,
		validation.StaffID,
		validation.Location,
		validation.ValidatedAt,
	)

	return err
}

func (r *ValidationRepository) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.PorteriaValidation, error) {
	query := `
		SELECT id, ticket_id, verification_code, qr_code, staff_id, location, validated_at
		FROM porteria_validations
		WHERE ticket_id = $1
		ORDER BY validated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var validations []models.PorteriaValidation
	for rows.Next() {
		var v models.PorteriaValidation
		err := rows.Scan(
			&v.ID,
			&v.TicketID,
			&v.VerificationCode,
			&v.QRCode,
			&v.StaffID,
			&v.Location,
			&v.ValidatedAt,
		)
		if err != nil {
			return nil, err
		}
		validations = append(validations, v)
	}

	return validations, rows.Err()
}
