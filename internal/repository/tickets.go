package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tickbol/internal/database"
	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
)

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `id, purchase_id, item_id, event_id, event_title, event_date, event_time,
	event_location, business_name, sector_name, sector_color, quantity, unit_price,
	total_price, ticket_type, verification_code, qr_code, status, is_active,
	created_at, validated_at, used_at`

func scanTicket(row interface{ Scan(...interface{}) error }, t *models.Ticket) error {
	return row.Scan(
		&t.ID,
		&t.PurchaseID,
		&t.ItemID,
		&t.EventID,
		&t.EventTitle,
		&t.EventDate,
		&t.EventTime,
		&t.EventLocation,
		&t.BusinessName,
		&t.SectorName,
		&t.SectorColor,
		&t.Quantity,
		&t.UnitPrice,
		&t.TotalPrice,
		&t.TicketType,
		&t.VerificationCode,
		&t.QRCode,
		&t.Status,
		&t.IsActive,
		&t.CreatedAt,
		&t.ValidatedAt,
		&t.UsedAt,
	)
}

// CreateBatch inserts all tickets of one issue call in a single transaction.
// The UNIQUE(purchase_id, item_id) constraint turns a concurrent double
// issue into ErrConflict instead of duplicate tickets.
func (r *TicketRepository) CreateBatch(ctx context.Context, tickets []models.Ticket) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tickets (id, purchase_id, item_id, event_id, event_title, event_date,
			event_time, event_location, business_name, sector_name, sector_color,
			quantity, unit_price, total_price, ticket_type, verification_code, qr_code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at`

	for i := range tickets {
		t := &tickets[i]
		err := tx.QueryRowContext(ctx, query,
			t.ID, t.PurchaseID, t.ItemID, t.EventID, t.EventTitle, t.EventDate,
			t.EventTime, t.EventLocation, t.BusinessName, t.SectorName, t.SectorColor,
			t.Quantity, t.UnitPrice, t.TotalPrice, t.TicketType, t.VerificationCode,
			t.QRCode, t.Status,
		).Scan(&t.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("tickets already issued for purchase %s: %w", t.PurchaseID, apperrors.ErrConflict)
			}
			return err
		}
	}

	return tx.Commit()
}

func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	err := scanTicket(r.db.QueryRowContext(ctx, query, id), ticket)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ticket, err
}

func (r *TicketRepository) GetByPurchaseID(ctx context.Context, purchaseID uuid.UUID) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE purchase_id = $1 ORDER BY sector_name`

	rows, err := r.db.QueryContext(ctx, query, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

func (r *TicketRepository) GetByCode(ctx context.Context, code string) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE verification_code = $1`

	err := scanTicket(r.db.QueryRowContext(ctx, query, code), ticket)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ticket, err
}

func (r *TicketRepository) GetByQRCode(ctx context.Context, qrCode string) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE qr_code = $1`

	err := scanTicket(r.db.QueryRowContext(ctx, query, qrCode), ticket)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ticket, err
}

// TransitionStatus is the single-row compare-and-swap behind door
// validation. Two scanners racing on the same ticket see exactly one
// affected row between them.
func (r *TicketRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.TicketStatus, at time.Time) (bool, error) {
	var stampColumn string
	switch to {
	case models.TicketValidated:
		stampColumn = "validated_at"
	case models.TicketUsed:
		stampColumn = "used_at"
	}

	query := `UPDATE tickets SET status = $1 WHERE id = $2 AND status = $3`
	args := []interface{}{to, id, from}
	if stampColumn != "" {
		query = fmt.Sprintf(`UPDATE tickets SET status = $1, %s = $4 WHERE id = $2 AND status = $3`, stampColumn)
		args = append(args, at)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (r *TicketRepository) CancelByPurchase(ctx context.Context, purchaseID uuid.UUID) (int64, error) {
	query := `
		UPDATE tickets SET status = 'cancelled'
		WHERE purchase_id = $1 AND status IN ('pending', 'validated')`

	result, err := r.db.ExecContext(ctx, query, purchaseID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
