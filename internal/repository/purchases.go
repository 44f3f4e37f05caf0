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

type PurchaseRepository struct {
	db *database.DB
}

func NewPurchaseRepository(db *database.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

const purchaseColumns = `id, event_id, event_title, event_date, event_time, event_location,
	business_name, customer_name, customer_phone, customer_email, total_amount,
	payment_method, payment_proof_url, status, verification_code,
	notified_received, notified_verified, notified_tickets,
	created_at, payment_submitted_at, payment_verified_at, completed_at`

func scanPurchase(row interface{ Scan(...interface{}) error }, p *models.Purchase) error {
	return row.Scan(
		&p.ID,
		&p.EventID,
		&p.EventTitle,
		&p.EventDate,
		&p.EventTime,
		&p.EventLocation,
		&p.BusinessName,
		&p.CustomerName,
		&p.CustomerPhone,
		&p.CustomerEmail,
		&p.TotalAmount,
		&p.PaymentMethod,
		&p.PaymentProofURL,
		&p.Status,
		&p.VerificationCode,
		&p.NotifiedReceived,
		&p.NotifiedVerified,
		&p.NotifiedTickets,
		&p.CreatedAt,
		&p.PaymentSubmittedAt,
		&p.PaymentVerifiedAt,
		&p.CompletedAt,
	)
}

func (r *PurchaseRepository) Create(ctx context.Context, purchase *models.Purchase, items []models.PurchaseItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO purchases (id, event_id, event_title, event_date, event_time, event_location,
			business_name, customer_name, customer_phone, customer_email, total_amount,
			payment_method, status, verification_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at`

	err = tx.QueryRowContext(ctx, query,
		purchase.ID,
		purchase.EventID,
		purchase.EventTitle,
		purchase.EventDate,
		purchase.EventTime,
		purchase.EventLocation,
		purchase.BusinessName,
		purchase.CustomerName,
		purchase.CustomerPhone,
		purchase.CustomerEmail,
		purchase.TotalAmount,
		purchase.PaymentMethod,
		purchase.Status,
		purchase.VerificationCode,
	).Scan(&purchase.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("purchase verification code taken: %w", apperrors.ErrConflict)
		}
		return err
	}

	itemQuery := `
		INSERT INTO purchase_items (id, purchase_id, sector_name, sector_color, quantity, unit_price, total_price, ticket_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for i := range items {
		items[i].PurchaseID = purchase.ID
		_, err := tx.ExecContext(ctx, itemQuery,
			items[i].ID,
			items[i].PurchaseID,
			items[i].SectorName,
			items[i].SectorColor,
			items[i].Quantity,
			items[i].UnitPrice,
			items[i].TotalPrice,
			items[i].TicketType,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PurchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	purchase := &models.Purchase{}
	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`

	err := scanPurchase(r.db.QueryRowContext(ctx, query, id), purchase)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return purchase, err
}

func (r *PurchaseRepository) GetItems(ctx context.Context, purchaseID uuid.UUID) ([]models.PurchaseItem, error) {
	var items []models.PurchaseItem
	query := `
		SELECT id, purchase_id, sector_name, sector_color, quantity, unit_price, total_price, ticket_type
		FROM purchase_items
		WHERE purchase_id = $1
		ORDER BY sector_name`

	rows, err := r.db.QueryContext(ctx, query, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item models.PurchaseItem
		err := rows.Scan(
			&item.ID,
			&item.PurchaseID,
			&item.SectorName,
			&item.SectorColor,
			&item.Quantity,
			&item.UnitPrice,
			&item.TotalPrice,
			&item.TicketType,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *PurchaseRepository) List(ctx context.Context, status *models.PurchaseStatus) ([]models.Purchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM purchases`
	var args []interface{}

	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []models.Purchase
	for rows.Next() {
		var purchase models.Purchase
		if err := scanPurchase(rows, &purchase); err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}

	return purchases, rows.Err()
}

// TransitionStatus performs the ledger's compare-and-swap. The timestamp
// column for the target status is written in the same statement so a
// transition and its stamp can never diverge.
func (r *PurchaseRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.PurchaseStatus, at time.Time) (bool, error) {
	var stampColumn string
	switch to {
	case models.PurchasePaymentSubmitted:
		stampColumn = "payment_submitted_at"
	case models.PurchasePaymentVerified:
		stampColumn = "payment_verified_at"
	case models.PurchaseCompleted:
		stampColumn = "completed_at"
	}

	query := `UPDATE purchases SET status = $1 WHERE id = $2 AND status = $3`
	args := []interface{}{to, id, from}
	if stampColumn != "" {
		query = fmt.Sprintf(`UPDATE purchases SET status = $1, %s = $4 WHERE id = $2 AND status = $3`, stampColumn)
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

func (r *PurchaseRepository) SetPaymentProof(ctx context.Context, id uuid.UUID, proofURL string) error {
	query := `UPDATE purchases SET payment_proof_url = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, proofURL, id)
	return err
}

func (r *PurchaseRepository) GetStalePending(ctx context.Context, before time.Time) ([]models.Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE status = 'pending_payment' AND created_at < $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []models.Purchase
	for rows.Next() {
		var purchase models.Purchase
		if err := scanPurchase(rows, &purchase); err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}

	return purchases, rows.Err()
}

func (r *PurchaseRepository) MarkNotified(ctx context.Context, id uuid.UUID, kind models.NotificationKind) (bool, error) {
	column, err := notificationColumn(kind)
	if err != nil {
		return false, err
	}

	// Conditional on the flag being unset: marking twice affects zero rows.
	query := fmt.Sprintf(`UPDATE purchases SET %s = TRUE WHERE id = $1 AND %s = FALSE`, column, column)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func notificationColumn(kind models.NotificationKind) (string, error) {
	switch kind {
	case models.NotifPaymentReceived:
		return "notified_received", nil
	case models.NotifPaymentVerified:
		return "notified_verified", nil
	case models.NotifTicketsReady:
		return "notified_tickets", nil
	}
	return "", fmt.Errorf("unknown notification kind %q", kind)
}
