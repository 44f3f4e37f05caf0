package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tickbol/internal/database"
	"tickbol/internal/models"
)

// The lifecycle core never hard-codes its storage: it receives these
// capability interfaces at construction time. Two implementations exist, the
// Postgres one for production and an in-memory one for tests. Every status
// change is a single-row conditional update reported through the returned
// bool so callers can detect lost races instead of racing read-then-write.

type PurchaseStore interface {
	Create(ctx context.Context, purchase *models.Purchase, items []models.PurchaseItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	GetItems(ctx context.Context, purchaseID uuid.UUID) ([]models.PurchaseItem, error)
	List(ctx context.Context, status *models.PurchaseStatus) ([]models.Purchase, error)
	// TransitionStatus updates status from->to and stamps the timestamp
	// column belonging to the target status. Returns false when the row was
	// not in the expected from status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.PurchaseStatus, at time.Time) (bool, error)
	SetPaymentProof(ctx context.Context, id uuid.UUID, proofURL string) error
	GetStalePending(ctx context.Context, before time.Time) ([]models.Purchase, error)
	// MarkNotified flips a notification flag. Returns false when the flag
	// was already set, which callers treat as an idempotent no-op.
	MarkNotified(ctx context.Context, id uuid.UUID, kind models.NotificationKind) (bool, error)
}

type TicketStore interface {
	CreateBatch(ctx context.Context, tickets []models.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	GetByPurchaseID(ctx context.Context, purchaseID uuid.UUID) ([]models.Ticket, error)
	GetByCode(ctx context.Context, code string) (*models.Ticket, error)
	GetByQRCode(ctx context.Context, qrCode string) (*models.Ticket, error)
	// TransitionStatus is the door validator's compare-and-swap: status
	// moves from->to only if the row still holds from.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.TicketStatus, at time.Time) (bool, error)
	// CancelByPurchase cancels every non-terminal ticket of a purchase and
	// returns how many rows changed.
	CancelByPurchase(ctx context.Context, purchaseID uuid.UUID) (int64, error)
}

type CodeStore interface {
	// Insert persists a code record; returns errors.ErrConflict when the
	// (type, code) pair already exists.
	Insert(ctx context.Context, code *models.VerificationCode) error
	GetByCode(ctx context.Context, codeType, code string) (*models.VerificationCode, error)
	// Deactivate retires a code so it no longer validates. Missing codes
	// are a no-op.
	Deactivate(ctx context.Context, codeType, code string) error
}

type ValidationStore interface {
	Append(ctx context.Context, validation *models.PorteriaValidation) error
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.PorteriaValidation, error)
}

type StaffStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Staff, error)
	GetByID(ctx context.Context, id int64) (*models.Staff, error)
}

type Repositories struct {
	Purchases   PurchaseStore
	Tickets     TicketStore
	Codes       CodeStore
	Validations ValidationStore
	Staff       StaffStore
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Purchases:   NewPurchaseRepository(db),
		Tickets:     NewTicketRepository(db),
		Codes:       NewCodeRepository(db),
		Validations: NewValidationRepository(db),
		Staff:       NewStaffRepository(db),
	}
}
