package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseStatus is the lifecycle state of a purchase. Transitions are
// forward-only; cancelled is reachable from any non-terminal state.
type PurchaseStatus string

const (
	PurchasePendingPayment   PurchaseStatus = "pending_payment"
	PurchasePaymentSubmitted PurchaseStatus = "payment_submitted"
	PurchasePaymentVerified  PurchaseStatus = "payment_verified"
	PurchaseCompleted        PurchaseStatus = "completed"
	PurchaseCancelled        PurchaseStatus = "cancelled"
)

// Valid reports whether s is a known purchase status.
func (s PurchaseStatus) Valid() bool {
	switch s {
	case PurchasePendingPayment, PurchasePaymentSubmitted, PurchasePaymentVerified,
		PurchaseCompleted, PurchaseCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s PurchaseStatus) Terminal() bool {
	return s == PurchaseCompleted || s == PurchaseCancelled
}

// rank orders purchase statuses along the forward path. Cancelled is off the
// path and compares above everything.
func (s PurchaseStatus) rank() int {
	switch s {
	case PurchasePendingPayment:
		return 0
	case PurchasePaymentSubmitted:
		return 1
	case PurchasePaymentVerified:
		return 2
	case PurchaseCompleted:
		return 3
	default:
		return 4
	}
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// step or a cancellation of a non-terminal purchase.
func (s PurchaseStatus) CanTransitionTo(next PurchaseStatus) bool {
	if next == PurchaseCancelled {
		return !s.Terminal()
	}
	return next.rank() == s.rank()+1
}

// TicketStatus is the lifecycle state of an admission ticket.
type TicketStatus string

const (
	TicketPending   TicketStatus = "pending"
	TicketValidated TicketStatus = "validated"
	TicketUsed      TicketStatus = "used"
	TicketCancelled TicketStatus = "cancelled"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodQR       = "qr"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCash     = "cash"
	PaymentMethodExternal = "external"
)

// Ticket types.
const (
	TicketTypeCliente = "CLIENTE"
	TicketTypeVIP     = "VIP"
	TicketTypeStaff   = "STAFF"
)

// Verification code scopes.
const (
	CodeTypePurchase = "purchase"
	CodeTypeTicket   = "ticket"
)

// NotificationKind identifies one lifecycle notification per purchase.
type NotificationKind string

const (
	NotifPaymentReceived NotificationKind = "payment_received"
	NotifPaymentVerified NotificationKind = "payment_verified"
	NotifTicketsReady    NotificationKind = "tickets_ready"
)

// Purchase represents one checkout transaction covering one or more sector
// line items. Amounts are in centavos.
type Purchase struct {
	ID                 uuid.UUID      `json:"id" db:"id"`
	EventID            uuid.UUID      `json:"event_id" db:"event_id"`
	EventTitle         string         `json:"event_title" db:"event_title"`
	EventDate          string         `json:"event_date" db:"event_date"`
	EventTime          string         `json:"event_time" db:"event_time"`
	EventLocation      string         `json:"event_location" db:"event_location"`
	BusinessName       string         `json:"business_name" db:"business_name"`
	CustomerName       string         `json:"customer_name" db:"customer_name"`
	CustomerPhone      string         `json:"customer_phone" db:"customer_phone"`
	CustomerEmail      string         `json:"customer_email" db:"customer_email"`
	TotalAmount        int64          `json:"total_amount" db:"total_amount"`
	PaymentMethod      string         `json:"payment_method" db:"payment_method"`
	PaymentProofURL    *string        `json:"payment_proof_url" db:"payment_proof_url"`
	Status             PurchaseStatus `json:"status" db:"status"`
	VerificationCode   string         `json:"verification_code" db:"verification_code"`
	NotifiedReceived   bool           `json:"notified_received" db:"notified_received"`
	NotifiedVerified   bool           `json:"notified_verified" db:"notified_verified"`
	NotifiedTickets    bool           `json:"notified_tickets" db:"notified_tickets"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	PaymentSubmittedAt *time.Time     `json:"payment_submitted_at" db:"payment_submitted_at"`
	PaymentVerifiedAt  *time.Time     `json:"payment_verified_at" db:"payment_verified_at"`
	CompletedAt        *time.Time     `json:"completed_at" db:"completed_at"`

	Items []PurchaseItem `json:"items,omitempty"` // Not from DB, filled separately
}

// Notified reports the dispatch flag for a notification kind.
func (p *Purchase) Notified(kind NotificationKind) bool {
	switch kind {
	case NotifPaymentReceived:
		return p.NotifiedReceived
	case NotifPaymentVerified:
		return p.NotifiedVerified
	case NotifTicketsReady:
		return p.NotifiedTickets
	}
	return false
}

// PurchaseItem is one sector/quantity line inside a purchase. The ticket
// issuer mints exactly one ticket per item.
type PurchaseItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PurchaseID  uuid.UUID `json:"purchase_id" db:"purchase_id"`
	SectorName  string    `json:"sector_name" db:"sector_name"`
	SectorColor string    `json:"sector_color" db:"sector_color"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   int64     `json:"unit_price" db:"unit_price"`
	TotalPrice  int64     `json:"total_price" db:"total_price"`
	TicketType  string    `json:"ticket_type" db:"ticket_type"`
}

// Ticket represents one admission unit. Event fields are denormalized for
// display since the event catalog lives outside this service.
type Ticket struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	PurchaseID       uuid.UUID    `json:"purchase_id" db:"purchase_id"`
	ItemID           uuid.UUID    `json:"item_id" db:"item_id"`
	EventID          uuid.UUID    `json:"event_id" db:"event_id"`
	EventTitle       string       `json:"event_title" db:"event_title"`
	EventDate        string       `json:"event_date" db:"event_date"`
	EventTime        string       `json:"event_time" db:"event_time"`
	EventLocation    string       `json:"event_location" db:"event_location"`
	BusinessName     string       `json:"business_name" db:"business_name"`
	SectorName       string       `json:"sector_name" db:"sector_name"`
	SectorColor      string       `json:"sector_color" db:"sector_color"`
	Quantity         int          `json:"quantity" db:"quantity"`
	UnitPrice        int64        `json:"unit_price" db:"unit_price"`
	TotalPrice       int64        `json:"total_price" db:"total_price"`
	TicketType       string       `json:"ticket_type" db:"ticket_type"`
	VerificationCode string       `json:"verification_code" db:"verification_code"`
	QRCode           string       `json:"qr_code" db:"qr_code"`
	Status           TicketStatus `json:"status" db:"status"`
	IsActive         bool         `json:"is_active" db:"is_active"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	ValidatedAt      *time.Time   `json:"validated_at" db:"validated_at"`
	UsedAt           *time.Time   `json:"used_at" db:"used_at"`
}

// VerificationCode is a unique code record scoped to purchases or tickets.
// The code value never changes once assigned.
type VerificationCode struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Code      string     `json:"code" db:"code"`
	Type      string     `json:"type" db:"type"`
	RelatedID uuid.UUID  `json:"related_id" db:"related_id"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt *time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the code has passed its expiry, if it has one.
func (vc *VerificationCode) Expired(now time.Time) bool {
	return vc.ExpiresAt != nil && now.After(*vc.ExpiresAt)
}

// PorteriaValidation is an append-only audit record of one door scan.
type PorteriaValidation struct {
	ID               uuid.UUID `json:"id" db:"id"`
	TicketID         uuid.UUID `json:"ticket_id" db:"ticket_id"`
	VerificationCode string    `json:"verification_code" db:"verification_code"`
	QRCode           string    `json:"qr_code" db:"qr_code"`
	StaffID          int64     `json:"staff_id" db:"staff_id"`
	Location         string    `json:"location" db:"location"`
	ValidatedAt      time.Time `json:"validated_at" db:"validated_at"`
}

// Staff is a back-office or door account.
type Staff struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Staff roles.
const (
	RoleAdmin    = "admin"
	RolePorteria = "porteria"
)
