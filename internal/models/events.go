package models

import (
	"time"

	"github.com/google/uuid"
)

// NATS Event Subjects
const (
	EventPurchaseCreated   = "purchase.created"
	EventPaymentSubmitted  = "purchase.payment_submitted"
	EventPaymentVerified   = "purchase.payment_verified"
	EventPurchaseCompleted = "purchase.completed"
	EventPurchaseCancelled = "purchase.cancelled"
	EventTicketsIssued     = "tickets.issued"
	EventTicketValidated   = "ticket.validated"
)

// PurchaseCreatedEvent represents a new checkout
type PurchaseCreatedEvent struct {
	PurchaseID  uuid.UUID `json:"purchase_id"`
	EventID     uuid.UUID `json:"event_id"`
	TotalAmount int64     `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentSubmittedEvent represents payment evidence being attached
type PaymentSubmittedEvent struct {
	PurchaseID uuid.UUID `json:"purchase_id"`
	ProofURL   string    `json:"proof_url"`
	Timestamp  time.Time `json:"timestamp"`
}

// PaymentVerifiedEvent represents a reviewer confirming payment
type PaymentVerifiedEvent struct {
	PurchaseID uuid.UUID `json:"purchase_id"`
	StaffID    int64     `json:"staff_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// PurchaseCompletedEvent represents a purchase reaching its happy terminal state
type PurchaseCompletedEvent struct {
	PurchaseID uuid.UUID `json:"purchase_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// PurchaseCancelledEvent represents a cancellation from any non-terminal state
type PurchaseCancelledEvent struct {
	PurchaseID       uuid.UUID `json:"purchase_id"`
	Reason           string    `json:"reason"`
	TicketsCancelled int64     `json:"tickets_cancelled"`
	Timestamp        time.Time `json:"timestamp"`
}

// TicketsIssuedEvent represents tickets being minted for a purchase
type TicketsIssuedEvent struct {
	PurchaseID uuid.UUID   `json:"purchase_id"`
	TicketIDs  []uuid.UUID `json:"ticket_ids"`
	Timestamp  time.Time   `json:"timestamp"`
}

// TicketValidatedEvent represents one successful door scan
type TicketValidatedEvent struct {
	TicketID  uuid.UUID    `json:"ticket_id"`
	Status    TicketStatus `json:"status"`
	StaffID   int64        `json:"staff_id"`
	Location  string       `json:"location"`
	Timestamp time.Time    `json:"timestamp"`
}
