package models

import (
	"github.com/google/uuid"
)

// PurchaseItemRequest - one sector line at checkout
type PurchaseItemRequest struct {
	SectorName  string `json:"sector_name" binding:"required"`
	SectorColor string `json:"sector_color"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
	UnitPrice   int64  `json:"unit_price" binding:"required,min=0"`
	TicketType  string `json:"ticket_type"`
}

// CreatePurchaseRequest - checkout payload. Event fields are a snapshot from
// the external catalog.
type CreatePurchaseRequest struct {
	EventID       uuid.UUID             `json:"event_id" binding:"required"`
	EventTitle    string                `json:"event_title" binding:"required"`
	EventDate     string                `json:"event_date"`
	EventTime     string                `json:"event_time"`
	EventLocation string                `json:"event_location"`
	BusinessName  string                `json:"business_name"`
	CustomerName  string                `json:"customer_name" binding:"required"`
	CustomerPhone string                `json:"customer_phone" binding:"required"`
	CustomerEmail string                `json:"customer_email"`
	PaymentMethod string                `json:"payment_method" binding:"required"`
	Items         []PurchaseItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreatePurchaseResponse - returned after checkout
type CreatePurchaseResponse struct {
	ID               uuid.UUID      `json:"id"`
	VerificationCode string         `json:"verification_code"`
	TotalAmount      int64          `json:"total_amount"`
	Status           PurchaseStatus `json:"status"`
}

// SubmitPaymentRequest - customer attaches payment evidence
type SubmitPaymentRequest struct {
	PurchaseID      uuid.UUID `json:"purchase_id" binding:"required"`
	PaymentProofURL string    `json:"payment_proof_url" binding:"required"`
}

// VerifyPaymentRequest - reviewer confirms the payment proof
type VerifyPaymentRequest struct {
	PurchaseID uuid.UUID `json:"purchase_id" binding:"required"`
}

// CompletePurchaseRequest - close out a verified purchase
type CompletePurchaseRequest struct {
	PurchaseID uuid.UUID `json:"purchase_id" binding:"required"`
}

// CancelPurchaseRequest - cancel a non-terminal purchase
type CancelPurchaseRequest struct {
	PurchaseID uuid.UUID `json:"purchase_id" binding:"required"`
	Reason     string    `json:"reason"`
}

// IssueTicketsRequest - mint tickets for a verified purchase
type IssueTicketsRequest struct {
	PurchaseID uuid.UUID `json:"purchase_id" binding:"required"`
}

// ValidateTicketRequest - door scan payload; code is either the 8-char
// verification code or the QR identifier
type ValidateTicketRequest struct {
	Code     string `json:"code" binding:"required"`
	Location string `json:"location" binding:"required"`
}

// ValidateTicketResponse - returned to door staff on a successful scan
type ValidateTicketResponse struct {
	Ticket  Ticket `json:"ticket"`
	Message string `json:"message"`
}

// NotificationStatusResponse - sent flags for the dispatch collaborator
type NotificationStatusResponse struct {
	PurchaseID      uuid.UUID `json:"purchase_id"`
	PaymentReceived bool      `json:"payment_received"`
	PaymentVerified bool      `json:"payment_verified"`
	TicketsReady    bool      `json:"tickets_ready"`
}
