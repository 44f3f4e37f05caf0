package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"

	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
	"tickbol/internal/repository"
	"tickbol/internal/service"
)

// Handlers process lifecycle events. The notification handlers flip one
// sent-flag per purchase; flags are conditional updates, so redelivered
// messages are harmless.
type Handlers struct {
	repos         *repository.Repositories
	notifications *service.NotificationService
}

func NewHandlers(repos *repository.Repositories, notifications *service.NotificationService) *Handlers {
	return &Handlers{
		repos:         repos,
		notifications: notifications,
	}
}

func (h *Handlers) HandlePurchaseCreated(m *stan.Msg) {
	var event models.PurchaseCreatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal purchase created event", "error", err)
		return
	}

	slog.Info("Purchase created", "purchase_id", event.PurchaseID, "total_amount", event.TotalAmount)

	m.Ack()
}

func (h *Handlers) HandlePaymentSubmitted(m *stan.Msg) {
	var event models.PaymentSubmittedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment submitted event", "error", err)
		return
	}

	h.dispatch(m, event.PurchaseID, models.NotifPaymentReceived)
}

func (h *Handlers) HandlePaymentVerified(m *stan.Msg) {
	var event models.PaymentVerifiedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment verified event", "error", err)
		return
	}

	h.dispatch(m, event.PurchaseID, models.NotifPaymentVerified)
}

func (h *Handlers) HandleTicketsIssued(m *stan.Msg) {
	var event models.TicketsIssuedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal tickets issued event", "error", err)
		return
	}

	h.dispatch(m, event.PurchaseID, models.NotifTicketsReady)
}

func (h *Handlers) HandlePurchaseCompleted(m *stan.Msg) {
	var event models.PurchaseCompletedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal purchase completed event", "error", err)
		return
	}

	slog.Info("Purchase completed", "purchase_id", event.PurchaseID)

	m.Ack()
}

func (h *Handlers) HandlePurchaseCancelled(m *stan.Msg) {
	var event models.PurchaseCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal purchase cancelled event", "error", err)
		return
	}

	slog.Info("Purchase cancelled",
		"purchase_id", event.PurchaseID,
		"reason", event.Reason,
		"tickets_cancelled", event.TicketsCancelled)

	m.Ack()
}

func (h *Handlers) HandleTicketValidated(m *stan.Msg) {
	var event models.TicketValidatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal ticket validated event", "error", err)
		return
	}

	slog.Info("Ticket validated",
		"ticket_id", event.TicketID,
		"status", event.Status,
		"staff_id", event.StaffID,
		"location", event.Location)

	m.Ack()
}

// dispatch marks one notification kind sent for the purchase. The message
// is not acked on transient errors, so NATS redelivers it.
func (h *Handlers) dispatch(m *stan.Msg, purchaseID uuid.UUID, kind models.NotificationKind) {
	ctx := context.Background()

	sent, err := h.notifications.IsSent(ctx, purchaseID, kind)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			slog.Warn("Notification event for unknown purchase", "purchase_id", purchaseID, "kind", kind)
			m.Ack()
			return
		}
		slog.Error("Failed to check notification flag", "purchase_id", purchaseID, "kind", kind, "error", err)
		return
	}

	if sent {
		m.Ack()
		return
	}

	// Customer contact (WhatsApp, email) happens here via external channels;
	// this service records that the dispatch went out.
	slog.Info("Dispatching notification", "purchase_id", purchaseID, "kind", kind)

	if err := h.notifications.MarkSent(ctx, purchaseID, kind); err != nil {
		slog.Error("Failed to mark notification sent", "purchase_id", purchaseID, "kind", kind, "error", err)
		return
	}

	m.Ack()
}
