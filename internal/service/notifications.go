package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
	"tickbol/internal/repository"
)

// NotificationService is the notification tracker: it records which
// lifecycle notifications have been dispatched for a purchase so the
// dispatch collaborator never sends the same kind twice. It never sends
// anything itself.
type NotificationService struct {
	purchaseRepo repository.PurchaseStore
}

func NewNotificationService(purchaseRepo repository.PurchaseStore) *NotificationService {
	return &NotificationService{purchaseRepo: purchaseRepo}
}

// MarkSent flips the flag for one notification kind. Marking an
// already-sent kind is a no-op, not an error.
func (s *NotificationService) MarkSent(ctx context.Context, purchaseID uuid.UUID, kind models.NotificationKind) error {
	changed, err := s.purchaseRepo.MarkNotified(ctx, purchaseID, kind)
	if err != nil {
		return fmt.Errorf("failed to mark notification: %w", err)
	}
	if changed {
		return nil
	}

	// Zero rows either means the flag was already set or the purchase does
	// not exist; only the latter is an error.
	purchase, err := s.purchaseRepo.GetByID(ctx, purchaseID)
	if err != nil {
		return fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return apperrors.ErrNotFound
	}
	return nil
}

// IsSent reports whether a notification kind has been dispatched.
func (s *NotificationService) IsSent(ctx context.Context, purchaseID uuid.UUID, kind models.NotificationKind) (bool, error) {
	purchase, err := s.purchaseRepo.GetByID(ctx, purchaseID)
	if err != nil {
		return false, fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return false, apperrors.ErrNotFound
	}
	return purchase.Notified(kind), nil
}

// Status returns all three flags for the dispatch collaborator.
func (s *NotificationService) Status(ctx context.Context, purchaseID uuid.UUID) (*models.NotificationStatusResponse, error) {
	purchase, err := s.purchaseRepo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return nil, apperrors.ErrNotFound
	}

	return &models.NotificationStatusResponse{
		PurchaseID:      purchase.ID,
		PaymentReceived: purchase.NotifiedReceived,
		PaymentVerified: purchase.NotifiedVerified,
		TicketsReady:    purchase.NotifiedTickets,
	}, nil
}
