package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tickbol/internal/codegen"
	apperrors "tickbol/internal/errors"
	"tickbol/internal/logger"
	"tickbol/internal/metrics"
	"tickbol/internal/models"
	"tickbol/internal/repository"
)

// TicketService is the ticket issuer. Issuing mints exactly one ticket per
// purchase line item, carrying the item's aggregate quantity and total
// price, so the sum of ticket totals always equals the purchase total.
type TicketService struct {
	ticketRepo   repository.TicketStore
	purchaseRepo repository.PurchaseStore
	codeRepo     repository.CodeStore
	generator    *codegen.Generator
	authorizer   Authorizer
	publisher    EventPublisher
}

func NewTicketService(ticketRepo repository.TicketStore, purchaseRepo repository.PurchaseStore, codeRepo repository.CodeStore, generator *codegen.Generator, authorizer Authorizer, publisher EventPublisher) *TicketService {
	return &TicketService{
		ticketRepo:   ticketRepo,
		purchaseRepo: purchaseRepo,
		codeRepo:     codeRepo,
		generator:    generator,
		authorizer:   authorizer,
		publisher:    publisher,
	}
}

// IssueFor is the authorized entry point for explicit issue requests.
func (s *TicketService) IssueFor(ctx context.Context, staffID int64, req *models.IssueTicketsRequest) ([]models.Ticket, error) {
	if err := s.authorizer.Authorize(ctx, staffID, ActionIssueTickets); err != nil {
		return nil, err
	}
	return s.Issue(ctx, req.PurchaseID)
}

// Issue mints tickets for a verified or completed purchase. It is
// idempotent: if tickets already exist they are returned as-is, and a
// concurrent double issue resolves through the store's uniqueness
// constraint rather than duplicating tickets.
func (s *TicketService) Issue(ctx context.Context, purchaseID uuid.UUID) ([]models.Ticket, error) {
	purchase, err := s.purchaseRepo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return nil, apperrors.ErrNotFound
	}
	if purchase.Status != models.PurchasePaymentVerified && purchase.Status != models.PurchaseCompleted {
		return nil, fmt.Errorf("purchase %s is %s, tickets require a verified payment: %w",
			purchaseID, purchase.Status, apperrors.ErrInvalidTransition)
	}

	existing, err := s.ticketRepo.GetByPurchaseID(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing tickets: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	items, err := s.purchaseRepo.GetItems(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase items: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("purchase %s has no line items: %w", purchaseID, apperrors.ErrInvalidTransition)
	}

	tickets := make([]models.Ticket, len(items))
	for i, item := range items {
		ticketID := uuid.New()

		code, err := s.generator.Generate(ctx, models.CodeTypeTicket, ticketID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ticket code: %w", err)
		}

		tickets[i] = models.Ticket{
			ID:               ticketID,
			PurchaseID:       purchaseID,
			ItemID:           item.ID,
			EventID:          purchase.EventID,
			EventTitle:       purchase.EventTitle,
			EventDate:        purchase.EventDate,
			EventTime:        purchase.EventTime,
			EventLocation:    purchase.EventLocation,
			BusinessName:     purchase.BusinessName,
			SectorName:       item.SectorName,
			SectorColor:      item.SectorColor,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			TotalPrice:       item.TotalPrice,
			TicketType:       item.TicketType,
			VerificationCode: code,
			QRCode:           "qr-" + uuid.New().String(),
			Status:           models.TicketPending,
			IsActive:         true,
		}
	}

	if err := s.ticketRepo.CreateBatch(ctx, tickets); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Lost an issue race; the winner's tickets are the result. The
			// codes drawn for the losing batch point at ticket IDs that never
			// landed, so retire them before they reach a door scanner.
			for _, ticket := range tickets {
				if err := s.codeRepo.Deactivate(ctx, models.CodeTypeTicket, ticket.VerificationCode); err != nil {
					logger.WithContext(ctx).Error("Failed to deactivate orphaned ticket code",
						"error", err,
						"code", ticket.VerificationCode,
						"purchase_id", purchaseID)
				}
			}
			return s.ticketRepo.GetByPurchaseID(ctx, purchaseID)
		}
		return nil, fmt.Errorf("failed to create tickets: %w", err)
	}

	metrics.TicketsIssuedTotal.Add(float64(len(tickets)))

	ids := make([]uuid.UUID, len(tickets))
	for i, ticket := range tickets {
		ids[i] = ticket.ID
	}
	if err := s.publisher.Publish(models.EventTicketsIssued, models.TicketsIssuedEvent{
		PurchaseID: purchaseID,
		TicketIDs:  ids,
		Timestamp:  nowFunc(),
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish tickets issued event",
			"error", err,
			"purchase_id", purchaseID,
			"event_type", models.EventTicketsIssued)
	}

	return tickets, nil
}

func (s *TicketService) Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return nil, apperrors.ErrNotFound
	}
	return ticket, nil
}

func (s *TicketService) ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]models.Ticket, error) {
	return s.ticketRepo.GetByPurchaseID(ctx, purchaseID)
}
