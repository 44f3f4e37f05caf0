package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tickbol/internal/codegen"
	apperrors "tickbol/internal/errors"
	"tickbol/internal/logger"
	"tickbol/internal/models"
	"tickbol/internal/repository"
)

// PurchaseService is the purchase ledger: it owns the forward-only status
// machine pending_payment -> payment_submitted -> payment_verified ->
// completed, with cancelled reachable from any non-terminal state.
type PurchaseService struct {
	purchaseRepo repository.PurchaseStore
	ticketRepo   repository.TicketStore
	codeRepo     repository.CodeStore
	generator    *codegen.Generator
	authorizer   Authorizer
	publisher    EventPublisher
	tickets      *TicketService
	codeTTL      time.Duration
}

func NewPurchaseService(purchaseRepo repository.PurchaseStore, ticketRepo repository.TicketStore, codeRepo repository.CodeStore, generator *codegen.Generator, authorizer Authorizer, publisher EventPublisher, tickets *TicketService, codeTTL time.Duration) *PurchaseService {
	return &PurchaseService{
		purchaseRepo: purchaseRepo,
		ticketRepo:   ticketRepo,
		codeRepo:     codeRepo,
		generator:    generator,
		authorizer:   authorizer,
		publisher:    publisher,
		tickets:      tickets,
		codeTTL:      codeTTL,
	}
}

// Create records a checkout. The total is computed server-side from the
// line items; the purchase verification code is minted before the row is
// written so the code uniqueness constraint backs the purchase invariant.
func (s *PurchaseService) Create(ctx context.Context, req *models.CreatePurchaseRequest) (*models.CreatePurchaseResponse, error) {
	if !validPaymentMethod(req.PaymentMethod) {
		return nil, fmt.Errorf("unknown payment method %q", req.PaymentMethod)
	}

	purchaseID := uuid.New()

	var total int64
	items := make([]models.PurchaseItem, len(req.Items))
	for i, item := range req.Items {
		ticketType := item.TicketType
		if ticketType == "" {
			ticketType = models.TicketTypeCliente
		}
		if ticketType != models.TicketTypeCliente && ticketType != models.TicketTypeVIP && ticketType != models.TicketTypeStaff {
			return nil, fmt.Errorf("unknown ticket type %q", item.TicketType)
		}

		lineTotal := item.UnitPrice * int64(item.Quantity)
		items[i] = models.PurchaseItem{
			ID:          uuid.New(),
			PurchaseID:  purchaseID,
			SectorName:  item.SectorName,
			SectorColor: item.SectorColor,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  lineTotal,
			TicketType:  ticketType,
		}
		total += lineTotal
	}

	expiresAt := nowFunc().Add(s.codeTTL)
	code, err := s.generator.Generate(ctx, models.CodeTypePurchase, purchaseID, &expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate purchase code: %w", err)
	}

	purchase := &models.Purchase{
		ID:               purchaseID,
		EventID:          req.EventID,
		EventTitle:       req.EventTitle,
		EventDate:        req.EventDate,
		EventTime:        req.EventTime,
		EventLocation:    req.EventLocation,
		BusinessName:     req.BusinessName,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerEmail:    req.CustomerEmail,
		TotalAmount:      total,
		PaymentMethod:    req.PaymentMethod,
		Status:           models.PurchasePendingPayment,
		VerificationCode: code,
	}

	if err := s.purchaseRepo.Create(ctx, purchase, items); err != nil {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	s.publish(ctx, models.EventPurchaseCreated, models.PurchaseCreatedEvent{
		PurchaseID:  purchase.ID,
		EventID:     purchase.EventID,
		TotalAmount: purchase.TotalAmount,
		Timestamp:   nowFunc(),
	})

	return &models.CreatePurchaseResponse{
		ID:               purchase.ID,
		VerificationCode: purchase.VerificationCode,
		TotalAmount:      purchase.TotalAmount,
		Status:           purchase.Status,
	}, nil
}

func (s *PurchaseService) Get(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return nil, apperrors.ErrNotFound
	}

	items, err := s.purchaseRepo.GetItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase items: %w", err)
	}
	purchase.Items = items

	return purchase, nil
}

func (s *PurchaseService) List(ctx context.Context, status *models.PurchaseStatus) ([]models.Purchase, error) {
	return s.purchaseRepo.List(ctx, status)
}

// SubmitPayment attaches a payment proof reference and moves the purchase
// from pending_payment to payment_submitted.
func (s *PurchaseService) SubmitPayment(ctx context.Context, req *models.SubmitPaymentRequest) error {
	purchase, err := s.purchaseRepo.GetByID(ctx, req.PurchaseID)
	if err != nil {
		return fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return apperrors.ErrNotFound
	}

	if purchase.Status != models.PurchasePendingPayment {
		return fmt.Errorf("purchase %s is %s, expected %s: %w",
			req.PurchaseID, purchase.Status, models.PurchasePendingPayment, apperrors.ErrInvalidTransition)
	}

	// Proof first, then the status flip: a payment_submitted row always
	// carries its proof reference.
	if err := s.purchaseRepo.SetPaymentProof(ctx, req.PurchaseID, req.PaymentProofURL); err != nil {
		return fmt.Errorf("failed to store payment proof: %w", err)
	}

	if err := s.transition(ctx, purchase, models.PurchasePendingPayment, models.PurchasePaymentSubmitted); err != nil {
		return err
	}

	s.publish(ctx, models.EventPaymentSubmitted, models.PaymentSubmittedEvent{
		PurchaseID: req.PurchaseID,
		ProofURL:   req.PaymentProofURL,
		Timestamp:  nowFunc(),
	})

	return nil
}

// VerifyPayment confirms the attached proof. The purchase verification code
// must still be unexpired; on success the ticket issuer mints tickets.
func (s *PurchaseService) VerifyPayment(ctx context.Context, staffID int64, req *models.VerifyPaymentRequest) error {
	if err := s.authorizer.Authorize(ctx, staffID, ActionVerifyPayment); err != nil {
		return err
	}

	purchase, err := s.purchaseRepo.GetByID(ctx, req.PurchaseID)
	if err != nil {
		return fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return apperrors.ErrNotFound
	}

	if err := s.checkCodeUnexpired(ctx, purchase); err != nil {
		return err
	}

	if err := s.transition(ctx, purchase, models.PurchasePaymentSubmitted, models.PurchasePaymentVerified); err != nil {
		return err
	}

	s.publish(ctx, models.EventPaymentVerified, models.PaymentVerifiedEvent{
		PurchaseID: req.PurchaseID,
		StaffID:    staffID,
		Timestamp:  nowFunc(),
	})

	// Mint tickets right away; issuing is idempotent so a crash between the
	// transition and this call is repaired by the next verify or issue.
	if _, err := s.tickets.Issue(ctx, req.PurchaseID); err != nil {
		logger.WithContext(ctx).Error("Failed to issue tickets after verification",
			"error", err,
			"purchase_id", req.PurchaseID)
	}

	return nil
}

// Complete closes out a verified purchase. Tickets must already be issued.
func (s *PurchaseService) Complete(ctx context.Context, staffID int64, req *models.CompletePurchaseRequest) error {
	if err := s.authorizer.Authorize(ctx, staffID, ActionCompletePurchase); err != nil {
		return err
	}

	purchase, err := s.purchaseRepo.GetByID(ctx, req.PurchaseID)
	if err != nil {
		return fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return apperrors.ErrNotFound
	}

	if err := s.checkCodeUnexpired(ctx, purchase); err != nil {
		return err
	}

	tickets, err := s.ticketRepo.GetByPurchaseID(ctx, req.PurchaseID)
	if err != nil {
		return fmt.Errorf("failed to get tickets: %w", err)
	}
	if len(tickets) == 0 {
		return fmt.Errorf("purchase %s has no issued tickets: %w", req.PurchaseID, apperrors.ErrInvalidTransition)
	}

	if err := s.transition(ctx, purchase, models.PurchasePaymentVerified, models.PurchaseCompleted); err != nil {
		return err
	}

	s.publish(ctx, models.EventPurchaseCompleted, models.PurchaseCompletedEvent{
		PurchaseID: req.PurchaseID,
		Timestamp:  nowFunc(),
	})

	return nil
}

// Cancel transitions a non-terminal purchase to cancelled and cascades to
// its minted tickets.
func (s *PurchaseService) Cancel(ctx context.Context, staffID int64, req *models.CancelPurchaseRequest) error {
	if err := s.authorizer.Authorize(ctx, staffID, ActionCancelPurchase); err != nil {
		return err
	}
	return s.cancel(ctx, req.PurchaseID, req.Reason)
}

// ExpirePending cancels purchases stuck in pending_payment since before the
// cutoff. Used by the background expiration job; returns how many purchases
// were cancelled.
func (s *PurchaseService) ExpirePending(ctx context.Context, before time.Time) (int, error) {
	stale, err := s.purchaseRepo.GetStalePending(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to get stale purchases: %w", err)
	}

	expired := 0
	for _, purchase := range stale {
		if err := s.cancel(ctx, purchase.ID, "payment window expired"); err != nil {
			logger.WithContext(ctx).Error("Failed to expire purchase",
				"error", err,
				"purchase_id", purchase.ID)
			continue
		}
		expired++
	}

	return expired, nil
}

func (s *PurchaseService) cancel(ctx context.Context, purchaseID uuid.UUID, reason string) error {
	purchase, err := s.purchaseRepo.GetByID(ctx, purchaseID)
	if err != nil {
		return fmt.Errorf("failed to get purchase: %w", err)
	}
	if purchase == nil {
		return apperrors.ErrNotFound
	}
	if purchase.Status == models.PurchaseCancelled {
		// A prior cancel may have flipped the purchase row and then failed
		// the ticket cascade. Re-running the cascade repairs that; with no
		// tickets left to cancel this is the usual terminal rejection.
		stranded, err := s.ticketRepo.CancelByPurchase(ctx, purchaseID)
		if err != nil {
			return fmt.Errorf("failed to cascade cancel tickets: %w", err)
		}
		if stranded == 0 {
			return fmt.Errorf("purchase %s is %s: %w", purchaseID, purchase.Status, apperrors.ErrInvalidTransition)
		}
		s.publish(ctx, models.EventPurchaseCancelled, models.PurchaseCancelledEvent{
			PurchaseID:       purchaseID,
			Reason:           reason,
			TicketsCancelled: stranded,
			Timestamp:        nowFunc(),
		})
		return nil
	}
	if purchase.Status.Terminal() {
		return fmt.Errorf("purchase %s is %s: %w", purchaseID, purchase.Status, apperrors.ErrInvalidTransition)
	}

	if err := s.transition(ctx, purchase, purchase.Status, models.PurchaseCancelled); err != nil {
		return err
	}

	cancelled, err := s.ticketRepo.CancelByPurchase(ctx, purchaseID)
	if err != nil {
		// The purchase row is cancelled at this point; retrying Cancel
		// re-runs the cascade through the branch above.
		return fmt.Errorf("failed to cascade cancel tickets: %w", err)
	}

	s.publish(ctx, models.EventPurchaseCancelled, models.PurchaseCancelledEvent{
		PurchaseID:       purchaseID,
		Reason:           reason,
		TicketsCancelled: cancelled,
		Timestamp:        nowFunc(),
	})

	return nil
}

// transition applies one guarded compare-and-swap. On a lost race the
// purchase is re-read once: a row that moved elsewhere yields
// ErrInvalidTransition, a row that no longer exists ErrNotFound, anything
// else ErrConflict for the caller to retry.
func (s *PurchaseService) transition(ctx context.Context, purchase *models.Purchase, from, to models.PurchaseStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("purchase %s cannot move %s -> %s: %w", purchase.ID, from, to, apperrors.ErrInvalidTransition)
	}
	if purchase.Status != from {
		return fmt.Errorf("purchase %s is %s, expected %s: %w", purchase.ID, purchase.Status, from, apperrors.ErrInvalidTransition)
	}

	ok, err := s.purchaseRepo.TransitionStatus(ctx, purchase.ID, from, to, nowFunc())
	if err != nil {
		return fmt.Errorf("failed to transition purchase: %w", err)
	}
	if ok {
		purchase.Status = to
		return nil
	}

	current, err := s.purchaseRepo.GetByID(ctx, purchase.ID)
	if err != nil {
		return fmt.Errorf("failed to re-read purchase: %w", err)
	}
	if current == nil {
		return apperrors.ErrNotFound
	}
	if current.Status != from {
		return fmt.Errorf("purchase %s moved to %s concurrently: %w", purchase.ID, current.Status, apperrors.ErrInvalidTransition)
	}
	return fmt.Errorf("purchase %s transition %s -> %s lost a race: %w", purchase.ID, from, to, apperrors.ErrConflict)
}

func (s *PurchaseService) checkCodeUnexpired(ctx context.Context, purchase *models.Purchase) error {
	record, err := s.codeRepo.GetByCode(ctx, models.CodeTypePurchase, purchase.VerificationCode)
	if err != nil {
		return fmt.Errorf("failed to look up purchase code: %w", err)
	}
	if record == nil || !record.IsActive {
		return fmt.Errorf("purchase %s has no active verification code: %w", purchase.ID, apperrors.ErrInvalidTransition)
	}
	if record.Expired(nowFunc()) {
		return fmt.Errorf("verification code for purchase %s expired: %w", purchase.ID, apperrors.ErrInvalidTransition)
	}
	return nil
}

func (s *PurchaseService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.publisher.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish lifecycle event",
			"error", err,
			"event_type", subject)
	}
}

func validPaymentMethod(method string) bool {
	switch method {
	case models.PaymentMethodQR, models.PaymentMethodTransfer, models.PaymentMethodCash, models.PaymentMethodExternal:
		return true
	}
	return false
}
