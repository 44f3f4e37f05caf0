package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "tickbol/internal/errors"
	"tickbol/internal/logger"
	"tickbol/internal/metrics"
	"tickbol/internal/models"
	"tickbol/internal/repository"
)

// PorteriaService is the door validator. A ticket is scanned at most twice:
// the first scan moves pending -> validated (checked at the gate), the
// second validated -> used (admitted). Every successful scan appends one
// immutable audit record. Scanning a used or cancelled ticket fails without
// touching the row; that asymmetry is the anti-fraud guard against
// duplicated codes.
type PorteriaService struct {
	ticketRepo     repository.TicketStore
	validationRepo repository.ValidationStore
	authorizer     Authorizer
	publisher      EventPublisher
}

func NewPorteriaService(ticketRepo repository.TicketStore, validationRepo repository.ValidationStore, authorizer Authorizer, publisher EventPublisher) *PorteriaService {
	return &PorteriaService{
		ticketRepo:     ticketRepo,
		validationRepo: validationRepo,
		authorizer:     authorizer,
		publisher:      publisher,
	}
}

// Validate consumes one scan of a verification code or QR identifier. The
// status change is a single conditional update, so of two simultaneous
// scans of the same ticket exactly one succeeds; the loser gets ErrConflict
// and must not be auto-advanced to the next transition.
func (s *PorteriaService) Validate(ctx context.Context, staffID int64, req *models.ValidateTicketRequest) (*models.Ticket, error) {
	if err := s.authorizer.Authorize(ctx, staffID, ActionValidateTicket); err != nil {
		return nil, err
	}

	ticket, err := s.lookup(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	if !ticket.IsActive {
		return nil, fmt.Errorf("ticket %s is deactivated: %w", ticket.ID, apperrors.ErrInactive)
	}

	var from, to models.TicketStatus
	switch ticket.Status {
	case models.TicketPending:
		from, to = models.TicketPending, models.TicketValidated
	case models.TicketValidated:
		from, to = models.TicketValidated, models.TicketUsed
	case models.TicketUsed:
		return nil, fmt.Errorf("ticket %s: %w", ticket.ID, apperrors.ErrAlreadyUsed)
	case models.TicketCancelled:
		return nil, fmt.Errorf("ticket %s: %w", ticket.ID, apperrors.ErrCancelled)
	default:
		return nil, fmt.Errorf("ticket %s has unknown status %q", ticket.ID, ticket.Status)
	}

	now := nowFunc()
	ok, err := s.ticketRepo.TransitionStatus(ctx, ticket.ID, from, to, now)
	if err != nil {
		return nil, fmt.Errorf("failed to transition ticket: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("ticket %s scan lost a race: %w", ticket.ID, apperrors.ErrConflict)
	}

	validation := &models.PorteriaValidation{
		ID:               uuid.New(),
		TicketID:         ticket.ID,
		VerificationCode: ticket.VerificationCode,
		QRCode:           ticket.QRCode,
		StaffID:          staffID,
		Location:         req.Location,
		ValidatedAt:      now,
	}
	if err := s.validationRepo.Append(ctx, validation); err != nil {
		// The transition is committed; a lost audit row is logged, not
		// rolled back, because the scan already admitted the holder.
		logger.WithContext(ctx).Error("Failed to append validation record",
			"error", err,
			"ticket_id", ticket.ID)
	}

	metrics.ValidationsTotal.WithLabelValues(string(to)).Inc()

	if err := s.publisher.Publish(models.EventTicketValidated, models.TicketValidatedEvent{
		TicketID:  ticket.ID,
		Status:    to,
		StaffID:   staffID,
		Location:  req.Location,
		Timestamp: now,
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish ticket validated event",
			"error", err,
			"ticket_id", ticket.ID,
			"event_type", models.EventTicketValidated)
	}

	fresh, err := s.ticketRepo.GetByID(ctx, ticket.ID)
	if err != nil || fresh == nil {
		// Fall back to the pre-transition snapshot with the new status.
		ticket.Status = to
		return ticket, nil
	}
	return fresh, nil
}

// Validations returns the audit trail for one ticket, oldest first.
func (s *PorteriaService) Validations(ctx context.Context, ticketID uuid.UUID) ([]models.PorteriaValidation, error) {
	return s.validationRepo.ListByTicket(ctx, ticketID)
}

// lookup resolves a scan payload by verification code first, then by QR
// identifier.
func (s *PorteriaService) lookup(ctx context.Context, code string) (*models.Ticket, error) {
	ticket, err := s.ticketRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up ticket by code: %w", err)
	}
	if ticket == nil {
		ticket, err = s.ticketRepo.GetByQRCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to look up ticket by QR: %w", err)
		}
	}
	if ticket == nil {
		return nil, fmt.Errorf("no ticket for code %q: %w", code, apperrors.ErrNotFound)
	}
	return ticket, nil
}
