package service

import (
	"context"
	"fmt"
	"time"

	"tickbol/internal/codegen"
	"tickbol/internal/config"
	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
	"tickbol/internal/repository"
)

// EventPublisher is the slice of the messaging client the services need.
// Publish failures are logged and never fail the operation that triggered
// them.
type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

// Authorizer decides whether a staff member may perform an action. It is
// consulted by the ledger and the door validator before any mutation; role
// checks live here instead of being scattered across the HTTP boundary.
type Authorizer interface {
	Authorize(ctx context.Context, staffID int64, action string) error
}

// Actions checked through the Authorizer.
const (
	ActionVerifyPayment    = "purchase:verify_payment"
	ActionCompletePurchase = "purchase:complete"
	ActionCancelPurchase   = "purchase:cancel"
	ActionIssueTickets     = "tickets:issue"
	ActionValidateTicket   = "porteria:validate"
)

var actionRoles = map[string][]string{
	ActionVerifyPayment:    {models.RoleAdmin},
	ActionCompletePurchase: {models.RoleAdmin},
	ActionCancelPurchase:   {models.RoleAdmin},
	ActionIssueTickets:     {models.RoleAdmin},
	ActionValidateTicket:   {models.RoleAdmin, models.RolePorteria},
}

// RoleAuthorizer authorizes against the staff store's role column.
type RoleAuthorizer struct {
	staff repository.StaffStore
}

func NewRoleAuthorizer(staff repository.StaffStore) *RoleAuthorizer {
	return &RoleAuthorizer{staff: staff}
}

func (a *RoleAuthorizer) Authorize(ctx context.Context, staffID int64, action string) error {
	staff, err := a.staff.GetByID(ctx, staffID)
	if err != nil {
		return fmt.Errorf("failed to load staff account: %w", err)
	}
	if staff == nil || !staff.IsActive {
		return apperrors.ErrUnauthorized
	}

	for _, role := range actionRoles[action] {
		if staff.Role == role {
			return nil
		}
	}
	return fmt.Errorf("role %s may not perform %s: %w", staff.Role, action, apperrors.ErrForbidden)
}

type Services struct {
	Purchases     *PurchaseService
	Tickets       *TicketService
	Porteria      *PorteriaService
	Notifications *NotificationService
}

func NewServices(repos *repository.Repositories, publisher EventPublisher, cfg *config.Config) *Services {
	generator := codegen.New(repos.Codes, cfg.Codes.MaxAttempts)
	authorizer := NewRoleAuthorizer(repos.Staff)

	ticketService := NewTicketService(repos.Tickets, repos.Purchases, repos.Codes, generator, authorizer, publisher)
	purchaseService := NewPurchaseService(repos.Purchases, repos.Tickets, repos.Codes, generator, authorizer, publisher, ticketService, cfg.Codes.PurchaseCodeTTL)
	porteriaService := NewPorteriaService(repos.Tickets, repos.Validations, authorizer, publisher)
	notificationService := NewNotificationService(repos.Purchases)

	return &Services{
		Purchases:     purchaseService,
		Tickets:       ticketService,
		Porteria:      porteriaService,
		Notifications: notificationService,
	}
}

// nowFunc is swapped in tests that need a fixed clock.
var nowFunc = time.Now
