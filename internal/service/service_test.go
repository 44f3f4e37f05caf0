package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbol/internal/config"
	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
	"tickbol/internal/repository"
)

const (
	adminStaffID    int64 = 1
	porteriaStaffID int64 = 2
	inactiveStaffID int64 = 3
	unknownStaffID  int64 = 99
)

// stubPublisher records published events instead of touching NATS.
type stubPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *stubPublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *stubPublisher) published(subject string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

func seedStaff(repos *repository.Repositories) {
	staff := repos.Staff.(*repository.MemoryStaffStore)
	staff.Put(models.Staff{ID: adminStaffID, Email: "admin@tickbol.bo", Role: models.RoleAdmin, IsActive: true})
	staff.Put(models.Staff{ID: porteriaStaffID, Email: "puerta@tickbol.bo", Role: models.RolePorteria, IsActive: true})
	staff.Put(models.Staff{ID: inactiveStaffID, Email: "ex@tickbol.bo", Role: models.RoleAdmin, IsActive: false})
}

func testConfig() *config.Config {
	return &config.Config{
		Codes: config.CodesConfig{
			MaxAttempts:     5,
			PurchaseCodeTTL: 72 * time.Hour,
		},
	}
}

func newTestServices(t *testing.T) (*Services, *repository.Repositories, *stubPublisher) {
	t.Helper()

	repos := repository.NewMemoryRepositories()
	seedStaff(repos)

	publisher := &stubPublisher{}
	return NewServices(repos, publisher, testConfig()), repos, publisher
}

func checkoutRequest() *models.CreatePurchaseRequest {
	return &models.CreatePurchaseRequest{
		EventID:       uuid.New(),
		EventTitle:    "Fiesta de San Juan",
		EventDate:     "2026-06-23",
		EventTime:     "21:00",
		EventLocation: "Club Social",
		BusinessName:  "Tickbol",
		CustomerName:  "Carlos Mendoza",
		CustomerPhone: "+59171234567",
		CustomerEmail: "carlos@example.com",
		PaymentMethod: models.PaymentMethodQR,
		Items: []models.PurchaseItemRequest{
			{SectorName: "General", SectorColor: "#00ff00", Quantity: 2, UnitPrice: 100},
			{SectorName: "VIP", SectorColor: "#ffd700", Quantity: 1, UnitPrice: 300, TicketType: models.TicketTypeVIP},
		},
	}
}

// createVerifiedPurchase walks a fresh checkout to payment_verified, which
// also issues its tickets.
func createVerifiedPurchase(t *testing.T, services *Services) *models.CreatePurchaseResponse {
	t.Helper()
	ctx := context.Background()

	created, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)

	require.NoError(t, services.Purchases.SubmitPayment(ctx, &models.SubmitPaymentRequest{
		PurchaseID:      created.ID,
		PaymentProofURL: "https://proofs.example.com/1.jpg",
	}))
	require.NoError(t, services.Purchases.VerifyPayment(ctx, adminStaffID, &models.VerifyPaymentRequest{
		PurchaseID: created.ID,
	}))

	return created
}

func TestRoleAuthorizer(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	staff := repos.Staff.(*repository.MemoryStaffStore)
	staff.Put(models.Staff{ID: adminStaffID, Role: models.RoleAdmin, IsActive: true})
	staff.Put(models.Staff{ID: porteriaStaffID, Role: models.RolePorteria, IsActive: true})
	staff.Put(models.Staff{ID: inactiveStaffID, Role: models.RoleAdmin, IsActive: false})

	authorizer := NewRoleAuthorizer(repos.Staff)
	ctx := context.Background()

	assert.NoError(t, authorizer.Authorize(ctx, adminStaffID, ActionVerifyPayment))
	assert.NoError(t, authorizer.Authorize(ctx, adminStaffID, ActionValidateTicket))
	assert.NoError(t, authorizer.Authorize(ctx, porteriaStaffID, ActionValidateTicket))

	assert.ErrorIs(t, authorizer.Authorize(ctx, porteriaStaffID, ActionVerifyPayment), apperrors.ErrForbidden)
	assert.ErrorIs(t, authorizer.Authorize(ctx, inactiveStaffID, ActionVerifyPayment), apperrors.ErrUnauthorized)
	assert.ErrorIs(t, authorizer.Authorize(ctx, unknownStaffID, ActionVerifyPayment), apperrors.ErrUnauthorized)
}
