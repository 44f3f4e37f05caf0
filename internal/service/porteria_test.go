package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
)

func issuedTicket(t *testing.T, services *Services) models.Ticket {
	t.Helper()

	created := createVerifiedPurchase(t, services)
	tickets, err := services.Tickets.ListByPurchase(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotEmpty(t, tickets)
	return tickets[0]
}

func TestValidateTwoStepFlow(t *testing.T) {
	services, _, publisher := newTestServices(t)
	ctx := context.Background()

	ticket := issuedTicket(t, services)

	// First scan: checked at the gate.
	validated, err := services.Porteria.Validate(ctx, porteriaStaffID, &models.ValidateTicketRequest{
		Code:     ticket.VerificationCode,
		Location: "puerta norte",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TicketValidated, validated.Status)
	assert.NotNil(t, validated.ValidatedAt)
	assert.True(t, publisher.published(models.EventTicketValidated))

	// Second scan: admitted.
	used, err := services.Porteria.Validate(ctx, porteriaStaffID, &models.ValidateTicketRequest{
		Code:     ticket.VerificationCode,
		Location: "puerta norte",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, used.Status)
	assert.NotNil(t, used.UsedAt)

	// Third scan: rejected.
	_, err = services.Porteria.Validate(ctx, porteriaStaffID, &models.ValidateTicketRequest{
		Code:     ticket.VerificationCode,
		Location: "puerta norte",
	})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyUsed)

	validations, err := services.Porteria.Validations(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, validations, 2)
	for _, v := range validations {
		assert.Equal(t, porteriaStaffID, v.StaffID)
		assert.Equal(t, "puerta norte", v.Location)
		assert.Equal(t, ticket.VerificationCode, v.VerificationCode)
	}
}

func TestValidateByQRCode(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	ticket := issuedTicket(t, services)

	validated, err := services.Porteria.Validate(ctx, adminStaffID, &models.ValidateTicketRequest{
		Code:     ticket.QRCode,
		Location: "puerta sur",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TicketValidated, validated.Status)
}

func TestValidateUnknownCode(t *testing.T) {
	services, _, _ := newTestServices(t)

	_, err := services.Porteria.Validate(context.Background(), porteriaStaffID, &models.ValidateTicketRequest{
		Code:     "ZZZZ9999",
		Location: "puerta norte",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestValidateCancelledTicket(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	created := createVerifiedPurchase(t, services)
	tickets, err := services.Tickets.ListByPurchase(ctx, created.ID)
	require.NoError(t, err)
	require.NotEmpty(t, tickets)

	require.NoError(t, services.Purchases.Cancel(ctx, adminStaffID, &models.CancelPurchaseRequest{
		PurchaseID: created.ID,
		Reason:     "fraud report",
	}))

	_, err = services.Porteria.Validate(ctx, porteriaStaffID, &models.ValidateTicketRequest{
		Code:     tickets[0].VerificationCode,
		Location: "puerta norte",
	})
	assert.ErrorIs(t, err, apperrors.ErrCancelled)
}

func TestValidateDeactivatedTicket(t *testing.T) {
	services, repos, _ := newTestServices(t)
	ctx := context.Background()

	inactive := models.Ticket{
		ID:               uuid.New(),
		PurchaseID:       uuid.New(),
		ItemID:           uuid.New(),
		VerificationCode: "DEAD0001",
		QRCode:           "qr-dead",
		Status:           models.TicketPending,
		IsActive:         false,
	}
	require.NoError(t, repos.Tickets.CreateBatch(ctx, []models.Ticket{inactive}))

	_, err := services.Porteria.Validate(ctx, porteriaStaffID, &models.ValidateTicketRequest{
		Code:     "DEAD0001",
		Location: "puerta norte",
	})
	assert.ErrorIs(t, err, apperrors.ErrInactive)
}

func TestValidateAuthorization(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	ticket := issuedTicket(t, services)

	_, err := services.Porteria.Validate(ctx, unknownStaffID, &models.ValidateTicketRequest{
		Code:     ticket.VerificationCode,
		Location: "puerta norte",
	})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = services.Porteria.Validate(ctx, inactiveStaffID, &models.ValidateTicketRequest{
		Code:     ticket.VerificationCode,
		Location: "puerta norte",
	})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

// Two racing scans: a loser that read the same state gets ErrConflict and
// never advances the ticket past what its own read justified.
func TestValidateConcurrentScans(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	ticket := issuedTicket(t, services)

	const racers = 2
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	conflicts := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := services.Porteria.Validate(ctx, porteriaStaffID, &models.ValidateTicketRequest{
				Code:     ticket.VerificationCode,
				Location: "puerta norte",
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, apperrors.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, racers, successes+conflicts)
	assert.GreaterOrEqual(t, successes, 1)

	// The stored status matches the number of successful scans.
	fresh, err := services.Tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	switch successes {
	case 1:
		assert.Equal(t, models.TicketValidated, fresh.Status)
	case 2:
		assert.Equal(t, models.TicketUsed, fresh.Status)
	}

	validations, err := services.Porteria.Validations(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, validations, successes)
}

// A scan that loses the compare-and-swap reports the conflict instead of
// silently retrying into the next transition.
func TestValidateLostRaceReturnsConflict(t *testing.T) {
	services, repos, _ := newTestServices(t)
	ctx := context.Background()

	ticket := issuedTicket(t, services)

	// The conditional update against a stale from-state must fail rather
	// than advance the ticket.
	ok, err := repos.Tickets.TransitionStatus(ctx, ticket.ID, models.TicketPending, models.TicketValidated, nowFunc())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repos.Tickets.TransitionStatus(ctx, ticket.ID, models.TicketPending, models.TicketValidated, nowFunc())
	require.NoError(t, err)
	assert.False(t, ok)
}
