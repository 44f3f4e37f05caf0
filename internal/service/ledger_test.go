package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
	"tickbol/internal/repository"
)

func TestCreatePurchaseComputesTotalAndCode(t *testing.T) {
	services, repos, publisher := newTestServices(t)
	ctx := context.Background()

	created, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)

	// 2*100 + 1*300
	assert.Equal(t, int64(500), created.TotalAmount)
	assert.Equal(t, models.PurchasePendingPayment, created.Status)
	assert.Len(t, created.VerificationCode, 8)
	assert.True(t, publisher.published(models.EventPurchaseCreated))

	purchase, err := services.Purchases.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, purchase.Items, 2)
	assert.Equal(t, int64(200), purchase.Items[0].TotalPrice)
	assert.Equal(t, models.TicketTypeCliente, purchase.Items[0].TicketType)
	assert.Equal(t, models.TicketTypeVIP, purchase.Items[1].TicketType)

	record, err := repos.Codes.GetByCode(ctx, models.CodeTypePurchase, created.VerificationCode)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, created.ID, record.RelatedID)
	require.NotNil(t, record.ExpiresAt)
}

func TestCreatePurchaseRejectsBadInput(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	req := checkoutRequest()
	req.PaymentMethod = "barter"
	_, err := services.Purchases.Create(ctx, req)
	assert.Error(t, err)

	req = checkoutRequest()
	req.Items[0].TicketType = "BACKSTAGE"
	_, err = services.Purchases.Create(ctx, req)
	assert.Error(t, err)
}

func TestSubmitAndVerifyPayment(t *testing.T) {
	services, _, publisher := newTestServices(t)
	ctx := context.Background()

	created, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)

	require.NoError(t, services.Purchases.SubmitPayment(ctx, &models.SubmitPaymentRequest{
		PurchaseID:      created.ID,
		PaymentProofURL: "https://proofs.example.com/qr.jpg",
	}))

	purchase, err := services.Purchases.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaymentSubmitted, purchase.Status)
	require.NotNil(t, purchase.PaymentProofURL)
	assert.Equal(t, "https://proofs.example.com/qr.jpg", *purchase.PaymentProofURL)
	assert.NotNil(t, purchase.PaymentSubmittedAt)
	assert.True(t, publisher.published(models.EventPaymentSubmitted))

	require.NoError(t, services.Purchases.VerifyPayment(ctx, adminStaffID, &models.VerifyPaymentRequest{
		PurchaseID: created.ID,
	}))

	purchase, err = services.Purchases.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaymentVerified, purchase.Status)
	assert.NotNil(t, purchase.PaymentVerifiedAt)
	assert.True(t, publisher.published(models.EventPaymentVerified))

	// Verification mints the tickets right away.
	tickets, err := services.Tickets.ListByPurchase(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
	assert.True(t, publisher.published(models.EventTicketsIssued))
}

// flakyPurchaseStore fails SetPaymentProof a set number of times before
// delegating.
type flakyPurchaseStore struct {
	repository.PurchaseStore
	proofFailures int
}

func (s *flakyPurchaseStore) SetPaymentProof(ctx context.Context, id uuid.UUID, proofURL string) error {
	if s.proofFailures > 0 {
		s.proofFailures--
		return errors.New("connection reset by peer")
	}
	return s.PurchaseStore.SetPaymentProof(ctx, id, proofURL)
}

func TestSubmitPaymentRetriesAfterProofFailure(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	seedStaff(repos)
	repos.Purchases = &flakyPurchaseStore{PurchaseStore: repos.Purchases, proofFailures: 1}

	services := NewServices(repos, &stubPublisher{}, testConfig())
	ctx := context.Background()

	created, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)

	req := &models.SubmitPaymentRequest{
		PurchaseID:      created.ID,
		PaymentProofURL: "https://proofs.example.com/1.jpg",
	}
	require.Error(t, services.Purchases.SubmitPayment(ctx, req))

	// The failed submission left the purchase untouched, so a retry is a
	// clean second attempt.
	purchase, err := services.Purchases.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePendingPayment, purchase.Status)
	assert.Nil(t, purchase.PaymentProofURL)

	require.NoError(t, services.Purchases.SubmitPayment(ctx, req))

	purchase, err = services.Purchases.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaymentSubmitted, purchase.Status)
	require.NotNil(t, purchase.PaymentProofURL)
	assert.Equal(t, req.PaymentProofURL, *purchase.PaymentProofURL)
}

func TestVerifyPaymentRequiresSubmission(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	created, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)

	err = services.Purchases.VerifyPayment(ctx, adminStaffID, &models.VerifyPaymentRequest{
		PurchaseID: created.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestVerifyPaymentAuthorization(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	created, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)

	err = services.Purchases.VerifyPayment(ctx, porteriaStaffID, &models.VerifyPaymentRequest{PurchaseID: created.ID})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	err = services.Purchases.VerifyPayment(ctx, unknownStaffID, &models.VerifyPaymentRequest{PurchaseID: created.ID})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestVerifyPaymentRejectsExpiredCode(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	created, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)
	require.NoError(t, services.Purchases.SubmitPayment(ctx, &models.SubmitPaymentRequest{
		PurchaseID:      created.ID,
		PaymentProofURL: "https://proofs.example.com/late.jpg",
	}))

	defer func() { nowFunc = time.Now }()
	nowFunc = func() time.Time { return time.Now().Add(73 * time.Hour) }

	err = services.Purchases.VerifyPayment(ctx, adminStaffID, &models.VerifyPaymentRequest{
		PurchaseID: created.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestCompletePurchase(t *testing.T) {
	services, _, publisher := newTestServices(t)
	ctx := context.Background()

	created := createVerifiedPurchase(t, services)

	require.NoError(t, services.Purchases.Complete(ctx, adminStaffID, &models.CompletePurchaseRequest{
		PurchaseID: created.ID,
	}))

	purchase, err := services.Purchases.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseCompleted, purchase.Status)
	assert.NotNil(t, purchase.CompletedAt)
	assert.True(t, publisher.published(models.EventPurchaseCompleted))

	// Completed is terminal.
	err = services.Purchases.SubmitPayment(ctx, &models.SubmitPaymentRequest{
		PurchaseID:      created.ID,
		PaymentProofURL: "https://proofs.example.com/again.jpg",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestCompleteRequiresIssuedTickets(t *testing.T) {
	services, repos, _ := newTestServices(t)
	ctx := context.Background()

	created, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)

	// Force the purchase to payment_verified without the issuer running.
	for _, step := range [][2]models.PurchaseStatus{
		{models.PurchasePendingPayment, models.PurchasePaymentSubmitted},
		{models.PurchasePaymentSubmitted, models.PurchasePaymentVerified},
	} {
		ok, err := repos.Purchases.TransitionStatus(ctx, created.ID, step[0], step[1], time.Now())
		require.NoError(t, err)
		require.True(t, ok)
	}

	err = services.Purchases.Complete(ctx, adminStaffID, &models.CompletePurchaseRequest{
		PurchaseID: created.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestCancelCascadesToTickets(t *testing.T) {
	services, _, publisher := newTestServices(t)
	ctx := context.Background()

	req := checkoutRequest()
	req.Items = append(req.Items, models.PurchaseItemRequest{
		SectorName: "Palco", Quantity: 4, UnitPrice: 200,
	})
	created, err := services.Purchases.Create(ctx, req)
	require.NoError(t, err)
	require.NoError(t, services.Purchases.SubmitPayment(ctx, &models.SubmitPaymentRequest{
		PurchaseID:      created.ID,
		PaymentProofURL: "https://proofs.example.com/3.jpg",
	}))
	require.NoError(t, services.Purchases.VerifyPayment(ctx, adminStaffID, &models.VerifyPaymentRequest{
		PurchaseID: created.ID,
	}))

	tickets, err := services.Tickets.ListByPurchase(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 3)

	require.NoError(t, services.Purchases.Cancel(ctx, adminStaffID, &models.CancelPurchaseRequest{
		PurchaseID: created.ID,
		Reason:     "customer request",
	}))

	purchase, err := services.Purchases.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseCancelled, purchase.Status)
	assert.True(t, publisher.published(models.EventPurchaseCancelled))

	tickets, err = services.Tickets.ListByPurchase(ctx, created.ID)
	require.NoError(t, err)
	for _, ticket := range tickets {
		assert.Equal(t, models.TicketCancelled, ticket.Status)
	}
}

func TestCancelRejectsTerminalPurchase(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	created := createVerifiedPurchase(t, services)
	require.NoError(t, services.Purchases.Complete(ctx, adminStaffID, &models.CompletePurchaseRequest{
		PurchaseID: created.ID,
	}))

	err := services.Purchases.Cancel(ctx, adminStaffID, &models.CancelPurchaseRequest{
		PurchaseID: created.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

// flakyTicketStore fails CancelByPurchase a set number of times before
// delegating.
type flakyTicketStore struct {
	repository.TicketStore
	cancelFailures int
}

func (s *flakyTicketStore) CancelByPurchase(ctx context.Context, purchaseID uuid.UUID) (int64, error) {
	if s.cancelFailures > 0 {
		s.cancelFailures--
		return 0, errors.New("connection reset by peer")
	}
	return s.TicketStore.CancelByPurchase(ctx, purchaseID)
}

func TestCancelRetriesStrandedCascade(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	seedStaff(repos)
	repos.Tickets = &flakyTicketStore{TicketStore: repos.Tickets, cancelFailures: 1}

	publisher := &stubPublisher{}
	services := NewServices(repos, publisher, testConfig())
	ctx := context.Background()

	created := createVerifiedPurchase(t, services)

	// First attempt flips the purchase row but the ticket cascade fails.
	err := services.Purchases.Cancel(ctx, adminStaffID, &models.CancelPurchaseRequest{
		PurchaseID: created.ID,
		Reason:     "customer request",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.False(t, publisher.published(models.EventPurchaseCancelled))

	purchase, err := services.Purchases.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseCancelled, purchase.Status)

	tickets, err := services.Tickets.ListByPurchase(ctx, created.ID)
	require.NoError(t, err)
	require.NotEmpty(t, tickets)
	for _, ticket := range tickets {
		assert.Equal(t, models.TicketPending, ticket.Status)
	}

	// Retrying repairs the stranded tickets instead of rejecting the
	// already-cancelled purchase.
	require.NoError(t, services.Purchases.Cancel(ctx, adminStaffID, &models.CancelPurchaseRequest{
		PurchaseID: created.ID,
		Reason:     "customer request",
	}))
	assert.True(t, publisher.published(models.EventPurchaseCancelled))

	tickets, err = services.Tickets.ListByPurchase(ctx, created.ID)
	require.NoError(t, err)
	for _, ticket := range tickets {
		assert.Equal(t, models.TicketCancelled, ticket.Status)
	}

	// With nothing left to repair the terminal guard applies again.
	err = services.Purchases.Cancel(ctx, adminStaffID, &models.CancelPurchaseRequest{
		PurchaseID: created.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestCancelUnknownPurchase(t *testing.T) {
	services, _, _ := newTestServices(t)

	err := services.Purchases.Cancel(context.Background(), adminStaffID, &models.CancelPurchaseRequest{
		PurchaseID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestExpirePendingCancelsOnlyStalePending(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	stale, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)

	submitted, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)
	require.NoError(t, services.Purchases.SubmitPayment(ctx, &models.SubmitPaymentRequest{
		PurchaseID:      submitted.ID,
		PaymentProofURL: "https://proofs.example.com/ok.jpg",
	}))

	expired, err := services.Purchases.ExpirePending(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	purchase, err := services.Purchases.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseCancelled, purchase.Status)

	purchase, err = services.Purchases.Get(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaymentSubmitted, purchase.Status)
}

func TestListFiltersByStatus(t *testing.T) {
	services, _, _ := newTestServices(t)
	ctx := context.Background()

	_, err := services.Purchases.Create(ctx, checkoutRequest())
	require.NoError(t, err)
	createVerifiedPurchase(t, services)

	pending := models.PurchasePendingPayment
	purchases, err := services.Purchases.List(ctx, &pending)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, pending, purchases[0].Status)

	all, err := services.Purchases.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
