package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
)

func seedPurchase(t *testing.T, store *MemoryPurchaseStore, status models.PurchaseStatus) *models.Purchase {
	t.Helper()

	purchase := &models.Purchase{
		ID:               uuid.New(),
		EventID:          uuid.New(),
		EventTitle:       "Concierto de prueba",
		CustomerName:     "Maria",
		CustomerPhone:    "+59170000000",
		TotalAmount:      500,
		PaymentMethod:    models.PaymentMethodQR,
		Status:           status,
		VerificationCode: uuid.New().String()[:8],
	}
	require.NoError(t, store.Create(context.Background(), purchase, nil))
	return purchase
}

func TestPurchaseTransitionIsCompareAndSwap(t *testing.T) {
	store := NewMemoryPurchaseStore()
	purchase := seedPurchase(t, store, models.PurchasePendingPayment)

	const racers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.TransitionStatus(context.Background(), purchase.ID,
				models.PurchasePendingPayment, models.PurchasePaymentSubmitted, time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)

	current, err := store.GetByID(context.Background(), purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaymentSubmitted, current.Status)
	assert.NotNil(t, current.PaymentSubmittedAt)
}

func TestPurchaseTransitionWrongFromState(t *testing.T) {
	store := NewMemoryPurchaseStore()
	purchase := seedPurchase(t, store, models.PurchasePendingPayment)

	ok, err := store.TransitionStatus(context.Background(), purchase.ID,
		models.PurchasePaymentVerified, models.PurchaseCompleted, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	current, err := store.GetByID(context.Background(), purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePendingPayment, current.Status)
}

func TestPurchaseCreateRejectsDuplicateCode(t *testing.T) {
	store := NewMemoryPurchaseStore()
	first := seedPurchase(t, store, models.PurchasePendingPayment)

	dup := &models.Purchase{
		ID:               uuid.New(),
		Status:           models.PurchasePendingPayment,
		VerificationCode: first.VerificationCode,
	}
	err := store.Create(context.Background(), dup, nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestMarkNotifiedIsConditional(t *testing.T) {
	store := NewMemoryPurchaseStore()
	purchase := seedPurchase(t, store, models.PurchasePaymentSubmitted)

	changed, err := store.MarkNotified(context.Background(), purchase.ID, models.NotifPaymentReceived)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = store.MarkNotified(context.Background(), purchase.ID, models.NotifPaymentReceived)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = store.MarkNotified(context.Background(), uuid.New(), models.NotifPaymentReceived)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestGetStalePending(t *testing.T) {
	store := NewMemoryPurchaseStore()
	stale := seedPurchase(t, store, models.PurchasePendingPayment)
	seedPurchase(t, store, models.PurchasePaymentSubmitted)

	found, err := store.GetStalePending(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)

	found, err = store.GetStalePending(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func seedTicket(t *testing.T, store *MemoryTicketStore, purchaseID uuid.UUID, status models.TicketStatus) models.Ticket {
	t.Helper()

	ticket := models.Ticket{
		ID:               uuid.New(),
		PurchaseID:       purchaseID,
		ItemID:           uuid.New(),
		VerificationCode: uuid.New().String()[:8],
		QRCode:           "qr-" + uuid.New().String(),
		Status:           status,
		IsActive:         true,
	}
	require.NoError(t, store.CreateBatch(context.Background(), []models.Ticket{ticket}))
	return ticket
}

func TestTicketTransitionIsCompareAndSwap(t *testing.T) {
	store := NewMemoryTicketStore()
	ticket := seedTicket(t, store, uuid.New(), models.TicketPending)

	const racers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.TransitionStatus(context.Background(), ticket.ID,
				models.TicketPending, models.TicketValidated, time.Now())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)

	current, err := store.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketValidated, current.Status)
	assert.NotNil(t, current.ValidatedAt)
}

func TestCreateBatchRejectsDuplicateItem(t *testing.T) {
	store := NewMemoryTicketStore()
	purchaseID := uuid.New()
	ticket := seedTicket(t, store, purchaseID, models.TicketPending)

	dup := models.Ticket{
		ID:         uuid.New(),
		PurchaseID: purchaseID,
		ItemID:     ticket.ItemID,
		Status:     models.TicketPending,
	}
	err := store.CreateBatch(context.Background(), []models.Ticket{dup})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCancelByPurchaseSkipsTerminalTickets(t *testing.T) {
	store := NewMemoryTicketStore()
	purchaseID := uuid.New()

	pending := seedTicket(t, store, purchaseID, models.TicketPending)
	validated := seedTicket(t, store, purchaseID, models.TicketValidated)
	used := seedTicket(t, store, purchaseID, models.TicketUsed)
	seedTicket(t, store, uuid.New(), models.TicketPending) // other purchase

	cancelled, err := store.CancelByPurchase(context.Background(), purchaseID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cancelled)

	for _, id := range []uuid.UUID{pending.ID, validated.ID} {
		ticket, err := store.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.TicketCancelled, ticket.Status)
	}

	ticket, err := store.GetByID(context.Background(), used.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, ticket.Status)
}

func TestTicketLookupByCodeAndQR(t *testing.T) {
	store := NewMemoryTicketStore()
	ticket := seedTicket(t, store, uuid.New(), models.TicketPending)

	byCode, err := store.GetByCode(context.Background(), ticket.VerificationCode)
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, ticket.ID, byCode.ID)

	byQR, err := store.GetByQRCode(context.Background(), ticket.QRCode)
	require.NoError(t, err)
	require.NotNil(t, byQR)
	assert.Equal(t, ticket.ID, byQR.ID)

	missing, err := store.GetByCode(context.Background(), "NOPE1234")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCodeStoreUniquePerType(t *testing.T) {
	store := NewMemoryCodeStore()

	code := &models.VerificationCode{ID: uuid.New(), Code: "AAAA1111", Type: models.CodeTypePurchase, RelatedID: uuid.New(), IsActive: true}
	require.NoError(t, store.Insert(context.Background(), code))

	dup := &models.VerificationCode{ID: uuid.New(), Code: "AAAA1111", Type: models.CodeTypePurchase, RelatedID: uuid.New(), IsActive: true}
	assert.ErrorIs(t, store.Insert(context.Background(), dup), apperrors.ErrConflict)

	// The same code value is fine under a different scope.
	other := &models.VerificationCode{ID: uuid.New(), Code: "AAAA1111", Type: models.CodeTypeTicket, RelatedID: uuid.New(), IsActive: true}
	assert.NoError(t, store.Insert(context.Background(), other))
}

func TestValidationStoreAppendAndList(t *testing.T) {
	store := NewMemoryValidationStore()
	ticketID := uuid.New()

	for _, location := range []string{"puerta norte", "puerta sur"} {
		require.NoError(t, store.Append(context.Background(), &models.PorteriaValidation{
			ID:          uuid.New(),
			TicketID:    ticketID,
			StaffID:     7,
			Location:    location,
			ValidatedAt: time.Now(),
		}))
	}
	require.NoError(t, store.Append(context.Background(), &models.PorteriaValidation{
		ID:       uuid.New(),
		TicketID: uuid.New(),
		StaffID:  7,
	}))

	validations, err := store.ListByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	require.Len(t, validations, 2)
	assert.Equal(t, "puerta norte", validations[0].Location)
	assert.Equal(t, "puerta sur", validations[1].Location)
}
