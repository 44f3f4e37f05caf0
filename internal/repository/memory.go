package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
)

// In-memory implementation of the storage capability, used by tests and
// local development. The single mutex per store gives the same atomicity
// the Postgres implementation gets from single-statement conditional
// updates. All getters return copies so callers never alias store state.

type MemoryPurchaseStore struct {
	mu        sync.Mutex
	purchases map[uuid.UUID]*models.Purchase
	items     map[uuid.UUID][]models.PurchaseItem
}

func NewMemoryPurchaseStore() *MemoryPurchaseStore {
	return &MemoryPurchaseStore{
		purchases: make(map[uuid.UUID]*models.Purchase),
		items:     make(map[uuid.UUID][]models.PurchaseItem),
	}
}

func (s *MemoryPurchaseStore) Create(ctx context.Context, purchase *models.Purchase, items []models.PurchaseItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.purchases {
		if existing.VerificationCode == purchase.VerificationCode {
			return fmt.Errorf("purchase verification code taken: %w", apperrors.ErrConflict)
		}
	}

	purchase.CreatedAt = time.Now()
	stored := *purchase
	s.purchases[purchase.ID] = &stored

	storedItems := make([]models.PurchaseItem, len(items))
	copy(storedItems, items)
	for i := range storedItems {
		storedItems[i].PurchaseID = purchase.ID
	}
	s.items[purchase.ID] = storedItems

	return nil
}

func (s *MemoryPurchaseStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return nil, nil
	}
	clone := *purchase
	return &clone, nil
}

func (s *MemoryPurchaseStore) GetItems(ctx context.Context, purchaseID uuid.UUID) ([]models.PurchaseItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.PurchaseItem, len(s.items[purchaseID]))
	copy(items, s.items[purchaseID])
	return items, nil
}

func (s *MemoryPurchaseStore) List(ctx context.Context, status *models.PurchaseStatus) ([]models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purchases []models.Purchase
	for _, purchase := range s.purchases {
		if status != nil && purchase.Status != *status {
			continue
		}
		purchases = append(purchases, *purchase)
	}
	return purchases, nil
}

func (s *MemoryPurchaseStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.PurchaseStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[id]
	if !ok || purchase.Status != from {
		return false, nil
	}

	purchase.Status = to
	switch to {
	case models.PurchasePaymentSubmitted:
		purchase.PaymentSubmittedAt = &at
	case models.PurchasePaymentVerified:
		purchase.PaymentVerifiedAt = &at
	case models.PurchaseCompleted:
		purchase.CompletedAt = &at
	}

	return true, nil
}

func (s *MemoryPurchaseStore) SetPaymentProof(ctx context.Context, id uuid.UUID, proofURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if purchase, ok := s.purchases[id]; ok {
		url := proofURL
		purchase.PaymentProofURL = &url
	}
	return nil
}

func (s *MemoryPurchaseStore) GetStalePending(ctx context.Context, before time.Time) ([]models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purchases []models.Purchase
	for _, purchase := range s.purchases {
		if purchase.Status == models.PurchasePendingPayment && purchase.CreatedAt.Before(before) {
			purchases = append(purchases, *purchase)
		}
	}
	return purchases, nil
}

func (s *MemoryPurchaseStore) MarkNotified(ctx context.Context, id uuid.UUID, kind models.NotificationKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchase, ok := s.purchases[id]
	if !ok {
		return false, nil
	}

	switch kind {
	case models.NotifPaymentReceived:
		if purchase.NotifiedReceived {
			return false, nil
		}
		purchase.NotifiedReceived = true
	case models.NotifPaymentVerified:
		if purchase.NotifiedVerified {
			return false, nil
		}
		purchase.NotifiedVerified = true
	case models.NotifTicketsReady:
		if purchase.NotifiedTickets {
			return false, nil
		}
		purchase.NotifiedTickets = true
	default:
		return false, fmt.Errorf("unknown notification kind %q", kind)
	}

	return true, nil
}

type MemoryTicketStore struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*models.Ticket
}

func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[uuid.UUID]*models.Ticket)}
}

func (s *MemoryTicketStore) CreateBatch(ctx context.Context, tickets []models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mirror the UNIQUE(purchase_id, item_id) constraint.
	for i := range tickets {
		for _, existing := range s.tickets {
			if existing.PurchaseID == tickets[i].PurchaseID && existing.ItemID == tickets[i].ItemID {
				return fmt.Errorf("tickets already issued for purchase %s: %w", tickets[i].PurchaseID, apperrors.ErrConflict)
			}
		}
	}

	now := time.Now()
	for i := range tickets {
		tickets[i].CreatedAt = now
		stored := tickets[i]
		s.tickets[stored.ID] = &stored
	}

	return nil
}

func (s *MemoryTicketStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, nil
	}
	clone := *ticket
	return &clone, nil
}

func (s *MemoryTicketStore) GetByPurchaseID(ctx context.Context, purchaseID uuid.UUID) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tickets []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.PurchaseID == purchaseID {
			tickets = append(tickets, *ticket)
		}
	}
	return tickets, nil
}

func (s *MemoryTicketStore) GetByCode(ctx context.Context, code string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ticket := range s.tickets {
		if ticket.VerificationCode == code {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryTicketStore) GetByQRCode(ctx context.Context, qrCode string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ticket := range s.tickets {
		if ticket.QRCode == qrCode {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryTicketStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.TicketStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok || ticket.Status != from {
		return false, nil
	}

	ticket.Status = to
	switch to {
	case models.TicketValidated:
		ticket.ValidatedAt = &at
	case models.TicketUsed:
		ticket.UsedAt = &at
	}

	return true, nil
}

func (s *MemoryTicketStore) CancelByPurchase(ctx context.Context, purchaseID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cancelled int64
	for _, ticket := range s.tickets {
		if ticket.PurchaseID != purchaseID {
			continue
		}
		if ticket.Status == models.TicketPending || ticket.Status == models.TicketValidated {
			ticket.Status = models.TicketCancelled
			cancelled++
		}
	}
	return cancelled, nil
}

type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]*models.VerificationCode // keyed by type + "/" + code
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: make(map[string]*models.VerificationCode)}
}

func (s *MemoryCodeStore) Insert(ctx context.Context, code *models.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := code.Type + "/" + code.Code
	if _, exists := s.codes[key]; exists {
		return fmt.Errorf("code %s already exists for type %s: %w", code.Code, code.Type, apperrors.ErrConflict)
	}

	code.CreatedAt = time.Now()
	stored := *code
	s.codes[key] = &stored
	return nil
}

func (s *MemoryCodeStore) GetByCode(ctx context.Context, codeType, code string) (*models.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.codes[codeType+"/"+code]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (s *MemoryCodeStore) Deactivate(ctx context.Context, codeType, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.codes[codeType+"/"+code]; ok {
		record.IsActive = false
	}
	return nil
}

type MemoryValidationStore struct {
	mu          sync.Mutex
	validations []models.PorteriaValidation
}

func NewMemoryValidationStore() *MemoryValidationStore {
	return &MemoryValidationStore{}
}

func (s *MemoryValidationStore) Append(ctx context.Context, validation *models.PorteriaValidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.validations = append(s.validations, *validation)
	return nil
}

func (s *MemoryValidationStore) ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]models.PorteriaValidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.PorteriaValidation
	for _, v := range s.validations {
		if v.TicketID == ticketID {
			result = append(result, v)
		}
	}
	return result, nil
}

type MemoryStaffStore struct {
	mu    sync.Mutex
	staff map[int64]*models.Staff
}

func NewMemoryStaffStore() *MemoryStaffStore {
	return &MemoryStaffStore{staff: make(map[int64]*models.Staff)}
}

// Put seeds an account; used by tests and local setups.
func (s *MemoryStaffStore) Put(staff models.Staff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[staff.ID] = &staff
}

func (s *MemoryStaffStore) GetByEmail(ctx context.Context, email string) (*models.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, staff := range s.staff {
		if staff.Email == email {
			clone := *staff
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *MemoryStaffStore) GetByID(ctx context.Context, id int64) (*models.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staff, ok := s.staff[id]
	if !ok {
		return nil, nil
	}
	clone := *staff
	return &clone, nil
}

func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Purchases:   NewMemoryPurchaseStore(),
		Tickets:     NewMemoryTicketStore(),
		Codes:       NewMemoryCodeStore(),
		Validations: NewMemoryValidationStore(),
		Staff:       NewMemoryStaffStore(),
	}
}
