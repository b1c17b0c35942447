package fulfillment

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory order store with the same atomicity as the SQL one:
// each write holds the lock for its whole claim, decrement and insert.
type memoryStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]catalog.ProductSnapshot
	orders   map[uuid.UUID]fulfillment.Order
	drafts   map[string]fulfillment.CheckoutDraft
	sessions map[string]uuid.UUID
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		products: make(map[uuid.UUID]catalog.ProductSnapshot),
		orders:   make(map[uuid.UUID]fulfillment.Order),
		drafts:   make(map[string]fulfillment.CheckoutDraft),
		sessions: make(map[string]uuid.UUID),
	}
}

func (s *memoryStore) addProduct(p catalog.ProductSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *memoryStore) stock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].AvailableQuantity
}

func (s *memoryStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memoryStore) FindSnapshot(_ context.Context, id uuid.UUID) (*catalog.ProductSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (s *memoryStore) FindByID(_ context.Context, id uuid.UUID) (*fulfillment.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &o, nil
}

func (s *memoryStore) FindByCheckoutSession(_ context.Context, sessionID string) (*fulfillment.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[sessionID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	o := s.orders[id]
	return &o, nil
}

func (s *memoryStore) FindAll(_ context.Context, filter fulfillment.OrderFilter) ([]fulfillment.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fulfillment.Order, 0)
	for _, o := range s.orders {
		if filter.BuyerUID != "" && o.Buyer.UID != filter.BuyerUID {
			continue
		}
		if filter.SellerEmail != "" && o.SellerEmail != filter.SellerEmail {
			continue
		}
		if filter.Status != nil && o.ApprovalStatus != *filter.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (s *memoryStore) decrement(productID uuid.UUID, qty int) error {
	p, ok := s.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	if p.AvailableQuantity < qty {
		return shared.ErrInsufficientStock
	}
	p.AvailableQuantity -= qty
	s.products[productID] = p
	return nil
}

func (s *memoryStore) CreateWithStockDecrement(_ context.Context, order *fulfillment.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.decrement(order.ProductID, order.Quantity); err != nil {
		return err
	}
	s.orders[order.ID] = *order
	return nil
}

func (s *memoryStore) FinalizeCheckout(_ context.Context, draft *fulfillment.CheckoutDraft, order *fulfillment.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.drafts[draft.SessionID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.OrderID != nil {
		return fulfillment.ErrCheckoutAlreadyClaimed
	}
	if err := s.decrement(order.ProductID, order.Quantity); err != nil {
		return err
	}
	now := time.Now()
	stored.OrderID = &order.ID
	stored.FinalizedAt = &now
	s.drafts[draft.SessionID] = stored
	s.orders[order.ID] = *order
	s.sessions[draft.SessionID] = order.ID
	return nil
}

func (s *memoryStore) save(order *fulfillment.Order, restore bool) error {
	current, ok := s.orders[order.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if current.Version != order.Version {
		return shared.ErrConcurrencyConflict
	}
	if restore {
		p := s.products[order.ProductID]
		p.AvailableQuantity += order.Quantity
		s.products[order.ProductID] = p
	}
	order.Version++
	s.orders[order.ID] = *order
	return nil
}

func (s *memoryStore) SaveWithLock(_ context.Context, order *fulfillment.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(order, false)
}

func (s *memoryStore) SaveWithStockRestore(_ context.Context, order *fulfillment.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(order, true)
}

// memoryDrafts shares the store's lock and draft table
type memoryDrafts struct{ *memoryStore }

func (d memoryDrafts) Save(_ context.Context, draft *fulfillment.CheckoutDraft) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drafts[draft.SessionID] = *draft
	return nil
}

func (d memoryDrafts) FindBySessionID(_ context.Context, sessionID string) (*fulfillment.CheckoutDraft, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	draft, ok := d.drafts[sessionID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &draft, nil
}

// staticActors resolves identities from a fixed account table, keyed by email
type staticActors struct {
	mu       sync.Mutex
	accounts map[string]*identity.Account
}

func newStaticActors() *staticActors {
	return &staticActors{accounts: make(map[string]*identity.Account)}
}

func (a *staticActors) add(t *testing.T, uid, email string, role identity.Role, status identity.AccountStatus) identity.Identity {
	t.Helper()
	acc, err := identity.NewAccount(uid, email, "Test", role)
	require.NoError(t, err)
	switch status {
	case identity.AccountStatusActive:
		require.NoError(t, acc.Activate())
	case identity.AccountStatusSuspended:
		require.NoError(t, acc.Suspend("fraud review"))
	}
	a.mu.Lock()
	a.accounts[acc.Email] = acc
	a.mu.Unlock()
	return identity.Identity{UID: uid, Email: email}
}

func (a *staticActors) Resolve(_ context.Context, id identity.Identity) (identity.Actor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.accounts[identity.NormalizeEmail(id.Email)]
	if !ok {
		return identity.Actor{}, shared.NewPermissionDeniedError("No account")
	}
	return identity.NewActor(id, acc), nil
}

// MockCheckoutGateway is a mock implementation of fulfillment.CheckoutGateway
type MockCheckoutGateway struct {
	mock.Mock
}

func (m *MockCheckoutGateway) CreateSession(ctx context.Context, draft *fulfillment.CheckoutDraft) (*fulfillment.CheckoutSession, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.CheckoutSession), args.Error(1)
}

func (m *MockCheckoutGateway) GetSessionStatus(ctx context.Context, sessionID string) (*fulfillment.CheckoutSessionStatus, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.CheckoutSessionStatus), args.Error(1)
}

// MockPhotoUploadSigner is a mock implementation of PhotoUploadSigner
type MockPhotoUploadSigner struct {
	mock.Mock
}

func (m *MockPhotoUploadSigner) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func testProduct(option catalog.PaymentOption) catalog.ProductSnapshot {
	return catalog.ProductSnapshot{
		ID:                uuid.New(),
		Name:              "Denim Jacket",
		ManagerEmail:      "manager@garments.com",
		Price:             decimal.NewFromInt(10),
		AvailableQuantity: 3,
		MinOrder:          1,
		PaymentOption:     option,
	}
}

func testContact() fulfillment.Contact {
	return fulfillment.Contact{
		FirstName:     "Karim",
		LastName:      "Uddin",
		ContactNumber: "01711000000",
		Address:       "House 7, Road 3, Dhaka",
	}
}
