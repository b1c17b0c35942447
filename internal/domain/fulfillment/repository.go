package fulfillment

import (
	"context"
	"errors"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrCheckoutAlreadyClaimed is returned when another caller finalized the session first.
// It is resolved inside the application layer and never reaches clients.
var ErrCheckoutAlreadyClaimed = errors.New("fulfillment: checkout session already claimed")

// OrderFilter narrows order queries. Empty fields do not filter.
type OrderFilter struct {
	shared.Filter
	BuyerUID    string
	SellerEmail string
	Status      *ApprovalStatus
}

// OrderRepository is the Order Store
type OrderRepository interface {
	// FindByID finds an order by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByCheckoutSession finds the order created from a checkout session
	FindByCheckoutSession(ctx context.Context, sessionID string) (*Order, error)

	// FindAll returns orders matching the filter and the total count
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)

	// CreateWithStockDecrement inserts a new order and decrements product stock by its quantity
	// in one transaction. Returns shared.ErrInsufficientStock and persists nothing when the
	// remaining stock is below the quantity.
	CreateWithStockDecrement(ctx context.Context, order *Order) error

	// FinalizeCheckout claims the draft for order, decrements stock and inserts order in one
	// transaction. Returns ErrCheckoutAlreadyClaimed if another caller holds the claim.
	FinalizeCheckout(ctx context.Context, draft *CheckoutDraft, order *Order) error

	// SaveWithLock persists a changed order with an optimistic lock on Version
	SaveWithLock(ctx context.Context, order *Order) error

	// SaveWithStockRestore persists a changed order with an optimistic lock and gives its
	// quantity back to the product in the same transaction
	SaveWithStockRestore(ctx context.Context, order *Order) error
}

// CheckoutDraftRepository stores drafts between session creation and finalize
type CheckoutDraftRepository interface {
	// Save inserts a draft keyed by its session id
	Save(ctx context.Context, draft *CheckoutDraft) error

	// FindBySessionID finds the draft of a checkout session
	FindBySessionID(ctx context.Context, sessionID string) (*CheckoutDraft, error)
}
