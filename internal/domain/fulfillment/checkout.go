package fulfillment

import (
	"context"
	"strings"
	"time"

	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutDraft is an order that waits behind a hosted checkout session.
// It is never an Order until Finalize claims it by setting OrderID.
type CheckoutDraft struct {
	ID          uuid.UUID
	SessionID   string
	Buyer       Buyer
	ProductID   uuid.UUID
	ProductName string
	SellerEmail string
	UnitPrice   decimal.Decimal
	Quantity    int
	TotalPrice  decimal.Decimal
	Contact     Contact
	OrderID     *uuid.UUID
	CreatedAt   time.Time
	FinalizedAt *time.Time
}

// NewCheckoutDraft validates a deferred order the same way NewOrder validates a direct one
func NewCheckoutDraft(buyer Buyer, product *catalog.ProductSnapshot, quantity int, contact Contact) (*CheckoutDraft, error) {
	// Reuse the order constructor so both paths share one set of rules.
	probe, err := NewOrder(NewOrderParams{
		Buyer:    buyer,
		Product:  product,
		Quantity: quantity,
		Contact:  contact,
		Payment:  HostedCheckout{SessionID: "pending"},
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutDraft{
		ID:          uuid.New(),
		Buyer:       probe.Buyer,
		ProductID:   probe.ProductID,
		ProductName: probe.ProductName,
		SellerEmail: probe.SellerEmail,
		UnitPrice:   probe.UnitPrice,
		Quantity:    probe.Quantity,
		TotalPrice:  probe.TotalPrice,
		Contact:     probe.Contact,
		CreatedAt:   time.Now(),
	}, nil
}

// AttachSession records the provider session id returned by the gateway
func (d *CheckoutDraft) AttachSession(sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return shared.NewValidationError("Checkout session id is required")
	}
	d.SessionID = sessionID
	return nil
}

// IsFinalized reports whether an order has already been created from this draft
func (d *CheckoutDraft) IsFinalized() bool {
	return d.OrderID != nil
}

// ToOrder materializes the draft as a Pending order at the price the buyer paid.
// Availability is enforced by the conditional stock decrement, not re-read here.
func (d *CheckoutDraft) ToOrder() (*Order, error) {
	if d.SessionID == "" {
		return nil, shared.NewValidationError("Checkout draft has no session")
	}
	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Buyer:             d.Buyer,
		SellerEmail:       d.SellerEmail,
		ProductID:         d.ProductID,
		ProductName:       d.ProductName,
		UnitPrice:         d.UnitPrice,
		Quantity:          d.Quantity,
		TotalPrice:        d.TotalPrice,
		Contact:           d.Contact,
		Payment:           HostedCheckout{SessionID: d.SessionID},
		ApprovalStatus:    ApprovalStatusPending,
		FulfillmentStatus: FulfillmentNotStarted,
	}
	order.AddDomainEvent(NewOrderPlacedEvent(order))
	return order, nil
}

// CheckoutSession is what the gateway returns when a hosted session is opened
type CheckoutSession struct {
	SessionID   string
	RedirectURL string
}

// CheckoutSessionStatus is the provider's view of a session
type CheckoutSessionStatus struct {
	SessionID   string
	Completed   bool
	AmountTotal decimal.Decimal
}

// CheckoutGateway is the hosted payment provider.
// Implementations must not retry; callers decide whether to retry.
type CheckoutGateway interface {
	// CreateSession opens a hosted payment session for the draft
	CreateSession(ctx context.Context, draft *CheckoutDraft) (*CheckoutSession, error)

	// GetSessionStatus reports whether the buyer completed payment
	GetSessionStatus(ctx context.Context, sessionID string) (*CheckoutSessionStatus, error)
}
