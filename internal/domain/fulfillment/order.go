package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Buyer is the buyer identity snapshotted onto an order
type Buyer struct {
	UID   string
	Email string
}

// Contact is the delivery contact of an order
type Contact struct {
	FirstName     string
	LastName      string
	ContactNumber string
	Address       string
	Notes         string
}

// Validate requires the fields a courier needs
func (c Contact) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" || strings.TrimSpace(c.LastName) == "" {
		return shared.NewValidationError("First and last name are required")
	}
	if strings.TrimSpace(c.ContactNumber) == "" {
		return shared.NewValidationError("Contact number is required")
	}
	if strings.TrimSpace(c.Address) == "" {
		return shared.NewValidationError("Delivery address is required")
	}
	if len(c.Notes) > 1000 {
		return shared.NewValidationError("Notes cannot exceed 1000 characters")
	}
	return nil
}

func (c Contact) trimmed() Contact {
	return Contact{
		FirstName:     strings.TrimSpace(c.FirstName),
		LastName:      strings.TrimSpace(c.LastName),
		ContactNumber: strings.TrimSpace(c.ContactNumber),
		Address:       strings.TrimSpace(c.Address),
		Notes:         strings.TrimSpace(c.Notes),
	}
}

// Order is the aggregate root of the fulfillment context.
// TotalPrice is fixed at construction; approval and fulfillment are tracked separately.
type Order struct {
	shared.BaseAggregateRoot
	Buyer             Buyer
	SellerEmail       string
	ProductID         uuid.UUID
	ProductName       string
	UnitPrice         decimal.Decimal
	Quantity          int
	TotalPrice        decimal.Decimal
	Contact           Contact
	Payment           PaymentDetails
	ApprovalStatus    ApprovalStatus
	FulfillmentStatus FulfillmentStatus
	Tracking          TrackingLedger
	ApprovedAt        *time.Time
	RejectedAt        *time.Time
	CancelledAt       *time.Time
}

// NewOrderParams holds everything needed to place an order
type NewOrderParams struct {
	Buyer    Buyer
	Product  *catalog.ProductSnapshot
	Quantity int
	Contact  Contact
	Payment  PaymentDetails
}

// ValidateQuantity checks minOrder <= quantity <= availableQuantity against a product snapshot
func ValidateQuantity(product *catalog.ProductSnapshot, quantity int) error {
	minOrder := product.EffectiveMinOrder()
	if quantity < minOrder {
		return shared.NewValidationError(fmt.Sprintf("Quantity must be at least the minimum order of %d", minOrder)).
			WithDetail("min_order", minOrder)
	}
	if quantity > product.AvailableQuantity {
		return shared.NewValidationError(fmt.Sprintf("Quantity cannot exceed the available %d", product.AvailableQuantity)).
			WithDetail("available_quantity", product.AvailableQuantity)
	}
	return nil
}

// NewOrder creates a Pending order from a product snapshot.
// Stock is not touched here; the repository decrements it atomically when persisting.
func NewOrder(p NewOrderParams) (*Order, error) {
	if strings.TrimSpace(p.Buyer.UID) == "" || strings.TrimSpace(p.Buyer.Email) == "" {
		return nil, shared.NewValidationError("Buyer identity is required")
	}
	if p.Product == nil || p.Product.ID == uuid.Nil {
		return nil, shared.NewValidationError("Product is required")
	}
	if p.Product.Price.IsNegative() {
		return nil, shared.NewValidationError("Product price cannot be negative")
	}
	if err := ValidateQuantity(p.Product, p.Quantity); err != nil {
		return nil, err
	}
	if err := p.Contact.Validate(); err != nil {
		return nil, err
	}
	if p.Payment == nil {
		return nil, shared.NewValidationError("Payment method is required")
	}
	if err := p.Payment.Validate(); err != nil {
		return nil, err
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Buyer:             Buyer{UID: strings.TrimSpace(p.Buyer.UID), Email: strings.ToLower(strings.TrimSpace(p.Buyer.Email))},
		SellerEmail:       strings.ToLower(strings.TrimSpace(p.Product.ManagerEmail)),
		ProductID:         p.Product.ID,
		ProductName:       p.Product.Name,
		UnitPrice:         p.Product.Price,
		Quantity:          p.Quantity,
		TotalPrice:        p.Product.Price.Mul(decimal.NewFromInt(int64(p.Quantity))),
		Contact:           p.Contact.trimmed(),
		Payment:           p.Payment,
		ApprovalStatus:    ApprovalStatusPending,
		FulfillmentStatus: FulfillmentNotStarted,
	}

	order.AddDomainEvent(NewOrderPlacedEvent(order))

	return order, nil
}

// PaymentMethod returns the method of the order's payment details
func (o *Order) PaymentMethod() PaymentMethod {
	if o.Payment == nil {
		return ""
	}
	return o.Payment.Method()
}

// CheckoutSessionID returns the originating checkout session, or "" for direct orders
func (o *Order) CheckoutSessionID() string {
	if hc, ok := o.Payment.(HostedCheckout); ok {
		return hc.SessionID
	}
	return ""
}

// Approve accepts a Pending order
func (o *Order) Approve() error {
	if !o.ApprovalStatus.CanTransitionTo(ApprovalStatusApproved) {
		return shared.NewConflictError(fmt.Sprintf("Cannot approve order in %s status", o.ApprovalStatus))
	}

	now := time.Now()
	o.ApprovalStatus = ApprovalStatusApproved
	o.ApprovedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderApprovedEvent(o))

	return nil
}

// Reject declines a Pending order. Whether stock comes back is a policy of the caller.
func (o *Order) Reject() error {
	if !o.ApprovalStatus.CanTransitionTo(ApprovalStatusRejected) {
		return shared.NewConflictError(fmt.Sprintf("Cannot reject order in %s status", o.ApprovalStatus))
	}

	now := time.Now()
	o.ApprovalStatus = ApprovalStatusRejected
	o.RejectedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderRejectedEvent(o))

	return nil
}

// Cancel withdraws a Pending order on the buyer's request.
// The decremented stock must be restored in the same transaction that persists this change.
func (o *Order) Cancel() error {
	if !o.ApprovalStatus.CanTransitionTo(ApprovalStatusCancelled) {
		return shared.NewConflictError(fmt.Sprintf("Cannot cancel order in %s status", o.ApprovalStatus))
	}

	now := time.Now()
	o.ApprovalStatus = ApprovalStatusCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCancelledEvent(o))

	return nil
}

// ReplaceTracking discards the current ledger and installs steps as the authoritative list.
// Only approved orders have a ledger.
func (o *Order) ReplaceTracking(steps []TrackingStep, currentLocation string) error {
	if o.ApprovalStatus != ApprovalStatusApproved {
		return shared.NewConflictError(fmt.Sprintf("Cannot update tracking of order in %s status", o.ApprovalStatus))
	}
	if err := validateTrackingSteps(steps); err != nil {
		return err
	}

	next := TrackingLedger{
		Steps:           append([]TrackingStep(nil), steps...),
		CurrentLocation: strings.TrimSpace(currentLocation),
	}
	derived := next.DerivedStatus()
	if !o.FulfillmentStatus.CanTransitionTo(derived) {
		return shared.NewConflictError(fmt.Sprintf("Cannot move fulfillment from %s to %s", o.FulfillmentStatus, derived))
	}

	now := time.Now()
	next.UpdatedAt = &now
	o.Tracking = next
	o.FulfillmentStatus = derived
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderTrackingUpdatedEvent(o))

	return nil
}

// IsPending returns true if the order awaits a decision
func (o *Order) IsPending() bool {
	return o.ApprovalStatus == ApprovalStatusPending
}

// IsTerminal returns true if the approval status can no longer change
func (o *Order) IsTerminal() bool {
	return o.ApprovalStatus.IsTerminal()
}

// DecidedAt returns the timestamp of the terminal transition, if any
func (o *Order) DecidedAt() *time.Time {
	switch o.ApprovalStatus {
	case ApprovalStatusApproved:
		return o.ApprovedAt
	case ApprovalStatusRejected:
		return o.RejectedAt
	case ApprovalStatusCancelled:
		return o.CancelledAt
	}
	return nil
}
