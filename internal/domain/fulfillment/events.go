package fulfillment

import (
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderPlaced          = "OrderPlaced"
	EventTypeOrderApproved        = "OrderApproved"
	EventTypeOrderRejected        = "OrderRejected"
	EventTypeOrderCancelled       = "OrderCancelled"
	EventTypeOrderTrackingUpdated = "OrderTrackingUpdated"
)

// OrderPlacedEvent is raised when an order is persisted with its stock decremented
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	BuyerUID      string          `json:"buyer_uid"`
	BuyerEmail    string          `json:"buyer_email"`
	SellerEmail   string          `json:"seller_email"`
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      int             `json:"quantity"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

// NewOrderPlacedEvent creates a new OrderPlacedEvent
func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		BuyerUID:        o.Buyer.UID,
		BuyerEmail:      o.Buyer.Email,
		SellerEmail:     o.SellerEmail,
		ProductID:       o.ProductID,
		Quantity:        o.Quantity,
		TotalPrice:      o.TotalPrice,
		PaymentMethod:   o.PaymentMethod(),
	}
}

// OrderDecisionEvent is the payload shared by approve, reject and cancel
type OrderDecisionEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID      `json:"order_id"`
	ProductID uuid.UUID      `json:"product_id"`
	Quantity  int            `json:"quantity"`
	Status    ApprovalStatus `json:"status"`
}

func newOrderDecisionEvent(eventType string, o *Order) *OrderDecisionEvent {
	return &OrderDecisionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		ProductID:       o.ProductID,
		Quantity:        o.Quantity,
		Status:          o.ApprovalStatus,
	}
}

// NewOrderApprovedEvent creates the event raised by Approve
func NewOrderApprovedEvent(o *Order) *OrderDecisionEvent {
	return newOrderDecisionEvent(EventTypeOrderApproved, o)
}

// NewOrderRejectedEvent creates the event raised by Reject
func NewOrderRejectedEvent(o *Order) *OrderDecisionEvent {
	return newOrderDecisionEvent(EventTypeOrderRejected, o)
}

// NewOrderCancelledEvent creates the event raised by Cancel
func NewOrderCancelledEvent(o *Order) *OrderDecisionEvent {
	return newOrderDecisionEvent(EventTypeOrderCancelled, o)
}

// OrderTrackingUpdatedEvent is raised when the tracking ledger is replaced
type OrderTrackingUpdatedEvent struct {
	shared.BaseDomainEvent
	OrderID           uuid.UUID         `json:"order_id"`
	StepCount         int               `json:"step_count"`
	LatestStatus      string            `json:"latest_status,omitempty"`
	CurrentLocation   string            `json:"current_location,omitempty"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`
}

// NewOrderTrackingUpdatedEvent creates a new OrderTrackingUpdatedEvent
func NewOrderTrackingUpdatedEvent(o *Order) *OrderTrackingUpdatedEvent {
	ev := &OrderTrackingUpdatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeOrderTrackingUpdated, AggregateTypeOrder, o.ID),
		OrderID:           o.ID,
		StepCount:         len(o.Tracking.Steps),
		CurrentLocation:   o.Tracking.EffectiveLocation(),
		FulfillmentStatus: o.FulfillmentStatus,
	}
	if latest, ok := o.Tracking.Latest(); ok {
		ev.LatestStatus = latest.Status
	}
	return ev
}
