package models

import (
	"time"

	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	BuyerUID             string                        `gorm:"type:varchar(128);not null;index"`
	BuyerEmail           string                        `gorm:"type:varchar(320);not null"`
	SellerEmail          string                        `gorm:"type:varchar(320);not null;index"`
	ProductID            uuid.UUID                     `gorm:"type:uuid;not null;index"`
	ProductName          string                        `gorm:"type:varchar(200);not null"`
	UnitPrice            decimal.Decimal               `gorm:"type:decimal(12,2);not null"`
	Quantity             int                           `gorm:"not null"`
	TotalPrice           decimal.Decimal               `gorm:"type:decimal(14,2);not null"`
	ContactFirstName     string                        `gorm:"type:varchar(100);not null"`
	ContactLastName      string                        `gorm:"type:varchar(100);not null"`
	ContactNumber        string                        `gorm:"type:varchar(30);not null"`
	DeliveryAddress      string                        `gorm:"type:text;not null"`
	Notes                string                        `gorm:"type:text"`
	PaymentMethod        fulfillment.PaymentMethod     `gorm:"type:varchar(20);not null"`
	PaymentMobileNumber  string                        `gorm:"type:varchar(20)"`
	PaymentTransactionID string                        `gorm:"type:varchar(64)"`
	CheckoutSessionID    *string                       `gorm:"type:varchar(255);uniqueIndex"`
	ApprovalStatus       fulfillment.ApprovalStatus    `gorm:"type:varchar(20);not null;default:'Pending';index"`
	FulfillmentStatus    fulfillment.FulfillmentStatus `gorm:"type:varchar(20);not null;default:'NotStarted'"`
	CurrentLocation      string                        `gorm:"type:varchar(255)"`
	TrackingUpdatedAt    *time.Time
	TrackingSteps        []TrackingStepModel `gorm:"foreignKey:OrderID;references:ID"`
	ApprovedAt           *time.Time
	RejectedAt           *time.Time
	CancelledAt          *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *fulfillment.Order {
	order := &fulfillment.Order{
		BaseAggregateRoot: m.root(),
		Buyer:             fulfillment.Buyer{UID: m.BuyerUID, Email: m.BuyerEmail},
		SellerEmail:       m.SellerEmail,
		ProductID:         m.ProductID,
		ProductName:       m.ProductName,
		UnitPrice:         m.UnitPrice,
		Quantity:          m.Quantity,
		TotalPrice:        m.TotalPrice,
		Contact: fulfillment.Contact{
			FirstName:     m.ContactFirstName,
			LastName:      m.ContactLastName,
			ContactNumber: m.ContactNumber,
			Address:       m.DeliveryAddress,
			Notes:         m.Notes,
		},
		Payment:           m.paymentToDomain(),
		ApprovalStatus:    m.ApprovalStatus,
		FulfillmentStatus: m.FulfillmentStatus,
		Tracking: fulfillment.TrackingLedger{
			CurrentLocation: m.CurrentLocation,
			UpdatedAt:       m.TrackingUpdatedAt,
		},
		ApprovedAt:  m.ApprovedAt,
		RejectedAt:  m.RejectedAt,
		CancelledAt: m.CancelledAt,
	}

	if len(m.TrackingSteps) > 0 {
		order.Tracking.Steps = make([]fulfillment.TrackingStep, len(m.TrackingSteps))
		for i := range m.TrackingSteps {
			order.Tracking.Steps[i] = m.TrackingSteps[i].ToDomain()
		}
	}

	return order
}

func (m *OrderModel) paymentToDomain() fulfillment.PaymentDetails {
	switch m.PaymentMethod {
	case fulfillment.PaymentMethodManualProof:
		return fulfillment.ManualProof{MobileNumber: m.PaymentMobileNumber, TransactionID: m.PaymentTransactionID}
	case fulfillment.PaymentMethodHostedCheckout:
		var sessionID string
		if m.CheckoutSessionID != nil {
			sessionID = *m.CheckoutSessionID
		}
		return fulfillment.HostedCheckout{SessionID: sessionID}
	default:
		return fulfillment.CashOnDelivery{}
	}
}

// FromDomain populates the persistence model from a domain Order entity.
// Tracking steps are mapped with their position in the submitted list.
func (m *OrderModel) FromDomain(o *fulfillment.Order) {
	m.AggregateModel = aggregateOf(o.BaseAggregateRoot)
	m.BuyerUID = o.Buyer.UID
	m.BuyerEmail = o.Buyer.Email
	m.SellerEmail = o.SellerEmail
	m.ProductID = o.ProductID
	m.ProductName = o.ProductName
	m.UnitPrice = o.UnitPrice
	m.Quantity = o.Quantity
	m.TotalPrice = o.TotalPrice
	m.ContactFirstName = o.Contact.FirstName
	m.ContactLastName = o.Contact.LastName
	m.ContactNumber = o.Contact.ContactNumber
	m.DeliveryAddress = o.Contact.Address
	m.Notes = o.Contact.Notes
	m.PaymentMethod = o.PaymentMethod()
	m.PaymentMobileNumber = ""
	m.PaymentTransactionID = ""
	m.CheckoutSessionID = nil
	switch p := o.Payment.(type) {
	case fulfillment.ManualProof:
		m.PaymentMobileNumber = fulfillment.NormalizeMobileNumber(p.MobileNumber)
		m.PaymentTransactionID = p.TransactionID
	case fulfillment.HostedCheckout:
		sessionID := p.SessionID
		m.CheckoutSessionID = &sessionID
	}
	m.ApprovalStatus = o.ApprovalStatus
	m.FulfillmentStatus = o.FulfillmentStatus
	m.CurrentLocation = o.Tracking.CurrentLocation
	m.TrackingUpdatedAt = o.Tracking.UpdatedAt
	m.TrackingSteps = TrackingStepModelsFromDomain(o.ID, o.Tracking.Steps)
	m.ApprovedAt = o.ApprovedAt
	m.RejectedAt = o.RejectedAt
	m.CancelledAt = o.CancelledAt
}

// OrderModelFromDomain creates a new persistence model from a domain Order entity.
func OrderModelFromDomain(o *fulfillment.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// TrackingStepModel is one row of an order's tracking ledger.
// Position keeps the submission order; readers sort by OccurredAt.
type TrackingStepModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tracking_step_order_position,priority:1"`
	Position   int       `gorm:"not null;uniqueIndex:idx_tracking_step_order_position,priority:2"`
	Status     string    `gorm:"type:varchar(50);not null"`
	OccurredAt time.Time `gorm:"not null"`
	Location   string    `gorm:"type:varchar(255)"`
	Notes      string    `gorm:"type:text"`
	PhotoRef   string    `gorm:"type:varchar(1024)"`
}

// TableName returns the table name for GORM
func (TrackingStepModel) TableName() string {
	return "order_tracking_steps"
}

// ToDomain converts the persistence model to a domain TrackingStep.
func (m *TrackingStepModel) ToDomain() fulfillment.TrackingStep {
	return fulfillment.TrackingStep{
		Status:     m.Status,
		OccurredAt: m.OccurredAt,
		Location:   m.Location,
		Notes:      m.Notes,
		PhotoRef:   m.PhotoRef,
	}
}

// TrackingStepModelsFromDomain maps a ledger to rows owned by orderID
func TrackingStepModelsFromDomain(orderID uuid.UUID, steps []fulfillment.TrackingStep) []TrackingStepModel {
	if len(steps) == 0 {
		return nil
	}
	rows := make([]TrackingStepModel, len(steps))
	for i, s := range steps {
		rows[i] = TrackingStepModel{
			ID:         uuid.New(),
			OrderID:    orderID,
			Position:   i,
			Status:     s.Status,
			OccurredAt: s.OccurredAt,
			Location:   s.Location,
			Notes:      s.Notes,
			PhotoRef:   s.PhotoRef,
		}
	}
	return rows
}

// CheckoutDraftModel is the persistence model of a pending hosted checkout.
// OrderID is set exactly once, by the finalize claim.
type CheckoutDraftModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	SessionID        string          `gorm:"type:varchar(255);not null;uniqueIndex"`
	BuyerUID         string          `gorm:"type:varchar(128);not null;index"`
	BuyerEmail       string          `gorm:"type:varchar(320);not null"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName      string          `gorm:"type:varchar(200);not null"`
	SellerEmail      string          `gorm:"type:varchar(320);not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity         int             `gorm:"not null"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	ContactFirstName string          `gorm:"type:varchar(100);not null"`
	ContactLastName  string          `gorm:"type:varchar(100);not null"`
	ContactNumber    string          `gorm:"type:varchar(30);not null"`
	DeliveryAddress  string          `gorm:"type:text;not null"`
	Notes            string          `gorm:"type:text"`
	OrderID          *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt        time.Time       `gorm:"not null"`
	FinalizedAt      *time.Time

	// Order declares the order_id foreign key; it is never loaded or written through
	Order *OrderModel `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:RESTRICT"`
}

// TableName returns the table name for GORM
func (CheckoutDraftModel) TableName() string {
	return "checkout_drafts"
}

// ToDomain converts the persistence model to a domain CheckoutDraft.
func (m *CheckoutDraftModel) ToDomain() *fulfillment.CheckoutDraft {
	return &fulfillment.CheckoutDraft{
		ID:          m.ID,
		SessionID:   m.SessionID,
		Buyer:       fulfillment.Buyer{UID: m.BuyerUID, Email: m.BuyerEmail},
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		SellerEmail: m.SellerEmail,
		UnitPrice:   m.UnitPrice,
		Quantity:    m.Quantity,
		TotalPrice:  m.TotalPrice,
		Contact: fulfillment.Contact{
			FirstName:     m.ContactFirstName,
			LastName:      m.ContactLastName,
			ContactNumber: m.ContactNumber,
			Address:       m.DeliveryAddress,
			Notes:         m.Notes,
		},
		OrderID:     m.OrderID,
		CreatedAt:   m.CreatedAt,
		FinalizedAt: m.FinalizedAt,
	}
}

// CheckoutDraftModelFromDomain creates a new persistence model from a domain CheckoutDraft.
func CheckoutDraftModelFromDomain(d *fulfillment.CheckoutDraft) *CheckoutDraftModel {
	return &CheckoutDraftModel{
		ID:               d.ID,
		SessionID:        d.SessionID,
		BuyerUID:         d.Buyer.UID,
		BuyerEmail:       d.Buyer.Email,
		ProductID:        d.ProductID,
		ProductName:      d.ProductName,
		SellerEmail:      d.SellerEmail,
		UnitPrice:        d.UnitPrice,
		Quantity:         d.Quantity,
		TotalPrice:       d.TotalPrice,
		ContactFirstName: d.Contact.FirstName,
		ContactLastName:  d.Contact.LastName,
		ContactNumber:    d.Contact.ContactNumber,
		DeliveryAddress:  d.Contact.Address,
		Notes:            d.Contact.Notes,
		OrderID:          d.OrderID,
		CreatedAt:        d.CreatedAt,
		FinalizedAt:      d.FinalizedAt,
	}
}
