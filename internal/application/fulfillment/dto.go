package fulfillment

import (
	"time"

	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Inputs ====================

// PaymentInput is the buyer's payment selection
type PaymentInput struct {
	Method        fulfillment.PaymentMethod
	MobileNumber  string
	TransactionID string
}

// CreateOrderInput is shared by direct creation and checkout drafts
type CreateOrderInput struct {
	ProductID uuid.UUID
	Quantity  int
	Contact   fulfillment.Contact
	Payment   PaymentInput
}

// TrackingStepInput is one submitted tracking step
type TrackingStepInput struct {
	Status     string
	OccurredAt time.Time
	Location   string
	Notes      string
	PhotoRef   string
}

// UpdateTrackingInput replaces the whole tracking ledger of an order
type UpdateTrackingInput struct {
	Steps           []TrackingStepInput
	CurrentLocation string
}

// ListOrdersInput filters role-scoped order lists
type ListOrdersInput struct {
	Status   *fulfillment.ApprovalStatus
	Page     int
	PageSize int
}

// ==================== Responses ====================

// ManualProofResponse exposes the typed mobile-money evidence
type ManualProofResponse struct {
	MobileNumber  string `json:"mobileNumber"`
	TransactionID string `json:"transactionId"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                uuid.UUID            `json:"orderId"`
	BuyerUID          string               `json:"buyerUid"`
	BuyerEmail        string               `json:"buyerEmail"`
	SellerEmail       string               `json:"sellerEmail"`
	ProductID         uuid.UUID            `json:"productId"`
	ProductName       string               `json:"productName"`
	UnitPrice         decimal.Decimal      `json:"unitPrice"`
	Quantity          int                  `json:"quantity"`
	TotalPrice        decimal.Decimal      `json:"totalPrice"`
	FirstName         string               `json:"firstName"`
	LastName          string               `json:"lastName"`
	ContactNumber     string               `json:"contactNumber"`
	Address           string               `json:"address"`
	Notes             string               `json:"notes,omitempty"`
	PaymentMethod     string               `json:"paymentMethod"`
	ManualProof       *ManualProofResponse `json:"manualProof,omitempty"`
	CheckoutSessionID string               `json:"checkoutSessionId,omitempty"`
	Status            string               `json:"status"`
	FulfillmentStatus string               `json:"fulfillmentStatus"`
	CurrentLocation   string               `json:"currentLocation,omitempty"`
	ApprovedAt        *time.Time           `json:"approvedAt,omitempty"`
	RejectedAt        *time.Time           `json:"rejectedAt,omitempty"`
	CancelledAt       *time.Time           `json:"cancelledAt,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
	Version           int                  `json:"version"`
}

// CheckoutSessionResponse is returned when a hosted checkout session is opened
type CheckoutSessionResponse struct {
	SessionID   string          `json:"sessionId"`
	RedirectURL string          `json:"redirectUrl"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// TrackingStepResponse represents a tracking step in API responses
type TrackingStepResponse struct {
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Location   string    `json:"location,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	PhotoRef   string    `json:"photoRef,omitempty"`
}

// TrackingResponse is the chronological ledger of an order
type TrackingResponse struct {
	OrderID           uuid.UUID              `json:"orderId"`
	ProductName       string                 `json:"productName"`
	Status            string                 `json:"status"`
	FulfillmentStatus string                 `json:"fulfillmentStatus"`
	TrackingSteps     []TrackingStepResponse `json:"trackingSteps"`
	Latest            *TrackingStepResponse  `json:"latest,omitempty"`
	CurrentLocation   string                 `json:"currentLocation,omitempty"`
	UpdatedAt         *time.Time             `json:"updatedAt,omitempty"`
}

// PhotoUploadResponse carries a presigned upload URL for a tracking photo
type PhotoUploadResponse struct {
	UploadURL string    `json:"uploadUrl"`
	PhotoRef  string    `json:"photoRef"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ==================== Mappers ====================

// ToOrderResponse converts a domain Order to its response DTO
func ToOrderResponse(o *fulfillment.Order) OrderResponse {
	resp := OrderResponse{
		ID:                o.ID,
		BuyerUID:          o.Buyer.UID,
		BuyerEmail:        o.Buyer.Email,
		SellerEmail:       o.SellerEmail,
		ProductID:         o.ProductID,
		ProductName:       o.ProductName,
		UnitPrice:         o.UnitPrice,
		Quantity:          o.Quantity,
		TotalPrice:        o.TotalPrice,
		FirstName:         o.Contact.FirstName,
		LastName:          o.Contact.LastName,
		ContactNumber:     o.Contact.ContactNumber,
		Address:           o.Contact.Address,
		Notes:             o.Contact.Notes,
		PaymentMethod:     string(o.PaymentMethod()),
		CheckoutSessionID: o.CheckoutSessionID(),
		Status:            string(o.ApprovalStatus),
		FulfillmentStatus: string(o.FulfillmentStatus),
		CurrentLocation:   o.Tracking.EffectiveLocation(),
		ApprovedAt:        o.ApprovedAt,
		RejectedAt:        o.RejectedAt,
		CancelledAt:       o.CancelledAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		Version:           o.Version,
	}
	if proof, ok := o.Payment.(fulfillment.ManualProof); ok {
		resp.ManualProof = &ManualProofResponse{
			MobileNumber:  proof.MobileNumber,
			TransactionID: proof.TransactionID,
		}
	}
	return resp
}

// ToOrderResponses converts a slice of domain Orders
func ToOrderResponses(orders []fulfillment.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

// ToTrackingStepResponse converts a domain TrackingStep
func ToTrackingStepResponse(s fulfillment.TrackingStep) TrackingStepResponse {
	return TrackingStepResponse{
		Status:     s.Status,
		OccurredAt: s.OccurredAt,
		Date:       s.OccurredAt.Format("2006-01-02"),
		Time:       s.OccurredAt.Format("15:04"),
		Location:   s.Location,
		Notes:      s.Notes,
		PhotoRef:   s.PhotoRef,
	}
}

// ToTrackingResponse converts an order's ledger, sorted ascending by time
func ToTrackingResponse(o *fulfillment.Order) TrackingResponse {
	sorted := o.Tracking.Sorted()
	steps := make([]TrackingStepResponse, len(sorted))
	for i, s := range sorted {
		steps[i] = ToTrackingStepResponse(s)
	}

	resp := TrackingResponse{
		OrderID:           o.ID,
		ProductName:       o.ProductName,
		Status:            string(o.ApprovalStatus),
		FulfillmentStatus: string(o.FulfillmentStatus),
		TrackingSteps:     steps,
		CurrentLocation:   o.Tracking.EffectiveLocation(),
		UpdatedAt:         o.Tracking.UpdatedAt,
	}
	if len(steps) > 0 {
		latest := steps[len(steps)-1]
		resp.Latest = &latest
	}
	return resp
}
