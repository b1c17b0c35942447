package handler

import (
	"fmt"
	"strings"
	"time"

	orderapp "github.com/garmentflow/backend/internal/application/fulfillment"
	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CreateOrderRequest is the body of order creation and checkout session requests
type CreateOrderRequest struct {
	ProductID     string `json:"productId" binding:"required,uuid"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
	FirstName     string `json:"firstName" binding:"required,max=100"`
	LastName      string `json:"lastName" binding:"required,max=100"`
	ContactNumber string `json:"contactNumber" binding:"required,max=30"`
	Address       string `json:"address" binding:"required,max=500"`
	Notes         string `json:"notes" binding:"max=1000"`
	PaymentMethod string `json:"paymentMethod" binding:"omitempty,oneof=CashOnDelivery ManualProof HostedCheckout"`
	MobileNumber  string `json:"mobileNumber" binding:"omitempty,mobile"`
	TransactionID string `json:"transactionId" binding:"max=64"`
}

// ToInput converts the request into the service input
func (r CreateOrderRequest) ToInput() orderapp.CreateOrderInput {
	productID, _ := uuid.Parse(r.ProductID)
	return orderapp.CreateOrderInput{
		ProductID: productID,
		Quantity:  r.Quantity,
		Contact: fulfillment.Contact{
			FirstName:     r.FirstName,
			LastName:      r.LastName,
			ContactNumber: r.ContactNumber,
			Address:       r.Address,
			Notes:         r.Notes,
		},
		Payment: orderapp.PaymentInput{
			Method:        fulfillment.PaymentMethod(r.PaymentMethod),
			MobileNumber:  r.MobileNumber,
			TransactionID: r.TransactionID,
		},
	}
}

// FinalizeOrderRequest is the body of POST /orders/finalize
type FinalizeOrderRequest struct {
	SessionID string `json:"sessionId" binding:"required,max=255"`
}

// TrackingStepRequest is one submitted tracking step. Date and time are combined in UTC.
type TrackingStepRequest struct {
	Status   string `json:"status" binding:"required,max=100"`
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time"`
	Location string `json:"location" binding:"max=255"`
	Notes    string `json:"notes" binding:"max=1000"`
	PhotoRef string `json:"photoRef" binding:"max=512"`
}

// UpdateTrackingRequest replaces the whole tracking list of an order
type UpdateTrackingRequest struct {
	Steps           []TrackingStepRequest `json:"trackingSteps" binding:"max=100,dive"`
	CurrentLocation string                `json:"currentLocation" binding:"max=255"`
}

var stepTimeLayouts = []string{"15:04", "15:04:05"}

// ToInput parses every step's date and time
func (r UpdateTrackingRequest) ToInput() (orderapp.UpdateTrackingInput, error) {
	steps := make([]orderapp.TrackingStepInput, 0, len(r.Steps))
	for i, st := range r.Steps {
		occurredAt, err := parseStepTime(st.Date, st.Time)
		if err != nil {
			return orderapp.UpdateTrackingInput{}, shared.NewValidationError(
				fmt.Sprintf("Tracking step %d has an invalid date or time", i+1)).WithDetail("step", i)
		}
		steps = append(steps, orderapp.TrackingStepInput{
			Status:     st.Status,
			OccurredAt: occurredAt,
			Location:   st.Location,
			Notes:      st.Notes,
			PhotoRef:   st.PhotoRef,
		})
	}
	return orderapp.UpdateTrackingInput{Steps: steps, CurrentLocation: r.CurrentLocation}, nil
}

func parseStepTime(date, clock string) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(date), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return day, nil
	}
	for _, layout := range stepTimeLayouts {
		if t, err := time.ParseInLocation(layout, clock, time.UTC); err == nil {
			return day.Add(time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", clock)
}

// PhotoUploadRequest asks for a presigned tracking photo upload
type PhotoUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

// ListOrdersQuery holds the query of GET /orders/mine
type ListOrdersQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=Pending Approved Rejected Cancelled"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToInput converts the query into the service input
func (q ListOrdersQuery) ToInput() orderapp.ListOrdersInput {
	in := orderapp.ListOrdersInput{Page: q.Page, PageSize: q.PageSize}
	if q.Status != "" {
		status := fulfillment.ApprovalStatus(q.Status)
		in.Status = &status
	}
	return in
}
