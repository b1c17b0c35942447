package handler

import (
	"context"

	orderapp "github.com/garmentflow/backend/internal/application/fulfillment"
	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderUseCases is the order API surface the handler drives
type OrderUseCases interface {
	Create(ctx context.Context, id identity.Identity, in orderapp.CreateOrderInput) (*orderapp.OrderResponse, error)
	CreateDraftForCheckout(ctx context.Context, id identity.Identity, in orderapp.CreateOrderInput) (*orderapp.CheckoutSessionResponse, error)
	Finalize(ctx context.Context, id identity.Identity, sessionID string) (*orderapp.OrderResponse, error)
	Approve(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	Reject(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	Cancel(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	UpdateTracking(ctx context.Context, id identity.Identity, orderID uuid.UUID, in orderapp.UpdateTrackingInput) (*orderapp.TrackingResponse, error)
	GetTracking(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*orderapp.TrackingResponse, error)
	RequestPhotoUpload(ctx context.Context, id identity.Identity, orderID uuid.UUID, contentType string) (*orderapp.PhotoUploadResponse, error)
	Get(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*orderapp.OrderResponse, error)
	ListMine(ctx context.Context, id identity.Identity, in orderapp.ListOrdersInput) (*shared.Paginated[orderapp.OrderResponse], error)
}

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	BaseHandler
	orders OrderUseCases
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderUseCases) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Create places an order paid on delivery or by manual proof
//
//	POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	order, err := h.orders.Create(c.Request.Context(), id, req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, order)
}

// CreateCheckoutSession opens a hosted checkout session for an order that is not persisted yet
//
//	POST /api/v1/orders/checkout-sessions
func (h *OrderHandler) CreateCheckoutSession(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	session, err := h.orders.CreateDraftForCheckout(c.Request.Context(), id, req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, session)
}

// Finalize turns a completed checkout session into an order. Repeat calls return the same order.
//
//	POST /api/v1/orders/finalize
func (h *OrderHandler) Finalize(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req FinalizeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	order, err := h.orders.Finalize(c.Request.Context(), id, req.SessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// Approve handles PATCH /api/v1/orders/:id/approve
func (h *OrderHandler) Approve(c *gin.Context) {
	h.transition(c, h.orders.Approve)
}

// Reject handles PATCH /api/v1/orders/:id/reject
func (h *OrderHandler) Reject(c *gin.Context) {
	h.transition(c, h.orders.Reject)
}

// Cancel handles PATCH /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.transition(c, h.orders.Cancel)
}

func (h *OrderHandler) transition(c *gin.Context, apply func(context.Context, identity.Identity, uuid.UUID) (*orderapp.OrderResponse, error)) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := apply(c.Request.Context(), id, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// UpdateTracking replaces the tracking list of an approved order
//
//	PATCH /api/v1/orders/:id/tracking
func (h *OrderHandler) UpdateTracking(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	tracking, err := h.orders.UpdateTracking(c.Request.Context(), id, orderID, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tracking)
}

// GetTracking handles GET /api/v1/orders/:id/tracking
func (h *OrderHandler) GetTracking(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	tracking, err := h.orders.GetTracking(c.Request.Context(), id, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tracking)
}

// RequestPhotoUpload issues a presigned URL for a tracking step photo
//
//	POST /api/v1/orders/:id/tracking/photo-uploads
func (h *OrderHandler) RequestPhotoUpload(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req PhotoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	upload, err := h.orders.RequestPhotoUpload(c.Request.Context(), id, orderID, req.ContentType)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, upload)
}

// Get handles GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	orderID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), id, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// ListMine lists the orders visible to the caller's role
//
//	GET /api/v1/orders/mine?status=&page=&page_size=
func (h *OrderHandler) ListMine(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var q ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.orders.ListMine(c.Request.Context(), id, q.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	paginated(&h.BaseHandler, c, page)
}
