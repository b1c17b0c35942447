package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ActorResolver turns a verified identity into an Actor for the current request
type ActorResolver interface {
	Resolve(ctx context.Context, id identity.Identity) (identity.Actor, error)
}

// PhotoUploadSigner issues presigned upload URLs for tracking photos
type PhotoUploadSigner interface {
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
}

// Policy holds business switches that differ between deployments
type Policy struct {
	// RestoreStockOnReject gives a rejected order's quantity back to the product
	RestoreStockOnReject bool
	// PhotoUploadTTL is the lifetime of presigned tracking photo URLs
	PhotoUploadTTL time.Duration
}

// OrderServiceConfig wires the collaborators of OrderService
type OrderServiceConfig struct {
	Orders   fulfillment.OrderRepository
	Drafts   fulfillment.CheckoutDraftRepository
	Products catalog.ProductReader
	Gateway  fulfillment.CheckoutGateway
	Actors   ActorResolver
	Uploads  PhotoUploadSigner
	Policy   Policy
	Logger   *zap.Logger
}

var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// OrderService handles order placement, decisions and tracking
type OrderService struct {
	orders          fulfillment.OrderRepository
	drafts          fulfillment.CheckoutDraftRepository
	products        catalog.ProductReader
	gateway         fulfillment.CheckoutGateway
	actors          ActorResolver
	uploads         PhotoUploadSigner
	resolver        PaymentMethodResolver
	policy          Policy
	logger          *zap.Logger
	finalizeGroup   singleflight.Group
	businessMetrics *telemetry.BusinessMetrics
}

// NewOrderService creates a new OrderService
func NewOrderService(cfg OrderServiceConfig) *OrderService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := cfg.Policy
	if policy.PhotoUploadTTL <= 0 {
		policy.PhotoUploadTTL = 15 * time.Minute
	}
	return &OrderService{
		orders:   cfg.Orders,
		drafts:   cfg.Drafts,
		products: cfg.Products,
		gateway:  cfg.Gateway,
		actors:   cfg.Actors,
		uploads:  cfg.Uploads,
		policy:   policy,
		logger:   logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *OrderService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// ==================== Creation ====================

// Create places an order on the direct path (cash on delivery or manual proof)
func (s *OrderService) Create(ctx context.Context, id identity.Identity, in CreateOrderInput) (_ *OrderResponse, err error) {
	ctx, span := telemetry.Start(ctx, "order.create",
		telemetry.SpanAttrProductID, in.ProductID,
		telemetry.SpanAttrQuantity, in.Quantity,
		telemetry.SpanAttrPaymentMethod, in.Payment.Method)
	defer func() { telemetry.End(span, err) }()

	actor, err := s.authorize(ctx, id, identity.CapCreateOrder)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindSnapshot(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	payment, pathKind, err := s.resolver.Resolve(product, in.Payment)
	if err != nil {
		return nil, err
	}
	if pathKind == PaymentPathDeferred {
		return nil, shared.NewValidationError("Hosted checkout orders must be placed through a checkout session")
	}

	order, err := fulfillment.NewOrder(fulfillment.NewOrderParams{
		Buyer:    fulfillment.Buyer{UID: actor.UID, Email: actor.Email},
		Product:  product,
		Quantity: in.Quantity,
		Contact:  in.Contact,
		Payment:  payment,
	})
	if err != nil {
		return nil, err
	}

	if err := s.orders.CreateWithStockDecrement(ctx, order); err != nil {
		if errors.Is(err, shared.ErrInsufficientStock) && s.businessMetrics != nil {
			s.businessMetrics.RecordStockConflict(ctx)
		}
		return nil, err
	}
	order.ClearDomainEvents()

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderPlaced(ctx, order.PaymentMethod().String(), order.TotalPrice)
	}
	s.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("product_id", order.ProductID.String()),
		zap.String("payment_method", order.PaymentMethod().String()),
		zap.Int("quantity", order.Quantity),
	)

	response := ToOrderResponse(order)
	return &response, nil
}

// CreateDraftForCheckout validates an order like Create but only opens a hosted checkout
// session for it. No order exists until Finalize.
func (s *OrderService) CreateDraftForCheckout(ctx context.Context, id identity.Identity, in CreateOrderInput) (_ *CheckoutSessionResponse, err error) {
	ctx, span := telemetry.Start(ctx, "order.create_checkout", telemetry.SpanAttrProductID, in.ProductID, telemetry.SpanAttrQuantity, in.Quantity)
	defer func() { telemetry.End(span, err) }()

	actor, err := s.authorize(ctx, id, identity.CapCreateOrder)
	if err != nil {
		return nil, err
	}

	product, err := s.products.FindSnapshot(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	if in.Payment.Method == "" {
		in.Payment.Method = fulfillment.PaymentMethodHostedCheckout
	}
	_, pathKind, err := s.resolver.Resolve(product, in.Payment)
	if err != nil {
		return nil, err
	}
	if pathKind != PaymentPathDeferred {
		return nil, shared.NewValidationError(fmt.Sprintf("Payment method %s does not use a checkout session", in.Payment.Method))
	}

	draft, err := fulfillment.NewCheckoutDraft(
		fulfillment.Buyer{UID: actor.UID, Email: actor.Email},
		product,
		in.Quantity,
		in.Contact,
	)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	session, err := s.gateway.CreateSession(ctx, draft)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordGatewayCall(ctx, "create_session", time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("checkout session creation failed",
			zap.String("product_id", draft.ProductID.String()),
			zap.Error(err),
		)
		return nil, asGatewayError("Failed to create checkout session", err)
	}
	if err := draft.AttachSession(session.SessionID); err != nil {
		return nil, shared.NewExternalGatewayError("Checkout provider returned no session id", err)
	}

	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}

	s.logger.Info("checkout session opened",
		zap.String("session_id", draft.SessionID),
		zap.String("product_id", draft.ProductID.String()),
		zap.Int("quantity", draft.Quantity),
	)

	return &CheckoutSessionResponse{
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
		TotalPrice:  draft.TotalPrice,
	}, nil
}

// Finalize materializes the order of a completed checkout session.
// Repeated or concurrent calls for the same session return the one order created.
func (s *OrderService) Finalize(ctx context.Context, id identity.Identity, sessionID string) (*OrderResponse, error) {
	actor, err := s.actors.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.finalize(ctx, actor, sessionID)
}

// FinalizeFromProvider finalizes as the system actor when the provider reports completion
// out of band. The buyer's account state does not gate it: payment has already been taken.
func (s *OrderService) FinalizeFromProvider(ctx context.Context, sessionID string) (*OrderResponse, error) {
	return s.finalize(ctx, identity.SystemActor(), sessionID)
}

func (s *OrderService) finalize(ctx context.Context, actor identity.Actor, sessionID string) (_ *OrderResponse, err error) {
	sessionID = strings.TrimSpace(sessionID)
	ctx, span := telemetry.Start(ctx, "order.finalize", telemetry.SpanAttrSessionID, sessionID)
	defer func() { telemetry.End(span, err) }()

	if sessionID == "" {
		return nil, shared.NewValidationError("Session id is required")
	}

	// Replays of an already finalized session are reads.
	existing, err := s.orders.FindByCheckoutSession(ctx, sessionID)
	if err == nil {
		if !actor.IsSystem() && !actor.IsBuyer(existing.Buyer.UID) {
			return nil, shared.NewPermissionDeniedError("Checkout session belongs to another buyer")
		}
		s.recordFinalize(ctx, telemetry.FinalizeReplayed)
		response := ToOrderResponse(existing)
		return &response, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	draft, err := s.drafts.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := authorizeFinalize(actor, draft); err != nil {
		return nil, err
	}

	// The shared claim outlives any single caller; each caller waits on its own ctx.
	claim := s.finalizeGroup.DoChan(sessionID, func() (interface{}, error) {
		return s.claimCheckout(context.WithoutCancel(ctx), draft)
	})
	var res singleflight.Result
	select {
	case res = <-claim:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		s.logger.Debug("finalize shared with concurrent callers", zap.String("session_id", sessionID))
		telemetry.Event(span, "finalize_shared")
	}
	response := ToOrderResponse(res.Val.(*fulfillment.Order))
	telemetry.Annotate(span, telemetry.SpanAttrOrderID, response.ID)
	return &response, nil
}

// authorizeFinalize admits the draft's buyer with CapCreateOrder, or the system actor
func authorizeFinalize(actor identity.Actor, draft *fulfillment.CheckoutDraft) error {
	if actor.IsSystem() {
		return actor.Authorize(identity.CapOperateSystem)
	}
	if !actor.IsBuyer(draft.Buyer.UID) {
		return shared.NewPermissionDeniedError("Checkout session belongs to another buyer")
	}
	return actor.Authorize(identity.CapCreateOrder)
}

// claimCheckout verifies payment with the provider and claims the draft.
// Losing the claim to a concurrent caller returns the winner's order.
func (s *OrderService) claimCheckout(ctx context.Context, draft *fulfillment.CheckoutDraft) (*fulfillment.Order, error) {
	if draft.IsFinalized() {
		s.recordFinalize(ctx, telemetry.FinalizeReplayed)
		return s.orders.FindByID(ctx, *draft.OrderID)
	}

	start := time.Now()
	status, err := s.gateway.GetSessionStatus(ctx, draft.SessionID)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordGatewayCall(ctx, "get_session_status", time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("checkout session lookup failed",
			zap.String("session_id", draft.SessionID),
			zap.Error(err),
		)
		return nil, asGatewayError("Failed to verify checkout session", err)
	}
	if !status.Completed {
		s.recordFinalize(ctx, telemetry.FinalizeNotCompleted)
		return nil, shared.NewConflictError("Payment not completed")
	}
	if !status.AmountTotal.IsZero() && !status.AmountTotal.Equal(draft.TotalPrice.Round(2)) {
		s.logger.Error("checkout amount mismatch",
			zap.String("session_id", draft.SessionID),
			zap.String("expected", draft.TotalPrice.StringFixed(2)),
			zap.String("paid", status.AmountTotal.StringFixed(2)),
		)
		return nil, shared.NewConflictError("Paid amount does not match the order total").
			WithDetail("expected", draft.TotalPrice.StringFixed(2)).
			WithDetail("paid", status.AmountTotal.StringFixed(2))
	}

	order, err := draft.ToOrder()
	if err != nil {
		return nil, err
	}

	if err := s.orders.FinalizeCheckout(ctx, draft, order); err != nil {
		if errors.Is(err, fulfillment.ErrCheckoutAlreadyClaimed) {
			s.logger.Info("checkout already claimed", zap.String("session_id", draft.SessionID))
			s.recordFinalize(ctx, telemetry.FinalizeReplayed)
			return s.orders.FindByCheckoutSession(ctx, draft.SessionID)
		}
		if errors.Is(err, shared.ErrInsufficientStock) && s.businessMetrics != nil {
			s.businessMetrics.RecordStockConflict(ctx)
		}
		return nil, err
	}
	order.ClearDomainEvents()

	s.recordFinalize(ctx, telemetry.FinalizeCreated)
	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderPlaced(ctx, order.PaymentMethod().String(), order.TotalPrice)
	}
	s.logger.Info("checkout finalized",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", draft.SessionID),
	)
	return order, nil
}

// ==================== Decisions ====================

// Approve accepts a Pending order
func (s *OrderService) Approve(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*OrderResponse, error) {
	return s.decide(ctx, id, orderID, (*fulfillment.Order).Approve, false)
}

// Reject declines a Pending order. Stock comes back only when the policy says so.
func (s *OrderService) Reject(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*OrderResponse, error) {
	return s.decide(ctx, id, orderID, (*fulfillment.Order).Reject, s.policy.RestoreStockOnReject)
}

func (s *OrderService) decide(ctx context.Context, id identity.Identity, orderID uuid.UUID, transition func(*fulfillment.Order) error, restoreStock bool) (_ *OrderResponse, err error) {
	ctx, span := telemetry.Start(ctx, "order.decide", telemetry.SpanAttrOrderID, orderID)
	defer func() { telemetry.End(span, err) }()

	actor, err := s.authorize(ctx, id, identity.CapDecideOrder)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.ManagesProduct(order.SellerEmail) {
		return nil, shared.NewPermissionDeniedError("Order belongs to a product you do not manage")
	}

	if err := transition(order); err != nil {
		return nil, err
	}

	if restoreStock {
		err = s.orders.SaveWithStockRestore(ctx, order)
	} else {
		err = s.orders.SaveWithLock(ctx, order)
	}
	if err != nil {
		return nil, err
	}
	order.ClearDomainEvents()
	telemetry.Annotate(span, telemetry.SpanAttrOrderStatus, order.ApprovalStatus.String())

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderDecision(ctx, order.ApprovalStatus.String())
	}
	s.logger.Info("order decided",
		zap.String("order_id", order.ID.String()),
		zap.String("status", order.ApprovalStatus.String()),
		zap.String("actor", actor.Email),
		zap.Bool("stock_restored", restoreStock),
	)

	response := ToOrderResponse(order)
	return &response, nil
}

// Cancel withdraws the buyer's own Pending order and restores its stock
func (s *OrderService) Cancel(ctx context.Context, id identity.Identity, orderID uuid.UUID) (_ *OrderResponse, err error) {
	ctx, span := telemetry.Start(ctx, "order.cancel", telemetry.SpanAttrOrderID, orderID)
	defer func() { telemetry.End(span, err) }()

	actor, err := s.authorize(ctx, id, identity.CapCancelOwnOrder)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsBuyer(order.Buyer.UID) {
		return nil, shared.NewPermissionDeniedError("Only the buyer can cancel this order")
	}

	if err := order.Cancel(); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithStockRestore(ctx, order); err != nil {
		return nil, err
	}
	order.ClearDomainEvents()

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderDecision(ctx, order.ApprovalStatus.String())
	}
	s.logger.Info("order cancelled",
		zap.String("order_id", order.ID.String()),
		zap.Int("restored_quantity", order.Quantity),
	)

	response := ToOrderResponse(order)
	return &response, nil
}

// ==================== Tracking ====================

// UpdateTracking replaces the tracking ledger of an approved order
func (s *OrderService) UpdateTracking(ctx context.Context, id identity.Identity, orderID uuid.UUID, in UpdateTrackingInput) (_ *TrackingResponse, err error) {
	ctx, span := telemetry.Start(ctx, "order.update_tracking", telemetry.SpanAttrOrderID, orderID, "steps", len(in.Steps))
	defer func() { telemetry.End(span, err) }()

	actor, err := s.authorize(ctx, id, identity.CapUpdateTracking)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.ManagesProduct(order.SellerEmail) {
		return nil, shared.NewPermissionDeniedError("Order belongs to a product you do not manage")
	}

	steps := make([]fulfillment.TrackingStep, 0, len(in.Steps))
	for i, st := range in.Steps {
		step, err := fulfillment.NewTrackingStep(st.Status, st.OccurredAt, st.Location, st.Notes, st.PhotoRef)
		if err != nil {
			var de *shared.DomainError
			if errors.As(err, &de) {
				return nil, de.WithDetail("step", i)
			}
			return nil, err
		}
		steps = append(steps, step)
	}

	if err := order.ReplaceTracking(steps, in.CurrentLocation); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}
	order.ClearDomainEvents()

	s.logger.Info("tracking updated",
		zap.String("order_id", order.ID.String()),
		zap.Int("steps", len(steps)),
		zap.String("fulfillment_status", order.FulfillmentStatus.String()),
	)

	response := ToTrackingResponse(order)
	return &response, nil
}

// GetTracking returns an order's tracking ledger sorted ascending by time
func (s *OrderService) GetTracking(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*TrackingResponse, error) {
	order, err := s.loadVisible(ctx, id, orderID)
	if err != nil {
		return nil, err
	}
	response := ToTrackingResponse(order)
	return &response, nil
}

// RequestPhotoUpload issues a presigned URL for a tracking step photo
func (s *OrderService) RequestPhotoUpload(ctx context.Context, id identity.Identity, orderID uuid.UUID, contentType string) (*PhotoUploadResponse, error) {
	actor, err := s.authorize(ctx, id, identity.CapUpdateTracking)
	if err != nil {
		return nil, err
	}

	ext, ok := allowedPhotoTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, shared.NewValidationError("Photo must be a JPEG, PNG or WebP image")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.ManagesProduct(order.SellerEmail) {
		return nil, shared.NewPermissionDeniedError("Order belongs to a product you do not manage")
	}
	if s.uploads == nil {
		return nil, shared.NewExternalGatewayError("Photo uploads are not configured", nil)
	}

	key := path.Join("tracking", order.ID.String(), uuid.New().String()+ext)
	url, expiresAt, err := s.uploads.GenerateUploadURL(ctx, key, contentType, s.policy.PhotoUploadTTL)
	if err != nil {
		return nil, shared.NewExternalGatewayError("Failed to sign photo upload", err)
	}

	return &PhotoUploadResponse{
		UploadURL: url,
		PhotoRef:  key,
		ExpiresAt: expiresAt,
	}, nil
}

// ==================== Reads ====================

// Get returns one order the caller may view
func (s *OrderService) Get(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.loadVisible(ctx, id, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// ListMine lists the orders visible to the caller: own orders for buyers, orders of managed
// products for managers and all orders for admins
func (s *OrderService) ListMine(ctx context.Context, id identity.Identity, in ListOrdersInput) (*shared.Paginated[OrderResponse], error) {
	actor, err := s.actors.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	filter := fulfillment.OrderFilter{Filter: shared.DefaultFilter()}
	if in.Page > 0 {
		filter.Page = in.Page
	}
	if in.PageSize > 0 {
		filter.PageSize = min(in.PageSize, 100)
	}
	if in.Status != nil {
		if !in.Status.IsValid() {
			return nil, shared.NewValidationError(fmt.Sprintf("Unknown order status %q", *in.Status))
		}
		filter.Status = in.Status
	}

	switch {
	case actor.Can(identity.CapViewAllOrders):
	case actor.Can(identity.CapViewManagedOrders):
		filter.SellerEmail = actor.Email
	case actor.Can(identity.CapViewOwnOrders):
		filter.BuyerUID = actor.UID
	default:
		return nil, shared.NewPermissionDeniedError("You cannot view orders")
	}

	orders, total, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToOrderResponses(orders), total, filter.Page, filter.PageSize)
	return &page, nil
}

// ==================== Helpers ====================

func (s *OrderService) authorize(ctx context.Context, id identity.Identity, c identity.Capability) (identity.Actor, error) {
	actor, err := s.actors.Resolve(ctx, id)
	if err != nil {
		return identity.Actor{}, err
	}
	if err := actor.Authorize(c); err != nil {
		return identity.Actor{}, err
	}
	return actor, nil
}

func (s *OrderService) loadVisible(ctx context.Context, id identity.Identity, orderID uuid.UUID) (*fulfillment.Order, error) {
	actor, err := s.actors.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, order) {
		return nil, shared.NewPermissionDeniedError("You cannot view this order")
	}
	return order, nil
}

func canView(actor identity.Actor, order *fulfillment.Order) bool {
	switch {
	case actor.Can(identity.CapViewAllOrders):
		return true
	case actor.Can(identity.CapViewManagedOrders):
		return actor.ManagesProduct(order.SellerEmail)
	case actor.Can(identity.CapViewOwnOrders):
		return actor.IsBuyer(order.Buyer.UID)
	}
	return false
}

func (s *OrderService) recordFinalize(ctx context.Context, outcome string) {
	if s.businessMetrics != nil {
		s.businessMetrics.RecordFinalize(ctx, outcome)
	}
}

// asGatewayError keeps domain errors from the gateway and wraps everything else
func asGatewayError(message string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de
	}
	return shared.NewExternalGatewayError(message, err)
}
