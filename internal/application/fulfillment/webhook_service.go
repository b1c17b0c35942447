package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/checkout"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// Stripe event types that complete a hosted checkout
const (
	EventCheckoutSessionCompleted           = "checkout.session.completed"
	EventCheckoutSessionAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
)

// CheckoutFinalizer finalizes a session on behalf of its buyer
type CheckoutFinalizer interface {
	FinalizeFromProvider(ctx context.Context, sessionID string) (*OrderResponse, error)
}

// CheckoutWebhookService turns provider notifications into finalize calls.
// It races with client-triggered finalize; both resolve to the same order.
type CheckoutWebhookService struct {
	config      *checkout.StripeConfig
	finalizer   CheckoutFinalizer
	idempotency shared.IdempotencyStore
	logger      *zap.Logger
}

// CheckoutWebhookServiceConfig contains configuration for CheckoutWebhookService
type CheckoutWebhookServiceConfig struct {
	Config      *checkout.StripeConfig
	Finalizer   CheckoutFinalizer
	Idempotency shared.IdempotencyStore
	Logger      *zap.Logger
}

// NewCheckoutWebhookService creates a new CheckoutWebhookService
func NewCheckoutWebhookService(cfg CheckoutWebhookServiceConfig) *CheckoutWebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutWebhookService{
		config:      cfg.Config,
		finalizer:   cfg.Finalizer,
		idempotency: cfg.Idempotency,
		logger:      logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ErrInvalidSignature is returned when a payload does not carry a valid provider signature
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// ProcessWebhook verifies and handles a Stripe webhook event.
// A returned error means the provider should redeliver.
func (s *CheckoutWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		s.logger.Warn("Failed to verify webhook signature", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return s.HandleEvent(ctx, event)
}

// HandleEvent handles an already verified Stripe event
func (s *CheckoutWebhookService) HandleEvent(ctx context.Context, event stripe.Event) (*WebhookResult, error) {
	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	if s.idempotency != nil && event.ID != "" {
		fresh, err := s.idempotency.MarkProcessed(ctx, "stripe:event:"+event.ID, shared.DefaultIdempotencyTTL)
		if err != nil {
			s.logger.Warn("Idempotency check failed, handling event anyway",
				zap.String("event_id", event.ID),
				zap.Error(err))
		} else if !fresh {
			s.logger.Debug("Duplicate webhook event", zap.String("event_id", event.ID))
			result.Duplicate = true
			result.Processed = true
			result.Message = "Event already processed"
			return result, nil
		}
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	switch string(event.Type) {
	case EventCheckoutSessionCompleted, EventCheckoutSessionAsyncPaymentSucceed:
		err := s.handleSessionCompleted(ctx, event, result)
		if err != nil {
			s.logger.Error("Failed to process webhook event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
			s.forget(ctx, event.ID)
			result.Message = err.Error()
			return result, err
		}
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	return result, nil
}

func (s *CheckoutWebhookService) handleSessionCompleted(ctx context.Context, event stripe.Event, result *WebhookResult) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	if !checkout.IsSessionPaid(&sess) {
		// Async methods complete unpaid and send async_payment_succeeded later.
		result.Message = "Session not paid yet"
		return nil
	}

	order, err := s.finalizer.FinalizeFromProvider(ctx, sess.ID)
	if err != nil {
		switch shared.CodeOf(err) {
		case shared.CodeNotFound:
			// Sessions opened outside this service.
			s.logger.Warn("No checkout draft for session", zap.String("session_id", sess.ID))
			result.Message = "No checkout draft for session"
			return nil
		case shared.CodeConflict, shared.CodeValidation:
			// Redelivery cannot change the outcome; the buyer was charged and needs manual follow-up.
			s.logger.Error("Paid checkout could not be finalized",
				zap.String("session_id", sess.ID),
				zap.String("code", shared.CodeOf(err)),
				zap.Error(err))
			result.Message = err.Error()
			return nil
		}
		return err
	}

	result.Processed = true
	result.OrderID = order.ID.String()
	s.logger.Info("Checkout finalized from webhook",
		zap.String("session_id", sess.ID),
		zap.String("order_id", result.OrderID))
	return nil
}

func (s *CheckoutWebhookService) forget(ctx context.Context, eventID string) {
	if s.idempotency == nil || eventID == "" {
		return
	}
	if err := s.idempotency.Forget(ctx, "stripe:event:"+eventID); err != nil {
		s.logger.Warn("Failed to release webhook idempotency key",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}
