package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	orderapp "github.com/garmentflow/backend/internal/application/fulfillment"
	"github.com/garmentflow/backend/internal/infrastructure/logger"
	"github.com/garmentflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Maximum webhook payload size (64KB - Stripe webhooks are typically small)
const maxWebhookPayloadSize = 65536

// WebhookProcessor verifies and applies a provider webhook
type WebhookProcessor interface {
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*orderapp.WebhookResult, error)
}

// CheckoutWebhookHandler receives checkout provider webhooks.
// These endpoints are called by the provider and carry no bearer token.
type CheckoutWebhookHandler struct {
	BaseHandler
	processor WebhookProcessor
}

// NewCheckoutWebhookHandler creates a new CheckoutWebhookHandler
func NewCheckoutWebhookHandler(processor WebhookProcessor) *CheckoutWebhookHandler {
	return &CheckoutWebhookHandler{processor: processor}
}

// Handle verifies the Stripe-Signature header over the raw body and finalizes completed sessions.
// Failures other than a bad signature answer 500 so the provider redelivers.
//
//	POST /webhooks/checkout
func (h *CheckoutWebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Payload too large")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidSignature, "Missing Stripe-Signature header")
		return
	}

	result, err := h.processor.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, orderapp.ErrInvalidSignature) {
			logger.L(c.Request.Context()).Warn("Rejected checkout webhook", zap.Error(err))
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidSignature, "Webhook signature verification failed")
			return
		}
		logger.L(c.Request.Context()).Error("Checkout webhook processing failed", zap.Error(err))
		// internal details stay out of the response
		h.InternalError(c, "Webhook processing failed")
		return
	}

	h.Success(c, result)
}
