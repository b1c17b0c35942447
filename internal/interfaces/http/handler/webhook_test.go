package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	orderapp "github.com/garmentflow/backend/internal/application/fulfillment"
	"github.com/garmentflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockWebhookProcessor implements WebhookProcessor for testing
type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*orderapp.WebhookResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orderapp.WebhookResult), args.Error(1)
}

func postWebhook(h *CheckoutWebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/webhooks/checkout", h.Handle)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/checkout", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckoutWebhookHandler(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	t.Run("processes a signed event", func(t *testing.T) {
		p := new(MockWebhookProcessor)
		p.On("ProcessWebhook", mock.Anything, payload, "t=1,v1=abc").Return(&orderapp.WebhookResult{
			EventID:   "evt_1",
			EventType: "checkout.session.completed",
			Processed: true,
			OrderID:   "7b0c6a5e-0000-0000-0000-000000000001",
		}, nil)

		w := postWebhook(NewCheckoutWebhookHandler(p), payload, "t=1,v1=abc")

		assert.Equal(t, http.StatusOK, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, true, data["processed"])
		assert.Equal(t, "evt_1", data["eventId"])
		p.AssertExpectations(t)
	})

	t.Run("duplicate delivery is still a 200", func(t *testing.T) {
		p := new(MockWebhookProcessor)
		p.On("ProcessWebhook", mock.Anything, payload, "sig").
			Return(&orderapp.WebhookResult{EventID: "evt_1", Duplicate: true}, nil)

		w := postWebhook(NewCheckoutWebhookHandler(p), payload, "sig")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeResponse(t, w).Data.(map[string]any)["duplicate"])
	})

	t.Run("missing signature header", func(t *testing.T) {
		p := new(MockWebhookProcessor)

		w := postWebhook(NewCheckoutWebhookHandler(p), payload, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidSignature, decodeResponse(t, w).Error.Code)
		p.AssertNotCalled(t, "ProcessWebhook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad signature", func(t *testing.T) {
		p := new(MockWebhookProcessor)
		p.On("ProcessWebhook", mock.Anything, payload, "forged").
			Return(nil, fmt.Errorf("%w: no valid signature", orderapp.ErrInvalidSignature))

		w := postWebhook(NewCheckoutWebhookHandler(p), payload, "forged")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidSignature, decodeResponse(t, w).Error.Code)
	})

	t.Run("processing failure asks for redelivery", func(t *testing.T) {
		p := new(MockWebhookProcessor)
		p.On("ProcessWebhook", mock.Anything, payload, "sig").Return(nil, errors.New("database unavailable"))

		w := postWebhook(NewCheckoutWebhookHandler(p), payload, "sig")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "database unavailable")
	})

	t.Run("oversized payload", func(t *testing.T) {
		p := new(MockWebhookProcessor)
		big := []byte(strings.Repeat("x", maxWebhookPayloadSize+1))

		w := postWebhook(NewCheckoutWebhookHandler(p), big, "sig")

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		p.AssertNotCalled(t, "ProcessWebhook", mock.Anything, mock.Anything, mock.Anything)
	})
}
