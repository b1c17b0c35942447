package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/interfaces/http/dto"
	"github.com/garmentflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Success(c, map[string]string{"orderId": "123"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandlerCreated(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Created(c, map[string]string{"orderId": "123"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestPaginated(t *testing.T) {
	h := &BaseHandler{}

	t.Run("writes items and meta", func(t *testing.T) {
		c, w := newTestContext()
		page := shared.NewPaginated([]string{"a", "b"}, 12, 2, 5)

		paginated(h, c, &page)

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(12), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 3, resp.Meta.TotalPages)
		assert.Len(t, resp.Data, 2)
	})

	t.Run("empty page serializes an empty list", func(t *testing.T) {
		c, w := newTestContext()
		page := shared.NewPaginated[string](nil, 0, 1, 20)

		paginated(h, c, &page)

		assert.Contains(t, w.Body.String(), `"data":[]`)
	})
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", shared.NewValidationError("Quantity must be at least 10"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"unauthenticated", shared.ErrUnauthenticated, http.StatusUnauthorized, dto.ErrCodeUnauthenticated},
		{"permission denied", shared.NewPermissionDeniedError("Only managers can approve orders"), http.StatusForbidden, dto.ErrCodePermissionDenied},
		{"account suspended", shared.NewAccountSuspendedError("unpaid invoices"), http.StatusForbidden, dto.ErrCodeAccountSuspended},
		{"not found", shared.NewNotFoundError("Order not found"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"conflict", shared.NewConflictError("Cannot approve order in Rejected status"), http.StatusConflict, dto.ErrCodeConflict},
		{"insufficient stock", shared.ErrInsufficientStock, http.StatusConflict, dto.ErrCodeConflict},
		{"concurrency", shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeConflict},
		{"gateway", shared.NewExternalGatewayError("Checkout provider unavailable", errors.New("dial tcp")), http.StatusBadGateway, dto.ErrCodeExternalGateway},
		{"wrapped domain error", fmt.Errorf("service: %w", shared.NewNotFoundError("Order not found")), http.StatusNotFound, dto.ErrCodeNotFound},
		{"deadline", fmt.Errorf("query orders: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, dto.ErrCodeTimeout},
		{"unknown", assert.AnError, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()
			c.Set(middleware.RequestIDKey, "req-42")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-42", resp.Error.RequestID)
		})
	}
}

func TestBaseHandlerHandleError_SuspendedCarriesReason(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, shared.NewAccountSuspendedError("unpaid invoices"))

	assert.Equal(t, http.StatusForbidden, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "unpaid invoices", resp.Error.Details["reason"])
}

func TestBaseHandlerHandleError_UnknownErrorHidesMessage(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, errors.New("pq: connection refused"))

	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestBaseHandlerHandleError_Nil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, nil)

	assert.Equal(t, 0, w.Body.Len())
}

func TestBaseHandlerIdentity(t *testing.T) {
	h := &BaseHandler{}

	t.Run("missing identity writes 401", func(t *testing.T) {
		c, w := newTestContext()

		_, ok := h.identity(c)

		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("returns the stored identity", func(t *testing.T) {
		c, _ := newTestContext()
		c.Set(middleware.IdentityKey, identity.Identity{UID: "uid-1", Email: "buyer@shop.com"})

		id, ok := h.identity(c)

		assert.True(t, ok)
		assert.Equal(t, "uid-1", id.UID)
	})
}

func TestBaseHandlerPathUUID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	_, ok := h.pathUUID(c, "id")

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w).Error.Code)
}
