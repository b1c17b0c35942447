package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingSaver captures events handed to the outbox and can fail on demand
type recordingSaver struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (s *recordingSaver) SaveEvents(_ context.Context, tx any, events ...shared.DomainEvent) error {
	if _, ok := tx.(*gorm.DB); !ok {
		return errors.New("expected *gorm.DB")
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *recordingSaver) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType()
	}
	return out
}

func testContact() fulfillment.Contact {
	return fulfillment.Contact{
		FirstName:     "Amina",
		LastName:      "Rahman",
		ContactNumber: "+8801711000000",
		Address:       "House 12, Road 5, Dhaka",
	}
}

func newTestOrder(t *testing.T, product *models.ProductModel, quantity int, payment fulfillment.PaymentDetails) *fulfillment.Order {
	t.Helper()

	order, err := fulfillment.NewOrder(fulfillment.NewOrderParams{
		Buyer:    fulfillment.Buyer{UID: "buyer-1", Email: "buyer@shop.com"},
		Product:  product.ToSnapshot(),
		Quantity: quantity,
		Contact:  testContact(),
		Payment:  payment,
	})
	require.NoError(t, err)
	return order
}

func countOrders(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.OrderModel{}).Count(&n).Error)
	return n
}
