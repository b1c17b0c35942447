package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/persistence/models"
	"github.com/garmentflow/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormOrderRepository_CreateWithStockDecrement(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	saver := &recordingSaver{}
	repo.SetOutboxEventSaver(saver)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionCashOnDelivery)

	order := newTestOrder(t, product, 4, fulfillment.ManualProof{MobileNumber: "017-1100 0000", TransactionID: "TX123"})
	require.NoError(t, repo.CreateWithStockDecrement(ctx, order))

	assert.Equal(t, 6, testutil.ProductStock(t, db, product.ID))
	assert.Equal(t, []string{fulfillment.EventTypeOrderPlaced}, saver.types())
	assert.Empty(t, order.GetDomainEvents())

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.ApprovalStatusPending, found.ApprovalStatus)
	assert.Equal(t, fulfillment.FulfillmentNotStarted, found.FulfillmentStatus)
	assert.Equal(t, 4, found.Quantity)
	assert.True(t, found.TotalPrice.Equal(order.TotalPrice))
	assert.Equal(t, "seller@garments.com", found.SellerEmail)
	proof, ok := found.Payment.(fulfillment.ManualProof)
	require.True(t, ok)
	assert.Equal(t, "01711000000", proof.MobileNumber)
	assert.Equal(t, "TX123", proof.TransactionID)
}

func TestGormOrderRepository_CreateWithStockDecrement_InsufficientStock(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionCashOnDelivery)

	order := newTestOrder(t, product, 10, fulfillment.CashOnDelivery{})
	// Someone else buys most of the stock after the snapshot was taken
	require.NoError(t, decrementStock(db, product.ID, 8))

	err := repo.CreateWithStockDecrement(ctx, order)

	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	assert.Equal(t, 2, testutil.ProductStock(t, db, product.ID))
	assert.Equal(t, int64(0), countOrders(t, db))
}

func TestGormOrderRepository_CreateWithStockDecrement_OutboxFailureRollsBack(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	repo.SetOutboxEventSaver(&recordingSaver{err: errors.New("outbox unavailable")})
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionCashOnDelivery)

	err := repo.CreateWithStockDecrement(context.Background(), newTestOrder(t, product, 3, fulfillment.CashOnDelivery{}))

	require.Error(t, err)
	assert.Equal(t, 10, testutil.ProductStock(t, db, product.ID))
	assert.Equal(t, int64(0), countOrders(t, db))
}

func TestGormOrderRepository_CreateWithStockDecrement_ProductGone(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionCashOnDelivery)
	order := newTestOrder(t, product, 1, fulfillment.CashOnDelivery{})
	require.NoError(t, db.Delete(&models.ProductModel{}, "id = ?", product.ID).Error)

	err := repo.CreateWithStockDecrement(context.Background(), order)

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func newTestDraft(t *testing.T, product *models.ProductModel, quantity int, sessionID string) *fulfillment.CheckoutDraft {
	t.Helper()

	draft, err := fulfillment.NewCheckoutDraft(
		fulfillment.Buyer{UID: "buyer-1", Email: "buyer@shop.com"},
		product.ToSnapshot(), quantity, testContact(),
	)
	require.NoError(t, err)
	require.NoError(t, draft.AttachSession(sessionID))
	return draft
}

func TestGormOrderRepository_FinalizeCheckout(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	drafts := NewGormCheckoutDraftRepository(db)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionPayFirst)

	draft := newTestDraft(t, product, 3, "cs_test_1")
	require.NoError(t, drafts.Save(ctx, draft))

	order, err := draft.ToOrder()
	require.NoError(t, err)
	require.NoError(t, repo.FinalizeCheckout(ctx, draft, order))

	assert.Equal(t, 7, testutil.ProductStock(t, db, product.ID))
	require.NotNil(t, draft.OrderID)
	assert.Equal(t, order.ID, *draft.OrderID)

	stored, err := drafts.FindBySessionID(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.True(t, stored.IsFinalized())
	assert.NotNil(t, stored.FinalizedAt)

	found, err := repo.FindByCheckoutSession(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, fulfillment.PaymentMethodHostedCheckout, found.PaymentMethod())
	assert.Equal(t, "cs_test_1", found.CheckoutSessionID())

	t.Run("second finalize loses the claim", func(t *testing.T) {
		again, err := stored.ToOrder()
		require.NoError(t, err)

		err = repo.FinalizeCheckout(ctx, stored, again)

		assert.ErrorIs(t, err, fulfillment.ErrCheckoutAlreadyClaimed)
		assert.Equal(t, 7, testutil.ProductStock(t, db, product.ID))
		assert.Equal(t, int64(1), countOrders(t, db))
	})
}

func TestGormOrderRepository_FinalizeCheckout_ForeignKeysEnforced(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	repo := NewGormOrderRepository(db)
	drafts := NewGormCheckoutDraftRepository(db)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionPayFirst)

	t.Run("draft cannot point at a missing order", func(t *testing.T) {
		orphan := newTestDraft(t, product, 1, "cs_test_orphan")
		require.NoError(t, drafts.Save(ctx, orphan))

		err := db.Model(&models.CheckoutDraftModel{}).
			Where("session_id = ?", "cs_test_orphan").
			Update("order_id", uuid.New()).Error

		require.Error(t, err)
	})

	t.Run("finalize links the draft after the order exists", func(t *testing.T) {
		draft := newTestDraft(t, product, 2, "cs_test_fk")
		require.NoError(t, drafts.Save(ctx, draft))
		order, err := draft.ToOrder()
		require.NoError(t, err)

		require.NoError(t, repo.FinalizeCheckout(ctx, draft, order))

		stored, err := drafts.FindBySessionID(ctx, "cs_test_fk")
		require.NoError(t, err)
		require.NotNil(t, stored.OrderID)
		assert.Equal(t, order.ID, *stored.OrderID)
		assert.Equal(t, 8, testutil.ProductStock(t, db, product.ID))
	})
}

func TestGormOrderRepository_FinalizeCheckout_InsufficientStockReleasesClaim(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	drafts := NewGormCheckoutDraftRepository(db)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 5, catalog.PaymentOptionPayFirst)

	draft := newTestDraft(t, product, 5, "cs_test_short")
	require.NoError(t, drafts.Save(ctx, draft))
	require.NoError(t, decrementStock(db, product.ID, 4))

	order, err := draft.ToOrder()
	require.NoError(t, err)
	err = repo.FinalizeCheckout(ctx, draft, order)

	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	stored, err := drafts.FindBySessionID(ctx, "cs_test_short")
	require.NoError(t, err)
	assert.False(t, stored.IsFinalized(), "a failed finalize must not keep the claim")
}

func TestGormOrderRepository_FindByCheckoutSession_NotFound(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)

	_, err := repo.FindByCheckoutSession(context.Background(), "cs_missing")

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_SaveWithLock(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	saver := &recordingSaver{}
	repo.SetOutboxEventSaver(saver)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionCashOnDelivery)

	order := newTestOrder(t, product, 2, fulfillment.CashOnDelivery{})
	require.NoError(t, repo.CreateWithStockDecrement(ctx, order))

	first, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, first.Approve())
	require.NoError(t, repo.SaveWithLock(ctx, first))
	assert.Equal(t, 2, first.Version)

	require.NoError(t, second.Reject())
	err = repo.SaveWithLock(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.ApprovalStatusApproved, found.ApprovalStatus)
	assert.NotNil(t, found.ApprovedAt)
	assert.Equal(t, []string{fulfillment.EventTypeOrderPlaced, fulfillment.EventTypeOrderApproved}, saver.types())
}

func TestGormOrderRepository_SaveWithLock_NotFound(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionCashOnDelivery)

	order := newTestOrder(t, product, 1, fulfillment.CashOnDelivery{})

	assert.ErrorIs(t, repo.SaveWithLock(context.Background(), order), shared.ErrNotFound)
}

func TestGormOrderRepository_SaveWithLock_ReplacesTracking(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionCashOnDelivery)

	order := newTestOrder(t, product, 1, fulfillment.CashOnDelivery{})
	require.NoError(t, repo.CreateWithStockDecrement(ctx, order))
	require.NoError(t, order.Approve())
	require.NoError(t, repo.SaveWithLock(ctx, order))

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	packed, err := fulfillment.NewTrackingStep("Packed", base, "Warehouse A", "", "")
	require.NoError(t, err)
	shipped, err := fulfillment.NewTrackingStep("Shipped", base.Add(6*time.Hour), "Dhaka hub", "Courier picked up", "orders/photo.jpg")
	require.NoError(t, err)
	require.NoError(t, order.ReplaceTracking([]fulfillment.TrackingStep{packed, shipped}, ""))
	require.NoError(t, repo.SaveWithLock(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Tracking.Steps, 2)
	assert.Equal(t, "Packed", found.Tracking.Steps[0].Status)
	assert.Equal(t, "orders/photo.jpg", found.Tracking.Steps[1].PhotoRef)
	assert.Equal(t, fulfillment.FulfillmentShipped, found.FulfillmentStatus)
	assert.Equal(t, "Dhaka hub", found.Tracking.EffectiveLocation())

	// A shorter list replaces the ledger entirely
	require.NoError(t, found.ReplaceTracking([]fulfillment.TrackingStep{packed}, "Warehouse B"))
	require.NoError(t, repo.SaveWithLock(ctx, found))

	again, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, again.Tracking.Steps, 1)
	assert.Equal(t, "Warehouse B", again.Tracking.CurrentLocation)
	assert.Equal(t, fulfillment.FulfillmentPacked, again.FulfillmentStatus)
}

func TestGormOrderRepository_SaveWithStockRestore(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionCashOnDelivery)

	order := newTestOrder(t, product, 4, fulfillment.CashOnDelivery{})
	require.NoError(t, repo.CreateWithStockDecrement(ctx, order))
	assert.Equal(t, 6, testutil.ProductStock(t, db, product.ID))

	require.NoError(t, order.Cancel())
	require.NoError(t, repo.SaveWithStockRestore(ctx, order))

	assert.Equal(t, 10, testutil.ProductStock(t, db, product.ID))
	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.ApprovalStatusCancelled, found.ApprovalStatus)
	assert.NotNil(t, found.CancelledAt)
}

func TestGormOrderRepository_SaveWithStockRestore_ConflictKeepsStock(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionCashOnDelivery)

	order := newTestOrder(t, product, 4, fulfillment.CashOnDelivery{})
	require.NoError(t, repo.CreateWithStockDecrement(ctx, order))
	stale, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, order.Approve())
	require.NoError(t, repo.SaveWithLock(ctx, order))

	require.NoError(t, stale.Cancel())
	assert.ErrorIs(t, repo.SaveWithStockRestore(ctx, stale), shared.ErrConcurrencyConflict)
	assert.Equal(t, 6, testutil.ProductStock(t, db, product.ID))
}

func TestGormOrderRepository_FindAll(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 100, catalog.PaymentOptionCashOnDelivery)
	other := testutil.SeedProduct(t, db, 100, catalog.PaymentOptionCashOnDelivery)
	require.NoError(t, db.Model(other).Update("manager_email", "other@garments.com").Error)
	other.ManagerEmail = "other@garments.com"

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		o := newTestOrder(t, product, 1, fulfillment.CashOnDelivery{})
		require.NoError(t, repo.CreateWithStockDecrement(ctx, o))
		ids = append(ids, o.ID)
	}
	foreign := newTestOrder(t, other, 1, fulfillment.CashOnDelivery{})
	foreign.Buyer.UID = "buyer-2"
	require.NoError(t, repo.CreateWithStockDecrement(ctx, foreign))

	approved, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	require.NoError(t, approved.Approve())
	require.NoError(t, repo.SaveWithLock(ctx, approved))

	t.Run("by seller", func(t *testing.T) {
		orders, total, err := repo.FindAll(ctx, fulfillment.OrderFilter{
			Filter:      shared.Filter{Page: 1, PageSize: 10},
			SellerEmail: "seller@garments.com",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, orders, 3)
	})

	t.Run("by buyer", func(t *testing.T) {
		orders, total, err := repo.FindAll(ctx, fulfillment.OrderFilter{
			Filter:   shared.Filter{Page: 1, PageSize: 10},
			BuyerUID: "buyer-2",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, foreign.ID, orders[0].ID)
	})

	t.Run("by status", func(t *testing.T) {
		status := fulfillment.ApprovalStatusApproved
		orders, total, err := repo.FindAll(ctx, fulfillment.OrderFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10},
			Status: &status,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, ids[0], orders[0].ID)
	})

	t.Run("paginates with total before pagination", func(t *testing.T) {
		orders, total, err := repo.FindAll(ctx, fulfillment.OrderFilter{
			Filter: shared.Filter{Page: 2, PageSize: 3},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, orders, 1)
	})

	t.Run("ignores unknown sort fields", func(t *testing.T) {
		_, total, err := repo.FindAll(ctx, fulfillment.OrderFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10, OrderBy: "1; DROP TABLE orders", OrderDir: "sideways"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
	})
}
