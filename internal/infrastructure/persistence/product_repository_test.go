package persistence

import (
	"context"
	"testing"

	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormProductRepository_FindSnapshot(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormProductRepository(db)
	product := testutil.SeedProduct(t, db, 40, catalog.PaymentOptionPayFirst)

	snap, err := repo.FindSnapshot(context.Background(), product.ID)

	require.NoError(t, err)
	assert.Equal(t, product.ID, snap.ID)
	assert.Equal(t, "Cotton T-Shirt", snap.Name)
	assert.Equal(t, 40, snap.AvailableQuantity)
	assert.True(t, snap.Price.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, snap.PaymentOption.OffersHostedCheckout())
}

func TestGormProductRepository_FindSnapshot_NotFound(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormProductRepository(db)

	_, err := repo.FindSnapshot(context.Background(), uuid.New())

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDecrementAndRestoreStock(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	product := testutil.SeedProduct(t, db, 5, catalog.PaymentOptionCashOnDelivery)

	require.NoError(t, decrementStock(db, product.ID, 5))
	assert.Equal(t, 0, testutil.ProductStock(t, db, product.ID))

	assert.ErrorIs(t, decrementStock(db, product.ID, 1), shared.ErrInsufficientStock)
	assert.Equal(t, 0, testutil.ProductStock(t, db, product.ID))

	require.NoError(t, restoreStock(db, product.ID, 3))
	assert.Equal(t, 3, testutil.ProductStock(t, db, product.ID))

	missing := uuid.New()
	assert.ErrorIs(t, decrementStock(db, missing, 1), shared.ErrNotFound)
	assert.ErrorIs(t, restoreStock(db, missing, 1), shared.ErrNotFound)
}
