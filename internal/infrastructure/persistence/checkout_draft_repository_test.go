package persistence

import (
	"context"
	"testing"

	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCheckoutDraftRepository_SaveAndFind(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormCheckoutDraftRepository(db)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionPayFirst)

	draft := newTestDraft(t, product, 2, "cs_test_draft")
	require.NoError(t, repo.Save(ctx, draft))

	found, err := repo.FindBySessionID(ctx, "cs_test_draft")
	require.NoError(t, err)
	assert.Equal(t, draft.ID, found.ID)
	assert.Equal(t, product.ID, found.ProductID)
	assert.Equal(t, 2, found.Quantity)
	assert.True(t, found.TotalPrice.Equal(draft.TotalPrice))
	assert.Equal(t, "Amina", found.Contact.FirstName)
	assert.False(t, found.IsFinalized())
}

func TestGormCheckoutDraftRepository_Save_RequiresSession(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormCheckoutDraftRepository(db)
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionPayFirst)

	draft, err := fulfillment.NewCheckoutDraft(fulfillment.Buyer{UID: "buyer-1", Email: "buyer@shop.com"}, product.ToSnapshot(), 1, testContact())
	require.NoError(t, err)

	err = repo.Save(context.Background(), draft)

	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestGormCheckoutDraftRepository_Save_DuplicateSession(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormCheckoutDraftRepository(db)
	ctx := context.Background()
	product := testutil.SeedProduct(t, db, 10, catalog.PaymentOptionPayFirst)

	require.NoError(t, repo.Save(ctx, newTestDraft(t, product, 1, "cs_dup")))

	err := repo.Save(ctx, newTestDraft(t, product, 1, "cs_dup"))

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeConflict, domainErr.Code)
}

func TestGormCheckoutDraftRepository_FindBySessionID_NotFound(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGormCheckoutDraftRepository(db)

	_, err := repo.FindBySessionID(context.Background(), "cs_missing")

	assert.ErrorIs(t, err, shared.ErrNotFound)
}
