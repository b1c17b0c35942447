package persistence

import (
	"context"
	"errors"

	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCheckoutDraftRepository implements fulfillment.CheckoutDraftRepository using GORM
type GormCheckoutDraftRepository struct {
	db *gorm.DB
}

// NewGormCheckoutDraftRepository creates a new GormCheckoutDraftRepository
func NewGormCheckoutDraftRepository(db *gorm.DB) *GormCheckoutDraftRepository {
	return &GormCheckoutDraftRepository{db: db}
}

// Save inserts a draft. Drafts are immutable apart from the finalize claim.
func (r *GormCheckoutDraftRepository) Save(ctx context.Context, draft *fulfillment.CheckoutDraft) error {
	if draft.SessionID == "" {
		return shared.NewValidationError("Checkout draft has no session")
	}
	if err := r.db.WithContext(ctx).Create(models.CheckoutDraftModelFromDomain(draft)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewConflictError("Checkout session already has a draft")
		}
		return err
	}
	return nil
}

// FindBySessionID finds the draft of a checkout session
func (r *GormCheckoutDraftRepository) FindBySessionID(ctx context.Context, sessionID string) (*fulfillment.CheckoutDraft, error) {
	var model models.CheckoutDraftModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormCheckoutDraftRepository implements fulfillment.CheckoutDraftRepository
var _ fulfillment.CheckoutDraftRepository = (*GormCheckoutDraftRepository)(nil)
