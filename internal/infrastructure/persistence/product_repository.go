package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository reads catalog products for the order core
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindSnapshot loads the fields an order snapshots from a product
func (r *GormProductRepository) FindSnapshot(ctx context.Context, id uuid.UUID) (*catalog.ProductSnapshot, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToSnapshot(), nil
}

// decrementStock takes quantity units from a product inside tx.
// Check and write are a single conditional UPDATE; available_quantity never goes below zero.
func decrementStock(tx *gorm.DB, productID uuid.UUID, quantity int) error {
	result := tx.Model(&models.ProductModel{}).
		Where("id = ? AND available_quantity >= ?", productID, quantity).
		Updates(map[string]interface{}{
			"available_quantity": gorm.Expr("available_quantity - ?", quantity),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return missingOr(tx, productID, shared.ErrInsufficientStock)
	}
	return nil
}

// restoreStock gives quantity units back to a product inside tx
func restoreStock(tx *gorm.DB, productID uuid.UUID, quantity int) error {
	result := tx.Model(&models.ProductModel{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"available_quantity": gorm.Expr("available_quantity + ?", quantity),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// missingOr returns shared.ErrNotFound when the product is gone, otherwise fallback
func missingOr(tx *gorm.DB, productID uuid.UUID, fallback error) error {
	var count int64
	if err := tx.Model(&models.ProductModel{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.ErrNotFound
	}
	return fallback
}

// Ensure GormProductRepository implements catalog.ProductReader
var _ catalog.ProductReader = (*GormProductRepository)(nil)
