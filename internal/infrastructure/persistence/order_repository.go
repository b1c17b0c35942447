package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderRepository implements fulfillment.OrderRepository using GORM.
// Every write that moves stock does so in the same transaction as the order row.
type GormOrderRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds an order by ID with its tracking ledger
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.Order, error) {
	var model models.OrderModel
	if err := r.withSteps(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCheckoutSession finds the order created from a checkout session
func (r *GormOrderRepository) FindByCheckoutSession(ctx context.Context, sessionID string) (*fulfillment.Order, error) {
	var model models.OrderModel
	if err := r.withSteps(r.db.WithContext(ctx)).
		Where("checkout_session_id = ?", sessionID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns orders matching the filter and the total count before pagination
func (r *GormOrderRepository) FindAll(ctx context.Context, filter fulfillment.OrderFilter) ([]fulfillment.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.BuyerUID != "" {
		query = query.Where("buyer_uid = ?", filter.BuyerUID)
	}
	if filter.SellerEmail != "" {
		query = query.Where("seller_email = ?", filter.SellerEmail)
	}
	if filter.Status != nil {
		query = query.Where("approval_status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Clauses(orderSortColumns.orderBy(filter.OrderBy, filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.OrderModel
	if err := r.withSteps(query).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]fulfillment.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// CreateWithStockDecrement inserts the order and takes its quantity from the product.
// Nothing is written when stock is short.
func (r *GormOrderRepository) CreateWithStockDecrement(ctx context.Context, order *fulfillment.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := decrementStock(tx, order.ProductID, order.Quantity); err != nil {
			return err
		}
		return r.insert(ctx, tx, order)
	})
	if err != nil {
		return err
	}
	order.ClearDomainEvents()
	return nil
}

// FinalizeCheckout claims the draft, decrements stock and inserts the order in one transaction.
// The claim stamps finalized_at on an unclaimed draft first, so concurrent finalizers queue on
// the draft row; order_id is linked only after the order row exists. Losing the claim returns
// fulfillment.ErrCheckoutAlreadyClaimed and leaves every table unchanged.
func (r *GormOrderRepository) FinalizeCheckout(ctx context.Context, draft *fulfillment.CheckoutDraft, order *fulfillment.Order) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.CheckoutDraftModel{}).
			Where("session_id = ? AND order_id IS NULL AND finalized_at IS NULL", draft.SessionID).
			Update("finalized_at", now)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return fulfillment.ErrCheckoutAlreadyClaimed
		}

		if err := decrementStock(tx, order.ProductID, order.Quantity); err != nil {
			return err
		}
		if err := r.insert(ctx, tx, order); err != nil {
			return err
		}
		return tx.Model(&models.CheckoutDraftModel{}).
			Where("session_id = ?", draft.SessionID).
			Update("order_id", order.ID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// the unique checkout_session_id index caught a finalize that bypassed the draft claim
			return fulfillment.ErrCheckoutAlreadyClaimed
		}
		return err
	}

	orderID := order.ID
	draft.OrderID = &orderID
	draft.FinalizedAt = &now
	order.ClearDomainEvents()
	return nil
}

// SaveWithLock persists approval, fulfillment and tracking changes with an optimistic lock
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *fulfillment.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.update(ctx, tx, order)
	})
	if err != nil {
		return err
	}
	order.ClearDomainEvents()
	return nil
}

// SaveWithStockRestore persists the order like SaveWithLock and gives its quantity back
// to the product in the same transaction
func (r *GormOrderRepository) SaveWithStockRestore(ctx context.Context, order *fulfillment.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.update(ctx, tx, order); err != nil {
			return err
		}
		return restoreStock(tx, order.ProductID, order.Quantity)
	})
	if err != nil {
		return err
	}
	order.ClearDomainEvents()
	return nil
}

func (r *GormOrderRepository) insert(ctx context.Context, tx *gorm.DB, order *fulfillment.Order) error {
	model := models.OrderModelFromDomain(order)
	if err := tx.Create(model).Error; err != nil {
		return err
	}
	return r.saveEvents(ctx, tx, order.GetDomainEvents())
}

func (r *GormOrderRepository) update(ctx context.Context, tx *gorm.DB, order *fulfillment.Order) error {
	// Get current version from database
	var currentVersion int
	result := tx.Model(&models.OrderModel{}).
		Where("id = ?", order.ID).
		Select("version").
		Scan(&currentVersion)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}

	if currentVersion != order.Version {
		return shared.ErrConcurrencyConflict
	}

	order.Version++
	order.UpdatedAt = time.Now()

	result = tx.Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", order.ID, currentVersion).
		Updates(map[string]interface{}{
			"approval_status":     order.ApprovalStatus,
			"fulfillment_status":  order.FulfillmentStatus,
			"current_location":    order.Tracking.CurrentLocation,
			"tracking_updated_at": order.Tracking.UpdatedAt,
			"approved_at":         order.ApprovedAt,
			"rejected_at":         order.RejectedAt,
			"cancelled_at":        order.CancelledAt,
			"version":             order.Version,
			"updated_at":          order.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	// The ledger is replaced as a whole
	if err := tx.Where("order_id = ?", order.ID).Delete(&models.TrackingStepModel{}).Error; err != nil {
		return err
	}
	if steps := models.TrackingStepModelsFromDomain(order.ID, order.Tracking.Steps); len(steps) > 0 {
		if err := tx.Create(&steps).Error; err != nil {
			return err
		}
	}

	return r.saveEvents(ctx, tx, order.GetDomainEvents())
}

func (r *GormOrderRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

func (r *GormOrderRepository) withSteps(query *gorm.DB) *gorm.DB {
	return query.Preload("TrackingSteps", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// Ensure GormOrderRepository implements fulfillment.OrderRepository
var _ fulfillment.OrderRepository = (*GormOrderRepository)(nil)
