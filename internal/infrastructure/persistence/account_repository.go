package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountRepository implements identity.AccountRepository using GORM
type GormAccountRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormAccountRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds an account by its normalized email
func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*identity.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("email = ?", identity.NormalizeEmail(email)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns accounts with pagination, optionally filtered by role or status
func (r *GormAccountRepository) FindAll(ctx context.Context, filter identity.AccountFilter) ([]identity.Account, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AccountModel{})
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Clauses(accountSortColumns.orderBy(filter.OrderBy, filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.AccountModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	accounts := make([]identity.Account, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, total, nil
}

// Save inserts a new account or updates an existing one with an optimistic lock on Version.
// A duplicate uid or email is reported as a conflict.
func (r *GormAccountRepository) Save(ctx context.Context, account *identity.Account) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		result := tx.Model(&models.AccountModel{}).
			Where("id = ?", account.ID).
			Select("version").
			Scan(&currentVersion)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			if err := tx.Create(models.AccountModelFromDomain(account)).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return shared.NewConflictError("An account with this email already exists")
				}
				return err
			}
			return r.saveEvents(ctx, tx, account.GetDomainEvents())
		}

		if currentVersion != account.Version {
			return shared.ErrConcurrencyConflict
		}

		account.Version++
		account.UpdatedAt = time.Now()

		result = tx.Model(&models.AccountModel{}).
			Where("id = ? AND version = ?", account.ID, currentVersion).
			Updates(map[string]interface{}{
				"name":           account.Name,
				"role":           account.Role,
				"status":         account.Status,
				"suspend_reason": account.SuspendReason,
				"version":        account.Version,
				"updated_at":     account.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		return r.saveEvents(ctx, tx, account.GetDomainEvents())
	})
	if err != nil {
		return err
	}
	account.ClearDomainEvents()
	return nil
}

func (r *GormAccountRepository) saveEvents(ctx context.Context, tx *gorm.DB, events []shared.DomainEvent) error {
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

// Ensure GormAccountRepository implements identity.AccountRepository
var _ identity.AccountRepository = (*GormAccountRepository)(nil)
