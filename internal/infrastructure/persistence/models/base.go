package models

import (
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateModel carries the columns every aggregate table shares.
// Version backs the optimistic lock checked on update.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

func (m AggregateModel) root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Version:    m.Version,
	}
}

func aggregateOf(r shared.BaseAggregateRoot) AggregateModel {
	return AggregateModel{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version}
}

// All lists the models AutoMigrate creates for tests, parents first.
// Production schemas come from the SQL migrations.
func All() []any {
	return []any{
		&AccountModel{},
		&ProductModel{},
		&OrderModel{},
		&TrackingStepModel{},
		&CheckoutDraftModel{},
		&OutboxEntryModel{},
	}
}
