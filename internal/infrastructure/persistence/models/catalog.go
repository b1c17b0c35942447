package models

import (
	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model of a catalog product.
// The order core reads it and moves AvailableQuantity; every other column belongs to the catalog.
type ProductModel struct {
	AggregateModel
	Name              string                `gorm:"type:varchar(200);not null"`
	Description       string                `gorm:"type:text"`
	ManagerEmail      string                `gorm:"type:varchar(320);not null;index"`
	Price             decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	AvailableQuantity int                   `gorm:"not null;default:0"`
	MinOrder          int                   `gorm:"not null;default:1"`
	PaymentOption     catalog.PaymentOption `gorm:"type:varchar(20);not null;default:'CashOnDelivery'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToSnapshot converts the persistence model to the read-only product view of the order core.
func (m *ProductModel) ToSnapshot() *catalog.ProductSnapshot {
	return &catalog.ProductSnapshot{
		ID:                m.ID,
		Name:              m.Name,
		ManagerEmail:      m.ManagerEmail,
		Price:             m.Price,
		AvailableQuantity: m.AvailableQuantity,
		MinOrder:          m.MinOrder,
		PaymentOption:     m.PaymentOption,
	}
}
