package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/garmentflow/backend/internal/infrastructure/persistence/models"
)

// NewSQLiteDB opens a private in-memory SQLite database with every model migrated.
// The pool is pinned to one connection because each :memory: connection is its own database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to open SQLite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "Failed to migrate models")
	return db
}

// SeedProduct inserts a product priced at 12.50 with the given stock and a minimum order of one.
func SeedProduct(t *testing.T, db *gorm.DB, stock int, option catalog.PaymentOption) *models.ProductModel {
	t.Helper()

	now := time.Now()
	product := &models.ProductModel{
		Name:              "Cotton T-Shirt",
		ManagerEmail:      "seller@garments.com",
		Price:             decimal.RequireFromString("12.50"),
		AvailableQuantity: stock,
		MinOrder:          1,
		PaymentOption:     option,
	}
	product.ID = uuid.New()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Version = 1
	require.NoError(t, db.Create(product).Error, "Failed to seed product")
	return product
}

// ProductStock reads the current available quantity of a product.
func ProductStock(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()

	var product models.ProductModel
	require.NoError(t, db.First(&product, "id = ?", productID).Error)
	return product.AvailableQuantity
}
