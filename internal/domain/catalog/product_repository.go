package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductReader reads product snapshots at order-creation time
type ProductReader interface {
	// FindSnapshot loads the current price, stock, minimum order and payment option of a product.
	// Returns shared.ErrNotFound if the product does not exist.
	FindSnapshot(ctx context.Context, id uuid.UUID) (*ProductSnapshot, error)
}
