package identity

import (
	"context"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	// FindByID finds an account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByEmail finds an account by its normalized email
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindAll returns accounts with pagination, optionally filtered by role or status
	FindAll(ctx context.Context, filter AccountFilter) ([]Account, int64, error)

	// Save creates the account or updates it with an optimistic lock on Version
	Save(ctx context.Context, account *Account) error
}

// AccountFilter contains filter options for querying accounts
type AccountFilter struct {
	shared.Filter
	Role   *Role
	Status *AccountStatus
}
