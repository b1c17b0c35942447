package identity

import (
	"time"

	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// RegisterInput is a self-service registration request
type RegisterInput struct {
	Name string
	Role identity.Role
}

// UpdateStatusInput is an admin status change
type UpdateStatusInput struct {
	Status        identity.AccountStatus
	SuspendReason string
}

// ListAccountsInput filters the admin account list
type ListAccountsInput struct {
	Role     *identity.Role
	Status   *identity.AccountStatus
	Page     int
	PageSize int
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID            uuid.UUID `json:"id"`
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	SuspendReason string    `json:"suspendReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// MeResponse is the caller's own account with the capabilities it resolves to
type MeResponse struct {
	AccountResponse
	Capabilities []string `json:"capabilities"`
}

// ToAccountResponse converts a domain Account to its response DTO
func ToAccountResponse(a *identity.Account) AccountResponse {
	return AccountResponse{
		ID:            a.ID,
		UID:           a.UID,
		Email:         a.Email,
		Name:          a.Name,
		Role:          a.Role.String(),
		Status:        a.Status.String(),
		SuspendReason: a.SuspendReason,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// ToAccountResponses converts a slice of domain Accounts
func ToAccountResponses(accounts []identity.Account) []AccountResponse {
	out := make([]AccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToAccountResponse(&accounts[i])
	}
	return out
}
