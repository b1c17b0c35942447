package handler

import (
	identityapp "github.com/garmentflow/backend/internal/application/identity"
	"github.com/garmentflow/backend/internal/domain/identity"
)

// RegisterAccountRequest is the body of POST /accounts/register
type RegisterAccountRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Role string `json:"role" binding:"omitempty,oneof=buyer manager"`
}

// UpdateAccountStatusRequest is the body of PATCH /accounts/:id/status
type UpdateAccountStatusRequest struct {
	Status        string `json:"status" binding:"required,oneof=pending active suspended"`
	SuspendReason string `json:"suspendReason" binding:"max=500"`
}

// ChangeRoleRequest is the body of PATCH /accounts/:id/role
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=buyer manager admin"`
}

// ListAccountsQuery holds the query of GET /accounts
type ListAccountsQuery struct {
	Role     string `form:"role" binding:"omitempty,oneof=buyer manager admin"`
	Status   string `form:"status" binding:"omitempty,oneof=pending active suspended"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToInput converts the query into the service input
func (q ListAccountsQuery) ToInput() identityapp.ListAccountsInput {
	in := identityapp.ListAccountsInput{Page: q.Page, PageSize: q.PageSize}
	if q.Role != "" {
		role := identity.Role(q.Role)
		in.Role = &role
	}
	if q.Status != "" {
		status := identity.AccountStatus(q.Status)
		in.Status = &status
	}
	return in
}
