package handler

import (
	"context"

	identityapp "github.com/garmentflow/backend/internal/application/identity"
	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountUseCases is the account API surface the handler drives
type AccountUseCases interface {
	Register(ctx context.Context, id identity.Identity, input identityapp.RegisterInput) (*identityapp.AccountResponse, error)
	Me(ctx context.Context, id identity.Identity) (*identityapp.MeResponse, error)
	List(ctx context.Context, id identity.Identity, input identityapp.ListAccountsInput) (*shared.Paginated[identityapp.AccountResponse], error)
	UpdateStatus(ctx context.Context, id identity.Identity, accountID uuid.UUID, input identityapp.UpdateStatusInput) (*identityapp.AccountResponse, error)
	ChangeRole(ctx context.Context, id identity.Identity, accountID uuid.UUID, role identity.Role) (*identityapp.AccountResponse, error)
}

// AccountHandler handles account endpoints
type AccountHandler struct {
	BaseHandler
	accounts AccountUseCases
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts AccountUseCases) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register creates a pending account for the verified caller
//
//	POST /api/v1/accounts/register
func (h *AccountHandler) Register(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), id, identityapp.RegisterInput{
		Name: req.Name,
		Role: identity.Role(req.Role),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, account)
}

// Me handles GET /api/v1/accounts/me
func (h *AccountHandler) Me(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}

	me, err := h.accounts.Me(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, me)
}

// List handles GET /api/v1/accounts (admin)
func (h *AccountHandler) List(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var q ListAccountsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.accounts.List(c.Request.Context(), id, q.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	paginated(&h.BaseHandler, c, page)
}

// UpdateStatus handles PATCH /api/v1/accounts/:id/status (admin)
func (h *AccountHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	accountID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateAccountStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	account, err := h.accounts.UpdateStatus(c.Request.Context(), id, accountID, identityapp.UpdateStatusInput{
		Status:        identity.AccountStatus(req.Status),
		SuspendReason: req.SuspendReason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// ChangeRole handles PATCH /api/v1/accounts/:id/role (admin)
func (h *AccountHandler) ChangeRole(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	accountID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	account, err := h.accounts.ChangeRole(c.Request.Context(), id, accountID, identity.Role(req.Role))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}
