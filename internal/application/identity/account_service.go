package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService handles registration and admin account management
type AccountService struct {
	accounts identity.AccountRepository
	gate     *AccessGate
	logger   *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts identity.AccountRepository, gate *AccessGate, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts: accounts,
		gate:     gate,
		logger:   logger,
	}
}

// Register creates a pending account for a verified identity.
// Registering an email that already has an account returns that account.
func (s *AccountService) Register(ctx context.Context, id identity.Identity, input RegisterInput) (*AccountResponse, error) {
	if id.Email == "" || id.UID == "" {
		return nil, shared.ErrUnauthenticated
	}

	existing, err := s.accounts.FindByEmail(ctx, identity.NormalizeEmail(id.Email))
	if err == nil {
		response := ToAccountResponse(existing)
		return &response, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = identity.RoleBuyer
	}
	if role == identity.RoleAdmin {
		return nil, shared.NewPermissionDeniedError("Admin accounts cannot be self-registered")
	}

	account, err := identity.NewAccount(id.UID, id.Email, input.Name, role)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account registered",
		zap.String("account_id", account.ID.String()),
		zap.String("role", account.Role.String()))

	response := ToAccountResponse(account)
	return &response, nil
}

// Me returns the caller's account and resolved capabilities
func (s *AccountService) Me(ctx context.Context, id identity.Identity) (*MeResponse, error) {
	actor, err := s.gate.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.FindByEmail(ctx, actor.Email)
	if err != nil {
		return nil, err
	}

	caps := make([]string, 0)
	for _, c := range actor.Capabilities().List() {
		if actor.Can(c) {
			caps = append(caps, c.String())
		}
	}

	return &MeResponse{
		AccountResponse: ToAccountResponse(account),
		Capabilities:    caps,
	}, nil
}

// List returns accounts for the admin user list
func (s *AccountService) List(ctx context.Context, id identity.Identity, input ListAccountsInput) (*shared.Paginated[AccountResponse], error) {
	if _, err := s.authorizeAdmin(ctx, id); err != nil {
		return nil, err
	}

	filter := identity.AccountFilter{Filter: shared.DefaultFilter()}
	if input.Page > 0 {
		filter.Page = input.Page
	}
	if input.PageSize > 0 {
		filter.PageSize = min(input.PageSize, 100)
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, shared.NewValidationError(fmt.Sprintf("Unknown role %q", *input.Role))
		}
		filter.Role = input.Role
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, shared.NewValidationError(fmt.Sprintf("Unknown status %q", *input.Status))
		}
		filter.Status = input.Status
	}

	accounts, total, err := s.accounts.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToAccountResponses(accounts), total, filter.Page, filter.PageSize)
	return &page, nil
}

// UpdateStatus activates or suspends an account
func (s *AccountService) UpdateStatus(ctx context.Context, id identity.Identity, accountID uuid.UUID, input UpdateStatusInput) (*AccountResponse, error) {
	actor, err := s.authorizeAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.ID.String() == actor.AccountID {
		return nil, shared.NewValidationError("You cannot change your own status")
	}

	switch input.Status {
	case identity.AccountStatusActive:
		err = account.Activate()
	case identity.AccountStatusSuspended:
		err = account.Suspend(input.SuspendReason)
	default:
		err = shared.NewValidationError("Status must be active or suspended")
	}
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account status changed",
		zap.String("account_id", account.ID.String()),
		zap.String("status", account.Status.String()),
		zap.String("admin", actor.Email))

	response := ToAccountResponse(account)
	return &response, nil
}

// ChangeRole assigns a new role to an account
func (s *AccountService) ChangeRole(ctx context.Context, id identity.Identity, accountID uuid.UUID, role identity.Role) (*AccountResponse, error) {
	actor, err := s.authorizeAdmin(ctx, id)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.ID.String() == actor.AccountID {
		return nil, shared.NewValidationError("You cannot change your own role")
	}

	if err := account.ChangeRole(role); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account role changed",
		zap.String("account_id", account.ID.String()),
		zap.String("role", account.Role.String()),
		zap.String("admin", actor.Email))

	response := ToAccountResponse(account)
	return &response, nil
}

// EnsureAdmin makes sure a bootstrap admin account exists and is active.
// It runs at startup, outside any request, so it skips the gate.
func (s *AccountService) EnsureAdmin(ctx context.Context, id identity.Identity, name string) error {
	account, err := s.accounts.FindByEmail(ctx, identity.NormalizeEmail(id.Email))
	switch {
	case errors.Is(err, shared.ErrNotFound):
		account, err = identity.NewAccount(id.UID, id.Email, name, identity.RoleAdmin)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	}

	if err := account.ChangeRole(identity.RoleAdmin); err != nil {
		return err
	}
	if account.Status != identity.AccountStatusActive {
		if err := account.Activate(); err != nil {
			return err
		}
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		return err
	}

	s.logger.Info("Bootstrap admin ensured", zap.String("account_id", account.ID.String()))
	return nil
}

func (s *AccountService) authorizeAdmin(ctx context.Context, id identity.Identity) (identity.Actor, error) {
	actor, err := s.gate.Resolve(ctx, id)
	if err != nil {
		return identity.Actor{}, err
	}
	if err := actor.Authorize(identity.CapManageAccounts); err != nil {
		return identity.Actor{}, err
	}
	return actor, nil
}
