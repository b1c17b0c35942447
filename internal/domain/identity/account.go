package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
)

// Role is the marketplace role of an account
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleBuyer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation
func (r Role) String() string {
	return string(r)
}

// AccountStatus represents the approval state of an account
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "pending"   // Registered, awaiting admin approval
	AccountStatusActive    AccountStatus = "active"    // Allowed to mutate orders
	AccountStatusSuspended AccountStatus = "suspended" // Read-only, carries a reason
)

// IsValid returns true if the status is known
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusPending, AccountStatusActive, AccountStatusSuspended:
		return true
	}
	return false
}

// String returns the string representation
func (s AccountStatus) String() string {
	return string(s)
}

// Account is a marketplace user as known to the order core.
// The identity provider owns credentials; the account row owns role and status.
type Account struct {
	shared.BaseAggregateRoot
	UID           string
	Email         string
	Name          string
	Role          Role
	Status        AccountStatus
	SuspendReason string
}

// NewAccount registers an account in pending status
func NewAccount(uid, email, name string, role Role) (*Account, error) {
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, shared.NewValidationError("Invalid email address")
	}
	if strings.TrimSpace(uid) == "" {
		return nil, shared.NewValidationError("Account uid is required")
	}
	if !role.IsValid() {
		return nil, shared.NewValidationError("Invalid role")
	}

	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UID:               strings.TrimSpace(uid),
		Email:             email,
		Name:              strings.TrimSpace(name),
		Role:              role,
		Status:            AccountStatusPending,
	}, nil
}

// Activate approves a pending account or lifts a suspension
func (a *Account) Activate() error {
	if a.Status == AccountStatusActive {
		return shared.NewConflictError("Account is already active")
	}

	old := a.Status
	a.Status = AccountStatusActive
	a.SuspendReason = ""
	a.touch()
	a.AddDomainEvent(NewAccountStatusChangedEvent(a, old))
	return nil
}

// Suspend blocks every mutating capability until the account is activated again
func (a *Account) Suspend(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("Suspend reason is required")
	}
	if a.Status == AccountStatusSuspended {
		return shared.NewConflictError("Account is already suspended")
	}

	old := a.Status
	a.Status = AccountStatusSuspended
	a.SuspendReason = reason
	a.touch()
	a.AddDomainEvent(NewAccountStatusChangedEvent(a, old))
	return nil
}

// ChangeRole assigns a new role. The status is left untouched.
func (a *Account) ChangeRole(role Role) error {
	if !role.IsValid() {
		return shared.NewValidationError("Invalid role")
	}
	if a.Role == role {
		return nil
	}

	old := a.Role
	a.Role = role
	a.touch()
	a.AddDomainEvent(NewAccountRoleChangedEvent(a, old))
	return nil
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now()
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
