package identity

import "github.com/garmentflow/backend/internal/domain/shared"

// Aggregate type constant
const AggregateTypeAccount = "Account"

// Event type constants
const (
	EventTypeAccountStatusChanged = "AccountStatusChanged"
	EventTypeAccountRoleChanged   = "AccountRoleChanged"
)

// AccountStatusChangedEvent is published when an admin activates or suspends an account
type AccountStatusChangedEvent struct {
	shared.BaseDomainEvent
	Email         string        `json:"email"`
	OldStatus     AccountStatus `json:"old_status"`
	NewStatus     AccountStatus `json:"new_status"`
	SuspendReason string        `json:"suspend_reason,omitempty"`
}

// NewAccountStatusChangedEvent creates a new AccountStatusChangedEvent
func NewAccountStatusChangedEvent(a *Account, old AccountStatus) *AccountStatusChangedEvent {
	return &AccountStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountStatusChanged, AggregateTypeAccount, a.ID),
		Email:           a.Email,
		OldStatus:       old,
		NewStatus:       a.Status,
		SuspendReason:   a.SuspendReason,
	}
}

// AccountRoleChangedEvent is published when an admin changes an account's role
type AccountRoleChangedEvent struct {
	shared.BaseDomainEvent
	Email   string `json:"email"`
	OldRole Role   `json:"old_role"`
	NewRole Role   `json:"new_role"`
}

// NewAccountRoleChangedEvent creates a new AccountRoleChangedEvent
func NewAccountRoleChangedEvent(a *Account, old Role) *AccountRoleChangedEvent {
	return &AccountRoleChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountRoleChanged, AggregateTypeAccount, a.ID),
		Email:           a.Email,
		OldRole:         old,
		NewRole:         a.Role,
	}
}
