package identity

import (
	"fmt"

	"github.com/garmentflow/backend/internal/domain/shared"
)

// Identity is what the identity provider vouches for in a verified bearer token
type Identity struct {
	UID   string
	Email string
}

// Actor is the caller of a core operation, resolved once per request from a verified
// Identity and the stored Account. It is passed explicitly into every operation.
type Actor struct {
	Identity
	AccountID     string
	Role          Role
	Status        AccountStatus
	SuspendReason string
	capabilities  CapabilitySet
}

// systemRole marks the actor provider callbacks run as. Role.IsValid refuses it, so no
// account can hold it.
const systemRole Role = "system"

// SystemActor acts for the service itself on verified provider callbacks.
// It holds CapOperateSystem only.
func SystemActor() Actor {
	return Actor{
		Role:         systemRole,
		Status:       AccountStatusActive,
		capabilities: CapabilitySet{CapOperateSystem: {}},
	}
}

// IsSystem reports whether the actor is SystemActor
func (a Actor) IsSystem() bool {
	return a.Role == systemRole
}

// NewActor combines a verified identity with its account
func NewActor(id Identity, account *Account) Actor {
	return Actor{
		Identity:      Identity{UID: id.UID, Email: NormalizeEmail(id.Email)},
		AccountID:     account.ID.String(),
		Role:          account.Role,
		Status:        account.Status,
		SuspendReason: account.SuspendReason,
		capabilities:  CapabilitiesFor(account.Role),
	}
}

// Capabilities returns the role's capability set
func (a Actor) Capabilities() CapabilitySet {
	return a.capabilities
}

// Can reports whether Authorize would succeed, without building an error
func (a Actor) Can(c Capability) bool {
	return a.Authorize(c) == nil
}

// Authorize evaluates the capability matrix for this actor.
// Mutating capabilities are refused to suspended accounts (AccountSuspended) and
// pending accounts (PermissionDenied); reads stay available to both.
func (a Actor) Authorize(c Capability) error {
	if c.IsMutating() {
		switch a.Status {
		case AccountStatusSuspended:
			return shared.NewAccountSuspendedError(a.SuspendReason)
		case AccountStatusPending:
			return shared.NewPermissionDeniedError("Account is pending approval")
		case AccountStatusActive:
		default:
			return shared.NewPermissionDeniedError("Account status is unknown")
		}
	}
	if !a.capabilities.Has(c) {
		return shared.NewPermissionDeniedError(fmt.Sprintf("Role %s is not allowed to %s", a.Role, c))
	}
	return nil
}

// ManagesProduct reports whether the actor may act on orders for a product managed by managerEmail.
// Admins manage every product.
func (a Actor) ManagesProduct(managerEmail string) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return a.Email != "" && a.Email == NormalizeEmail(managerEmail)
	}
	return false
}

// IsBuyer reports whether uid is the actor's own uid
func (a Actor) IsBuyer(uid string) bool {
	return a.UID != "" && a.UID == uid
}
