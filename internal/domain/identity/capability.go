package identity

// Capability is a named permission granted by role and gated by account status
type Capability string

const (
	CapCreateOrder       Capability = "order:create"
	CapCancelOwnOrder    Capability = "order:cancel_own"
	CapDecideOrder       Capability = "order:decide"
	CapUpdateTracking    Capability = "order:update_tracking"
	CapViewOwnOrders     Capability = "order:view_own"
	CapViewManagedOrders Capability = "order:view_managed"
	CapViewAllOrders     Capability = "order:view_all"
	CapManageAccounts    Capability = "account:manage"
	CapOperateSystem     Capability = "system:operate"
)

// IsMutating reports whether the capability changes state.
// Suspended and pending accounts keep only the non-mutating ones.
func (c Capability) IsMutating() bool {
	switch c {
	case CapViewOwnOrders, CapViewManagedOrders, CapViewAllOrders:
		return false
	}
	return true
}

// String returns the string representation
func (c Capability) String() string {
	return string(c)
}

// CapabilitySet is an immutable set of capabilities
type CapabilitySet map[Capability]struct{}

// Has reports whether the set contains c
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities in matrix order
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for _, c := range allCapabilities {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

var allCapabilities = []Capability{
	CapCreateOrder,
	CapCancelOwnOrder,
	CapDecideOrder,
	CapUpdateTracking,
	CapViewOwnOrders,
	CapViewManagedOrders,
	CapViewAllOrders,
	CapManageAccounts,
	CapOperateSystem,
}

var roleCapabilities = map[Role][]Capability{
	RoleBuyer:   {CapCreateOrder, CapCancelOwnOrder, CapViewOwnOrders},
	RoleManager: {CapDecideOrder, CapUpdateTracking, CapViewManagedOrders},
	RoleAdmin:   {CapDecideOrder, CapUpdateTracking, CapViewAllOrders, CapManageAccounts, CapOperateSystem},
}

// CapabilitiesFor returns the capability set granted to a role before status gating
func CapabilitiesFor(role Role) CapabilitySet {
	set := make(CapabilitySet)
	for _, c := range roleCapabilities[role] {
		set[c] = struct{}{}
	}
	return set
}
