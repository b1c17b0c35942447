package fulfillment

// ApprovalStatus is the buyer/manager-facing lifecycle state of an order
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "Pending"
	ApprovalStatusApproved  ApprovalStatus = "Approved"
	ApprovalStatusRejected  ApprovalStatus = "Rejected"
	ApprovalStatusCancelled ApprovalStatus = "Cancelled"
)

// IsValid checks if the status is a valid ApprovalStatus
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ApprovalStatus
func (s ApprovalStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further approval transition is possible
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusRejected || s == ApprovalStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s ApprovalStatus) CanTransitionTo(target ApprovalStatus) bool {
	switch s {
	case ApprovalStatusPending:
		return target == ApprovalStatusApproved ||
			target == ApprovalStatusRejected ||
			target == ApprovalStatusCancelled
	case ApprovalStatusApproved, ApprovalStatusRejected, ApprovalStatusCancelled:
		return false // Terminal states
	}
	return false
}

// FulfillmentStatus is the physical shipment progress, derived from the tracking ledger.
// It is independent of ApprovalStatus and only moves once an order is approved.
type FulfillmentStatus string

const (
	FulfillmentNotStarted     FulfillmentStatus = "NotStarted"
	FulfillmentPacked         FulfillmentStatus = "Packed"
	FulfillmentShipped        FulfillmentStatus = "Shipped"
	FulfillmentOutForDelivery FulfillmentStatus = "OutForDelivery"
	FulfillmentDelivered      FulfillmentStatus = "Delivered"
)

// IsValid checks if the status is a valid FulfillmentStatus
func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentNotStarted, FulfillmentPacked, FulfillmentShipped, FulfillmentOutForDelivery, FulfillmentDelivered:
		return true
	}
	return false
}

// String returns the string representation of FulfillmentStatus
func (s FulfillmentStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the ledger may move from s to target. The submitted ledger is
// authoritative, so corrections in either direction are allowed, Delivered included.
func (s FulfillmentStatus) CanTransitionTo(target FulfillmentStatus) bool {
	return target.IsValid()
}
