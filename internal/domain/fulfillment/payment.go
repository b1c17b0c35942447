package fulfillment

import (
	"regexp"
	"strings"

	"github.com/garmentflow/backend/internal/domain/shared"
)

// PaymentMethod is the way a buyer pays for an order
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "CashOnDelivery"
	PaymentMethodManualProof    PaymentMethod = "ManualProof"
	PaymentMethodHostedCheckout PaymentMethod = "HostedCheckout"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodManualProof, PaymentMethodHostedCheckout:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// IsDeferred reports whether the order is only materialized after a hosted checkout completes
func (m PaymentMethod) IsDeferred() bool {
	return m == PaymentMethodHostedCheckout
}

// PaymentDetails is the typed payment evidence of an order.
// The concrete type is one of CashOnDelivery, ManualProof or HostedCheckout.
type PaymentDetails interface {
	Method() PaymentMethod
	Validate() error
	paymentDetails()
}

// CashOnDelivery carries no evidence; the courier collects payment
type CashOnDelivery struct{}

func (CashOnDelivery) Method() PaymentMethod { return PaymentMethodCashOnDelivery }
func (CashOnDelivery) Validate() error       { return nil }
func (CashOnDelivery) paymentDetails()       {}

// ManualProof is a mobile-money transfer the buyer made before ordering
type ManualProof struct {
	MobileNumber  string
	TransactionID string
}

var mobileNumberPattern = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

// NormalizeMobileNumber strips spaces and dashes from a mobile number
func NormalizeMobileNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(number))
}

// IsValidMobileNumber reports whether number looks like a dialable mobile number
func IsValidMobileNumber(number string) bool {
	return mobileNumberPattern.MatchString(NormalizeMobileNumber(number))
}

func (ManualProof) Method() PaymentMethod { return PaymentMethodManualProof }
func (ManualProof) paymentDetails()       {}

// Validate requires both the sending number and the provider transaction id
func (p ManualProof) Validate() error {
	if strings.TrimSpace(p.MobileNumber) == "" {
		return shared.NewValidationError("Mobile number is required for manual payment proof")
	}
	if !IsValidMobileNumber(p.MobileNumber) {
		return shared.NewValidationError("Mobile number for manual payment proof is invalid")
	}
	txn := strings.TrimSpace(p.TransactionID)
	if txn == "" {
		return shared.NewValidationError("Transaction id is required for manual payment proof")
	}
	if len(txn) > 64 {
		return shared.NewValidationError("Transaction id cannot exceed 64 characters")
	}
	return nil
}

// HostedCheckout links an order to the checkout session that paid for it
type HostedCheckout struct {
	SessionID string
}

func (HostedCheckout) Method() PaymentMethod { return PaymentMethodHostedCheckout }
func (HostedCheckout) paymentDetails()       {}

// Validate requires the originating session id
func (h HostedCheckout) Validate() error {
	if strings.TrimSpace(h.SessionID) == "" {
		return shared.NewValidationError("Checkout session id is required")
	}
	return nil
}
