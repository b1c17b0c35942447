package fulfillment

import (
	"fmt"
	"strings"

	"github.com/garmentflow/backend/internal/domain/catalog"
	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/domain/shared"
)

// PaymentPath says whether an order is persisted immediately or behind a checkout session
type PaymentPath int

const (
	PaymentPathDirect PaymentPath = iota
	PaymentPathDeferred
)

func (p PaymentPath) String() string {
	if p == PaymentPathDeferred {
		return "deferred"
	}
	return "direct"
}

// PaymentMethodResolver decides the creation path from the product's declared option and
// the buyer's selection
type PaymentMethodResolver struct{}

// Resolve returns typed payment details and the path to take.
// For the deferred path the details carry no session yet; the gateway assigns it.
func (PaymentMethodResolver) Resolve(product *catalog.ProductSnapshot, in PaymentInput) (fulfillment.PaymentDetails, PaymentPath, error) {
	switch in.Method {
	case fulfillment.PaymentMethodCashOnDelivery:
		return fulfillment.CashOnDelivery{}, PaymentPathDirect, nil

	case fulfillment.PaymentMethodManualProof:
		proof := fulfillment.ManualProof{
			MobileNumber:  fulfillment.NormalizeMobileNumber(in.MobileNumber),
			TransactionID: strings.TrimSpace(in.TransactionID),
		}
		if err := proof.Validate(); err != nil {
			return nil, PaymentPathDirect, err
		}
		return proof, PaymentPathDirect, nil

	case fulfillment.PaymentMethodHostedCheckout:
		if !product.PaymentOption.OffersHostedCheckout() {
			return nil, PaymentPathDeferred, shared.NewValidationError(
				fmt.Sprintf("Product %s does not offer hosted checkout", product.Name))
		}
		return fulfillment.HostedCheckout{}, PaymentPathDeferred, nil
	}

	return nil, PaymentPathDirect, shared.NewValidationError(fmt.Sprintf("Unsupported payment method %q", in.Method))
}
