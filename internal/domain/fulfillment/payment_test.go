package fulfillment

import (
	"errors"
	"strings"
	"testing"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestPaymentDetails_Validate(t *testing.T) {
	tests := []struct {
		name    string
		details PaymentDetails
		wantErr bool
	}{
		{"cash on delivery", CashOnDelivery{}, false},
		{"manual proof", ManualProof{MobileNumber: "017-1100 0000", TransactionID: "8N7A6D5C"}, false},
		{"manual proof with country code", ManualProof{MobileNumber: "+8801711000000", TransactionID: "X1"}, false},
		{"manual proof missing number", ManualProof{TransactionID: "8N7A6D5C"}, true},
		{"manual proof missing txn", ManualProof{MobileNumber: "01711000000"}, true},
		{"manual proof letters in number", ManualProof{MobileNumber: "call-me", TransactionID: "X"}, true},
		{"manual proof txn too long", ManualProof{MobileNumber: "01711000000", TransactionID: strings.Repeat("x", 65)}, true},
		{"hosted checkout", HostedCheckout{SessionID: "cs_test_1"}, false},
		{"hosted checkout missing session", HostedCheckout{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.details.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, shared.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPaymentMethod(t *testing.T) {
	assert.Equal(t, PaymentMethodManualProof, ManualProof{}.Method())
	assert.True(t, PaymentMethodHostedCheckout.IsDeferred())
	assert.False(t, PaymentMethodCashOnDelivery.IsDeferred())
	assert.False(t, PaymentMethod("bKash").IsValid())
}
