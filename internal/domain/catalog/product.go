package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentOption is the payment mode a manager declares when listing a product
type PaymentOption string

const (
	// PaymentOptionCashOnDelivery products are paid on delivery or with a manual mobile-money proof
	PaymentOptionCashOnDelivery PaymentOption = "CashOnDelivery"
	// PaymentOptionPayFirst products additionally offer hosted checkout
	PaymentOptionPayFirst PaymentOption = "PayFirst"
)

// IsValid returns true if the option is known
func (o PaymentOption) IsValid() bool {
	switch o {
	case PaymentOptionCashOnDelivery, PaymentOptionPayFirst:
		return true
	}
	return false
}

// OffersHostedCheckout reports whether buyers may pay through the hosted checkout provider
func (o PaymentOption) OffersHostedCheckout() bool {
	return o == PaymentOptionPayFirst
}

// ProductSnapshot is the read-only view of a product at order time.
// The catalog owns the product; the order core only reads it and moves AvailableQuantity
// through the atomic decrement/restore contract of the order store.
type ProductSnapshot struct {
	ID                uuid.UUID
	Name              string
	ManagerEmail      string
	Price             decimal.Decimal
	AvailableQuantity int
	MinOrder          int
	PaymentOption     PaymentOption
}

// EffectiveMinOrder returns the minimum order quantity, never below one
func (p *ProductSnapshot) EffectiveMinOrder() int {
	if p.MinOrder < 1 {
		return 1
	}
	return p.MinOrder
}
