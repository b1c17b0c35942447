package checkout

import (
	"context"
	"fmt"

	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
	"go.uber.org/zap"
)

// Metadata keys written onto Stripe checkout sessions
const (
	MetadataDraftID   = "draft_id"
	MetadataProductID = "product_id"
	MetadataBuyerUID  = "buyer_uid"
)

// StripeGateway opens and inspects Stripe hosted checkout sessions.
// It never retries; failed calls are returned to the caller as is.
type StripeGateway struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeGateway creates a new Stripe checkout gateway
func NewStripeGateway(config *StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.apply()

	return &StripeGateway{
		config: config,
		logger: logger,
	}, nil
}

// CreateSession opens a payment-mode checkout session for the draft's single line item
func (g *StripeGateway) CreateSession(ctx context.Context, draft *fulfillment.CheckoutDraft) (*fulfillment.CheckoutSession, error) {
	g.logger.Debug("Creating Stripe checkout session",
		zap.String("draft_id", draft.ID.String()),
		zap.String("product_id", draft.ProductID.String()))

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.config.SuccessURL),
		CancelURL:         stripe.String(g.config.CancelURL),
		CustomerEmail:     stripe.String(draft.Buyer.Email),
		ClientReferenceID: stripe.String(draft.ID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.config.Currency),
					UnitAmount: stripe.Int64(ToMinorUnits(draft.UnitPrice)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(draft.ProductName),
					},
				},
				Quantity: stripe.Int64(int64(draft.Quantity)),
			},
		},
	}
	params.Context = ctx
	params.Metadata = map[string]string{
		MetadataDraftID:   draft.ID.String(),
		MetadataProductID: draft.ProductID.String(),
		MetadataBuyerUID:  draft.Buyer.UID,
	}

	s, err := session.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe checkout session",
			zap.String("draft_id", draft.ID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	g.logger.Info("Created Stripe checkout session",
		zap.String("draft_id", draft.ID.String()),
		zap.String("session_id", s.ID))

	return &fulfillment.CheckoutSession{
		SessionID:   s.ID,
		RedirectURL: s.URL,
	}, nil
}

// GetSessionStatus reports whether the session is complete and paid
func (g *StripeGateway) GetSessionStatus(ctx context.Context, sessionID string) (*fulfillment.CheckoutSessionStatus, error) {
	g.logger.Debug("Getting Stripe checkout session", zap.String("session_id", sessionID))

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := session.Get(sessionID, params)
	if err != nil {
		g.logger.Error("Failed to get Stripe checkout session",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to get checkout session: %w", err)
	}

	return &fulfillment.CheckoutSessionStatus{
		SessionID:   s.ID,
		Completed:   IsSessionPaid(s),
		AmountTotal: FromMinorUnits(s.AmountTotal),
	}, nil
}

// IsSessionPaid reports whether a Stripe session finished with funds captured
func IsSessionPaid(s *stripe.CheckoutSession) bool {
	if s == nil || s.Status != stripe.CheckoutSessionStatusComplete {
		return false
	}
	return s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		s.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
}

// ToMinorUnits converts a price to the smallest currency unit Stripe expects
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts a Stripe amount back to a decimal price
func FromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
