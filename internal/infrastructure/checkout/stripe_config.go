package checkout

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
)

// StripeConfig configures hosted checkout.
// SuccessURL should carry {CHECKOUT_SESSION_ID} so the client can call finalize with it.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	IsTestMode    bool
	Currency      string // ISO code of product prices, e.g. "usd"
	SuccessURL    string
	CancelURL     string
	Timeout       time.Duration // per API call; zero keeps the library default
}

func DefaultStripeConfig() *StripeConfig {
	return &StripeConfig{
		IsTestMode: true,
		Currency:   "usd",
		SuccessURL: "http://localhost:5173/payment-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "http://localhost:5173/payment-cancelled",
	}
}

// Validate reports every problem at once. The key prefix must match the mode.
func (c *StripeConfig) Validate() error {
	var errs []error
	wantPrefix := "sk_live"
	if c.IsTestMode {
		wantPrefix = "sk_test"
	}
	switch {
	case c.SecretKey == "":
		errs = append(errs, errors.New("secret key is required"))
	case !strings.HasPrefix(c.SecretKey, wantPrefix):
		errs = append(errs, errors.New("secret key does not match the configured mode, want "+wantPrefix))
	}
	if c.Currency == "" {
		errs = append(errs, errors.New("currency is required"))
	}
	if c.SuccessURL == "" || c.CancelURL == "" {
		errs = append(errs, errors.New("success and cancel URLs are required"))
	}
	if err := errors.Join(errs...); err != nil {
		return errors.Join(errors.New("stripe config"), err)
	}
	return nil
}

// apply installs the key and HTTP timeout on the process-wide stripe client.
func (c *StripeConfig) apply() {
	stripe.Key = c.SecretKey
	if c.Timeout <= 0 {
		return
	}
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: c.Timeout},
	}))
}
