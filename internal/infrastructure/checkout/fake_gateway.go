package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnknownSession is returned by FakeGateway for sessions it never opened
var ErrUnknownSession = errors.New("checkout: unknown session")

// FakeGateway is an in-process checkout provider for local development and tests.
// Sessions start incomplete; Complete marks one as paid.
type FakeGateway struct {
	mu          sync.Mutex
	redirectURL string
	sessions    map[string]*fulfillment.CheckoutSessionStatus
	calls       map[string]int
}

// NewFakeGateway creates a FakeGateway whose redirect URLs point at redirectURL
func NewFakeGateway(redirectURL string) *FakeGateway {
	return &FakeGateway{
		redirectURL: redirectURL,
		sessions:    make(map[string]*fulfillment.CheckoutSessionStatus),
		calls:       make(map[string]int),
	}
}

// CreateSession opens a new unpaid session for the draft's total
func (g *FakeGateway) CreateSession(_ context.Context, draft *fulfillment.CheckoutDraft) (*fulfillment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := "cs_fake_" + uuid.New().String()
	g.sessions[id] = &fulfillment.CheckoutSessionStatus{
		SessionID:   id,
		AmountTotal: draft.TotalPrice.Round(2),
	}
	g.calls["create_session"]++

	return &fulfillment.CheckoutSession{
		SessionID:   id,
		RedirectURL: fmt.Sprintf("%s?session_id=%s", g.redirectURL, id),
	}, nil
}

// GetSessionStatus returns the recorded state of a session
func (g *FakeGateway) GetSessionStatus(_ context.Context, sessionID string) (*fulfillment.CheckoutSessionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls["get_session_status"]++
	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	status := *s
	return &status, nil
}

// Complete marks a session as paid. An empty amount keeps the draft total.
func (g *FakeGateway) Complete(sessionID string, amount *decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return ErrUnknownSession
	}
	s.Completed = true
	if amount != nil {
		s.AmountTotal = *amount
	}
	return nil
}

// Calls returns how many times an operation was invoked
func (g *FakeGateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}
