package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AccessGate resolves the caller's role and status from the account store on every call.
// Nothing is cached, so suspensions and role changes apply to the next request.
type AccessGate struct {
	accounts identity.AccountRepository
	logger   *zap.Logger
}

// NewAccessGate creates a new AccessGate
func NewAccessGate(accounts identity.AccountRepository, logger *zap.Logger) *AccessGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessGate{accounts: accounts, logger: logger}
}

// Resolve loads the account behind a verified identity and builds the request's Actor
func (g *AccessGate) Resolve(ctx context.Context, id identity.Identity) (identity.Actor, error) {
	email := identity.NormalizeEmail(id.Email)
	if email == "" {
		return identity.Actor{}, shared.ErrUnauthenticated
	}

	account, err := g.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return identity.Actor{}, shared.NewPermissionDeniedError("No account is registered for this identity")
		}
		return identity.Actor{}, err
	}

	// A token for a recycled email must not inherit someone else's account.
	if account.UID != "" && strings.TrimSpace(id.UID) != "" && account.UID != id.UID {
		g.logger.Warn("Identity uid does not match account",
			zap.String("email", email),
			zap.String("account_id", account.ID.String()))
		return identity.Actor{}, shared.NewPermissionDeniedError("Identity does not match the registered account")
	}

	uid := id.UID
	if uid == "" {
		uid = account.UID
	}
	return identity.NewActor(identity.Identity{UID: uid, Email: email}, account), nil
}
