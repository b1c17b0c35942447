package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
)

// Common errors
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token has expired")
	ErrTokenNotYetValid  = errors.New("token is not yet valid")
	ErrMissingIdentity   = errors.New("token carries no uid or email")
	ErrNoVerificationKey = errors.New("no token verification key configured")
)

// Claims are the identity-provider claims the core relies on.
// Providers put the account uid in "uid" or "user_id"; the subject is the fallback.
type Claims struct {
	jwt.RegisteredClaims
	UID           string `json:"uid,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// Identity extracts the verified uid and email
func (c *Claims) Identity() (identity.Identity, error) {
	uid := c.UID
	if uid == "" {
		uid = c.UserID
	}
	if uid == "" {
		uid = c.Subject
	}
	email := identity.NormalizeEmail(c.Email)
	if strings.TrimSpace(uid) == "" || email == "" {
		return identity.Identity{}, ErrMissingIdentity
	}
	return identity.Identity{UID: uid, Email: email}, nil
}

// TokenVerifier validates bearer tokens issued by the identity provider.
// It accepts HS256 with a shared secret or RS256 with the provider's public key.
type TokenVerifier struct {
	hmacSecret []byte
	publicKey  *rsa.PublicKey
	issuer     string
	audience   string
	leeway     time.Duration
}

// NewTokenVerifier builds a verifier from the auth configuration
func NewTokenVerifier(cfg config.AuthConfig) (*TokenVerifier, error) {
	v := &TokenVerifier{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   cfg.ClockSkew,
	}
	if pem := strings.TrimSpace(cfg.RSAPublicKeyPEM); pem != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("failed to parse auth.rsa_public_key_pem: %w", err)
		}
		v.publicKey = key
		return v, nil
	}
	if cfg.HMACSecret == "" {
		return nil, ErrNoVerificationKey
	}
	v.hmacSecret = []byte(cfg.HMACSecret)
	return v, nil
}

// Verify parses and validates a raw bearer token and returns the caller identity
func (v *TokenVerifier) Verify(tokenString string) (identity.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods(v.validMethods()),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keyFunc, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return identity.Identity{}, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return identity.Identity{}, ErrTokenNotYetValid
		}
		return identity.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return identity.Identity{}, ErrInvalidToken
	}
	return claims.Identity()
}

func (v *TokenVerifier) validMethods() []string {
	if v.publicKey != nil {
		return []string{jwt.SigningMethodRS256.Alg()}
	}
	return []string{jwt.SigningMethodHS256.Alg()}
}

func (v *TokenVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA:
		if v.publicKey != nil {
			return v.publicKey, nil
		}
	case *jwt.SigningMethodHMAC:
		if v.hmacSecret != nil {
			return v.hmacSecret, nil
		}
	}
	return nil, ErrInvalidToken
}

// TokenIssuer signs HS256 identity tokens. Development and tests use it in place of
// the real identity provider.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenIssuer creates an issuer that signs with the configured HMAC secret
func NewTokenIssuer(cfg config.AuthConfig, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{secret: []byte(cfg.HMACSecret), issuer: cfg.Issuer, audience: cfg.Audience, ttl: ttl}
}

// Issue signs a token for uid and email
func (i *TokenIssuer) Issue(uid, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		UID:   uid,
		Email: email,
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
