package server

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrRevoked is returned for a token of an older generation.
var ErrRevoked = errors.New("token revoked")

// Claims are the sandbox access token claims.
type Claims struct {
	Generation uint64 `json:"gen"`
	Scope      string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret     []byte
	ttl        time.Duration
	now        func() time.Time
	generation atomic.Uint64
	issued     atomic.Int64
}

func NewTokenIssuer(secret []byte, ttl time.Duration, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: secret, ttl: ttl, now: now}
}

// Issue signs a token for subject valid for the configured TTL.
func (ti *TokenIssuer) Issue(subject, scope string) (string, error) {
	now := ti.now()
	claims := Claims{
		Generation: ti.generation.Load(),
		Scope:      scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	ti.issued.Add(1)
	return signed, nil
}

// Verify parses raw and checks signature, expiry and generation.
func (ti *TokenIssuer) Verify(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return ti.secret, nil
	}); err != nil {
		return nil, err
	}
	if claims.Generation != ti.generation.Load() {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke invalidates every token issued so far and returns the new generation.
func (ti *TokenIssuer) Revoke() uint64 {
	return ti.generation.Add(1)
}

func (ti *TokenIssuer) Generation() uint64 {
	return ti.generation.Load()
}

// Issued counts successfully signed tokens.
func (ti *TokenIssuer) Issued() int64 {
	return ti.issued.Load()
}

func (ti *TokenIssuer) TTL() time.Duration {
	return ti.ttl
}
