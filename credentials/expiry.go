package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BearerExpiry reports the exp claim of the stored bearer token when it is a
// JWT. The signature is not verified: the client only uses the claim to decide
// whether to refresh ahead of the server rejecting the token.
func (s *Store) BearerExpiry() (time.Time, bool) {
	token, ok := s.BearerToken()
	if !ok {
		return time.Time{}, false
	}
	return TokenExpiry(token)
}

// TokenExpiry extracts the exp claim of an unverified JWT.
func TokenExpiry(raw string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExpiresWithin reports whether the stored bearer JWT expires before now+skew.
// Tokens without a readable exp claim never report true.
func (s *Store) ExpiresWithin(now time.Time, skew time.Duration) bool {
	exp, ok := s.BearerExpiry()
	if !ok {
		return false
	}
	return !now.Add(skew).Before(exp)
}
