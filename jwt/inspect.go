package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when a bearer token is not a parseable JWT. Opaque
// access tokens are legal; callers treat this error as "expiry unknown".
var ErrNotJWT = errors.New("access token is not a jwt")

// Claims is the subset of access-token claims the client looks at.
type Claims struct {
	TokenType string `json:"token_type,omitempty"`
	Username  string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes the claims of token without verifying its signature.
func Inspect(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNotJWT
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}
	return claims, nil
}

// Expiry returns the exp claim of token. ok is false when the token is not a
// JWT or carries no exp.
func Expiry(token string) (exp time.Time, ok bool) {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExpiresWithin reports whether token expires before now+skew. Tokens with an
// unknown expiry never report true.
func ExpiresWithin(token string, skew time.Duration, now time.Time) bool {
	exp, ok := Expiry(token)
	if !ok {
		return false
	}
	return !now.Add(skew).Before(exp)
}
