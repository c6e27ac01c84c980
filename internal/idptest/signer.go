package idptest

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the token_type claim.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// signer mints and verifies the HS256 tokens of the fake identity service.
type signer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func newSigner(secret []byte, issuer string, now func() time.Time) (*signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("hs256 requires a secret")
	}
	if now == nil {
		now = time.Now
	}
	return &signer{secret: secret, issuer: issuer, now: now}, nil
}

// mint signs a token of tokenType for username, valid for ttl. Every token
// carries a fresh jti so two tokens minted in the same second differ.
func (s *signer) mint(username, tokenType string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("invalid TTL")
	}
	now := s.now()
	claims := jwt.Claims{
		TokenType: tokenType,
		Username:  username,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   username,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.secret)
}

// verify checks the signature, issuer, expiry and token type of token.
func (s *signer) verify(token, tokenType string) (*jwt.Claims, error) {
	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithTimeFunc(s.now),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithIssuer(s.issuer),
	)
	parsed, err := parser.ParseWithClaims(token, &jwt.Claims{}, func(*jwtv5.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*jwt.Claims)
	if !ok || !parsed.Valid {
		return nil, jwtv5.ErrTokenInvalidClaims
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: token type %q", jwtv5.ErrTokenInvalidClaims, claims.TokenType)
	}
	return claims, nil
}
