package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
)

// tokenIssuerName is the iss claim on every access token.
const tokenIssuerName = "nestfind-auth"

// AccessClaims is the payload of an access token: subject (user id), the
// session the token is bound to, a unique token id, and the issued/expiry
// timestamps. Nothing in here is authoritative for authorization; the gate
// re-reads role and status from the store on every use.
type AccessClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and validates short-lived HS256 access tokens. It is
// stateless and side-effect-free; session liveness and user state are checked
// elsewhere.
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenIssuer creates a token issuer with the given symmetric secret and
// access token lifetime.
func NewTokenIssuer(secret string, lifetime time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(secret),
		lifetime: lifetime,
	}
}

// Lifetime returns the configured access token lifetime.
func (i *TokenIssuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue creates a signed access token bound to the given user and session.
func (i *TokenIssuer) Issue(userID, sessionID string) (string, error) {
	now := time.Now().UTC()
	claims := &AccessClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
			Issuer:    tokenIssuerName,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// Decode verifies the signature and expiry of an access token and returns its
// claims. Failures come back as definite domain outcomes (TokenExpired,
// TokenInvalid), never as raw parser errors.
func (i *TokenIssuer) Decode(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.TokenExpired()
		}
		return nil, domain.TokenInvalid()
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, domain.TokenInvalid()
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, domain.TokenInvalid()
	}

	return claims, nil
}
