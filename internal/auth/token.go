package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/domain"
)

const tokenIssuer = "planejatrip"

// Claims identifies the session a bearer token was issued for.
type Claims struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	ExpiresAt time.Time
}

// Tokens signs and verifies HS256 session tokens. The subject is the user ID
// and the token ID is the session ID, so revoking the session revokes the token.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens returns a Tokens signing with secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for session. The token expires with the session.
func (t *Tokens) Issue(session domain.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   session.UserID.String(),
		ID:        session.ID.String(),
		IssuedAt:  jwt.NewNumericDate(t.now()),
		NotBefore: jwt.NewNumericDate(t.now()),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth.Tokens.Issue: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims. Every failure, including an
// expired or tampered token, is reported as domain.ErrUnauthorized.
func (t *Tokens) Parse(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &rc, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("auth.Tokens.Parse: %w: %s", domain.ErrUnauthorized, tokenProblem(err))
	}

	userID, err := uuid.Parse(rc.Subject)
	if err != nil {
		return Claims{}, fmt.Errorf("auth.Tokens.Parse: %w: invalid subject", domain.ErrUnauthorized)
	}
	sessionID, err := uuid.Parse(rc.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("auth.Tokens.Parse: %w: invalid token id", domain.ErrUnauthorized)
	}
	return Claims{UserID: userID, SessionID: sessionID, ExpiresAt: rc.ExpiresAt.Time}, nil
}

// tokenProblem turns a jwt validation error into a short user-facing reason.
func tokenProblem(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "session expired"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid token signature"
	default:
		return "invalid token"
	}
}
