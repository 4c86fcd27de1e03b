package auth

import (
	"crypto/rand"
	"fmt"
	"messenger/domain"
	"messenger/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "messenger"

// SessionClaims is what a session token carries.
type SessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs opaque bearer tokens for sessions with HS256.
type TokenIssuer struct {
	key []byte
}

// NewTokenIssuer uses secret as signing key. An empty secret draws a random key,
// so tokens do not survive a restart, just like the in-memory store.
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	if secret != "" {
		return &TokenIssuer{key: []byte(secret)}, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("token key generation failed: %w", err)
	}
	return &TokenIssuer{key: key}, nil
}

// Issue creates a signed token for a session. The jti makes every token unique.
func (i *TokenIssuer) Issue(sessionID domain.ID) (string, error) {
	claims := &SessionClaims{
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Issuer:   issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.key)
}

// Verify checks the signature and returns the session id the token was issued for.
func (i *TokenIssuer) Verify(tokenString string) (domain.ID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return 0, errors.ErrInvalidToken
	}
	id, err := domain.ParseID(claims.SessionID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	return id, nil
}
