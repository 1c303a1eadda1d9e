// Package auth issues and validates the bearer tokens that identify health
// workers (operators) to the screening API. An operator is known only by the
// UUID in the token subject; there is no user store.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService defines operations for managing operator access tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for the operator.
	GenerateToken(ctx context.Context, operatorID uuid.UUID) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid, ErrWrongTokenType or
	// ErrInvalidToken when validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of an access token.
type Claims struct {
	OperatorID uuid.UUID `json:"oid,omitempty"`
	TokenType  string    `json:"type,omitempty"`
	Subject    string    `json:"sub,omitempty"`
	Issuer     string    `json:"iss,omitempty"`
	IssuedAt   time.Time `json:"iat,omitempty"`
	ExpiresAt  time.Time `json:"exp,omitempty"`
	ID         string    `json:"jti,omitempty"`
}
