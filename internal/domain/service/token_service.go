package service

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the custom claims for API access tokens.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenService defines the interface for generating and validating JWTs.
type TokenService interface {
	// GenerateAccessToken issues a signed access token for a subject.
	GenerateAccessToken(subject string, roles []string) (string, error)

	// ValidateToken checks the validity of a token string and returns its claims.
	ValidateToken(tokenString string) (*Claims, error)
}
