// Package token reconstructs caller identities from signed JWTs. The
// upstream authentication service issues the tokens; this package only
// verifies and decodes them.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atelierhq/atelier/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims defines the custom claims carried by an access token.
type Claims struct {
	UserID           string      `json:"user_id"`
	TenantID         string      `json:"tenant_id"`
	Role             domain.Role `json:"role"`
	FinanceAccess    bool        `json:"finance_access,omitempty"`
	AllowedVerticals []string    `json:"allowed_verticals,omitempty"`
	jwt.RegisteredClaims
}

// Generate creates a signed token for an identity.
func Generate(id domain.Identity, secretKey string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:           id.UserID,
		TenantID:         id.TenantID,
		Role:             id.Role,
		FinanceAccess:    id.FinanceAccess,
		AllowedVerticals: id.AllowedVerticals,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   id.UserID,
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secretKey))
}

// Verify parses and validates a token string, returning the identity
// it carries.
func Verify(tokenString, secretKey string) (domain.Identity, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return domain.Identity{}, err
	}
	if !t.Valid || claims.UserID == "" || claims.TenantID == "" {
		return domain.Identity{}, ErrInvalidToken
	}

	return domain.Identity{
		UserID:           claims.UserID,
		TenantID:         claims.TenantID,
		Role:             claims.Role,
		FinanceAccess:    claims.FinanceAccess,
		AllowedVerticals: claims.AllowedVerticals,
	}, nil
}
