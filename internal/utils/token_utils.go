package utils

import (
	"errors"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/golang-jwt/jwt/v5"
)

// ActorClaims carries the caller identity the command pipeline needs.
type ActorClaims struct {
	Name     string   `json:"name,omitempty"`
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into a pipeline actor.
func (c *ActorClaims) Actor() domain.Actor {
	return domain.Actor{
		UserID:   c.Subject,
		UserName: c.Name,
		TenantID: c.TenantID,
		Roles:    append([]string(nil), c.Roles...),
	}
}

// GenerateJWT signs an HS256 token for actor.
func GenerateJWT(actor domain.Actor, secret string, expiryDuration time.Duration, issuer string) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		Name:     actor.UserName,
		TenantID: actor.TenantID,
		Roles:    actor.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   actor.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiryDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAndValidateJWT parses a JWT token string, validates its signature and standard claims.
// Tokens without a subject or tenant are rejected.
func ParseAndValidateJWT(tokenString string, secretKey string) (*ActorClaims, error) {
	claims := &ActorClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return nil, errors.Join(jwt.ErrTokenInvalidClaims, errors.New("token must carry sub and tenant_id"))
	}
	return claims, nil
}
