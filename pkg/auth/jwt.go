package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned when a token fails signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// AdminClaims carries the operator identity inside admin-scope tokens.
type AdminClaims struct {
	Operator string `json:"operator"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HMAC-signed admin tokens.
type JWTService struct {
	secret   []byte
	tokenTTL time.Duration
}

// NewJWTService creates a token service. The secret must be non-empty.
func NewJWTService(secret string, ttlHours int) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if ttlHours <= 0 {
		ttlHours = 12
	}
	return &JWTService{
		secret:   []byte(secret),
		tokenTTL: time.Duration(ttlHours) * time.Hour,
	}, nil
}

// GenerateToken issues a signed admin token for the given operator name.
func (s *JWTService) GenerateToken(operator string) (string, error) {
	if operator == "" {
		return "", fmt.Errorf("operator is required")
	}
	now := time.Now()
	claims := &AdminClaims{
		Operator: operator,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token string and returns its claims.
func (s *JWTService) ParseToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != "admin" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
