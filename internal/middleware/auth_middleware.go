package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/anubis-chat/identity-graph/pkg/auth"
)

// AdminAuthMiddleware guards admin routes. It accepts either a Bearer
// token issued by JWTService or the raw admin API key on X-API-Key.
type AdminAuthMiddleware struct {
	jwtService *auth.JWTService
	apiKeyHash string
}

// NewAdminAuthMiddleware creates the admin auth middleware. apiKeyHash is
// the bcrypt hash of the accepted API key; empty disables API key auth.
func NewAdminAuthMiddleware(jwtService *auth.JWTService, apiKeyHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{
		jwtService: jwtService,
		apiKeyHash: apiKeyHash,
	}
}

// RequireAdmin rejects requests that carry neither a valid admin token
// nor the admin API key.
func (m *AdminAuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := c.GetHeader("X-API-Key"); apiKey != "" && m.apiKeyHash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(m.apiKeyHash), []byte(apiKey)); err == nil {
				c.Set("operator", "api-key")
				c.Next()
				return
			}
			log.Printf("[AdminAuthMiddleware] Rejected request with invalid API key")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "invalid_api_key"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_missing"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
			c.Abort()
			return
		}

		claims, err := m.jwtService.ParseToken(parts[1])
		if err != nil {
			log.Printf("[AdminAuthMiddleware] Token validation failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "token_invalid"})
			c.Abort()
			return
		}

		c.Set("operator", claims.Operator)
		c.Next()
	}
}
