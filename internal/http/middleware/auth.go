// README: Bearer-token auth middleware backed by a token verifier (Firebase in production).
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"routematch/internal/infra"
)

const (
	callerUIDKey  = "caller_uid"
	callerRoleKey = "caller_role"
)

// Auth verifies the Authorization bearer token and stores the caller's uid
// and role claim on the context. A nil verifier disables authentication.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid token"})
			return
		}
		c.Set(callerUIDKey, token.UID)
		if role, ok := token.Claims["role"].(string); ok {
			c.Set(callerRoleKey, role)
		}
		c.Next()
	}
}

// CallerUID is "" when authentication is disabled.
func CallerUID(c *gin.Context) string {
	return c.GetString(callerUIDKey)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(callerRoleKey)
}
