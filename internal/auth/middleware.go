package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextKeyUserID  = "user_id"
	ContextKeyIsAdmin = "user_is_admin"
)

// Middleware rejects requests without a valid bearer token and stamps the
// verified claims onto the gin context.
func Middleware(verifier *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := claimsFromHeader(c, verifier)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

func claimsFromHeader(c *gin.Context, verifier *Verifier) (*Claims, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, ErrInvalidToken
	}
	return verifier.Verify(parts[1])
}

// UserID extracts the verified user id from the gin context.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyUserID); ok {
		return v.(string)
	}
	return ""
}

// IsAdmin extracts the verified admin flag from the gin context.
func IsAdmin(c *gin.Context) bool {
	if v, ok := c.Get(ContextKeyIsAdmin); ok {
		return v.(bool)
	}
	return false
}
