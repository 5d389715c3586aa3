package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// Verifier is satisfied by *Manager.
type Verifier interface {
	Verify(tokenString string, now time.Time) (Info, error)
}

// RequireAccessToken verifies an access token and injects identity into request context.
// It does not perform role checks; those belong to internal/rbac.
func RequireAccessToken(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		info, err := v.Verify(tok, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(WithInfo(c.Request.Context(), info))
		c.Set("user_id", info.UserID)

		c.Next()
	}
}
