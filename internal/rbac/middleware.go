package rbac

import (
	"net/http"

	"telecom-rating/internal/apperr"
	"telecom-rating/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole allows access if the caller holds any of the provided roles.
// super_admin bypasses all checks.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := auth.FromContext(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "identity required"})
			return
		}
		if IsSuperAdmin(info.Roles) || info.HasAnyRole(allowed...) {
			c.Next()
			return
		}

		e := apperr.Forbidden("forbidden", "role not permitted")
		c.AbortWithStatusJSON(e.Kind.HTTPStatus(), gin.H{"error": e.Code, "message": e.Message})
	}
}
