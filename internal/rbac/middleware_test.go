package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"telecom-rating/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWith(info *auth.Info, allowed ...string) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if info != nil {
			c.Request = c.Request.WithContext(auth.WithInfo(c.Request.Context(), *info))
		}
		c.Next()
	}, RequireAnyRole(allowed...), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	code := serveWith(&auth.Info{UserID: "u", Roles: []string{RoleSuperAdmin}}, Writers...)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_ViewerCannotWrite(t *testing.T) {
	code := serveWith(&auth.Info{UserID: "u", Roles: []string{RoleRatingViewer}}, Writers...)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_BillingServiceMayLookup(t *testing.T) {
	code := serveWith(&auth.Info{UserID: "cdr", Roles: []string{RoleBillingService}}, LookupCallers...)
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	code = serveWith(&auth.Info{UserID: "cdr", Roles: []string{RoleBillingService}}, Readers...)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 for dictionary read, got %d", code)
	}
}

func TestRequireAnyRole_IdentityRequired(t *testing.T) {
	code := serveWith(nil, Readers...)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}
