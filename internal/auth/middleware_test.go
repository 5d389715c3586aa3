package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"telecom-rating/internal/config"

	"github.com/gin-gonic/gin"
)

func TestRequireAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute})
	tok, err := m.Issue(time.Now(), Info{UserID: "u-7", Roles: []string{"rating_viewer"}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen Info
	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		seen, _ = FromContext(c.Request.Context())
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen.UserID != "u-7" || !seen.HasRole("rating_viewer") {
		t.Fatalf("identity not propagated: %+v", seen)
	}
}
