package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

func newProtectedRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireServiceToken(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestRequireServiceToken_EmptySecretDisablesCheck(t *testing.T) {
	router := newProtectedRouter("")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with auth disabled, got %d", w.Code)
	}
}

func TestRequireServiceToken_ValidToken(t *testing.T) {
	secret := "test-secret"
	router := newProtectedRouter(secret)

	token := signToken(t, secret, jwt.MapClaims{
		"sub": "frontend",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for a valid token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireServiceToken_Rejections(t *testing.T) {
	secret := "test-secret"
	router := newProtectedRouter(secret)

	expired := signToken(t, secret, jwt.MapClaims{
		"sub": "frontend",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, "another-secret", jwt.MapClaims{
		"sub": "frontend",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not a bearer token", header: "Basic dXNlcjpwYXNz"},
		{name: "garbage token", header: "Bearer not.a.token"},
		{name: "expired token", header: "Bearer " + expired},
		{name: "signed with another key", header: "Bearer " + wrongKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}
