package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return tok
}

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	grp := r.Group("/", mw...)
	grp.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user": c.GetString(CtxUserIDKey),
			"role": c.GetString(CtxRoleKey),
		})
	})
	return r
}

func do(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newTestRouter(RequireAuth(testSecret))

	t.Run("valid token", func(t *testing.T) {
		tok := signToken(t, testSecret, jwt.MapClaims{
			"sub":  "admin-1",
			"role": "admin",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		w := do(r, tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user":"admin-1"`)
		assert.Contains(t, w.Body.String(), `"role":"admin"`)
	})

	t.Run("missing header", func(t *testing.T) {
		w := do(r, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok := signToken(t, []byte("other"), jwt.MapClaims{
			"sub": "x", "exp": time.Now().Add(time.Hour).Unix(),
		})
		w := do(r, tok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		tok := signToken(t, testSecret, jwt.MapClaims{
			"sub": "x", "exp": time.Now().Add(-time.Hour).Unix(),
		})
		w := do(r, tok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing sub", func(t *testing.T) {
		tok := signToken(t, testSecret, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		w := do(r, tok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := do(r, "not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	r := newTestRouter(RequireAuth(testSecret), RequireRole("admin"))

	t.Run("allowed role", func(t *testing.T) {
		tok := signToken(t, testSecret, jwt.MapClaims{
			"sub": "a", "role": "admin", "exp": time.Now().Add(time.Hour).Unix(),
		})
		w := do(r, tok)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		tok := signToken(t, testSecret, jwt.MapClaims{
			"sub": "s", "role": "staff", "exp": time.Now().Add(time.Hour).Unix(),
		})
		w := do(r, tok)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no role claim", func(t *testing.T) {
		tok := signToken(t, testSecret, jwt.MapClaims{
			"sub": "s", "exp": time.Now().Add(time.Hour).Unix(),
		})
		w := do(r, tok)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
