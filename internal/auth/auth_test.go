package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/MmmDelicious/lovememory-sub002/config"
)

func init() {
	gin.SetMode(gin.TestMode)
	config.C.JWT.Secret = "test-secret"
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := IssueToken("test-secret", "player-1", "Alice", time.Hour)
	assert.NoError(t, err)

	id, name, err := VerifyToken("test-secret", tok)
	assert.NoError(t, err)
	assert.Equal(t, "player-1", id)
	assert.Equal(t, "Alice", name)
}

func TestTokenWrongSecret(t *testing.T) {
	tok, err := IssueToken("test-secret", "player-1", "Alice", time.Hour)
	assert.NoError(t, err)

	_, _, err = VerifyToken("other-secret", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	tok, err := IssueToken("test-secret", "player-1", "Alice", -time.Minute)
	assert.NoError(t, err)

	_, _, err = VerifyToken("test-secret", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoginIssuesToken(t *testing.T) {
	r := gin.New()
	h := NewHandler()
	r.POST("/auth/login", h.Login)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"name":"Bob"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jwt")
	assert.Contains(t, w.Body.String(), "Bob")
}

func TestLoginRejectsEmptyName(t *testing.T) {
	r := gin.New()
	h := NewHandler()
	r.POST("/auth/login", h.Login)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMiddlewareBearerHeader(t *testing.T) {
	tok, _ := IssueToken("test-secret", "p-42", "Cara", time.Hour)

	r := gin.New()
	r.GET("/whoami", Middleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetString("playerID"), "name": c.GetString("playerName")})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "p-42")
}

func TestMiddlewareQueryToken(t *testing.T) {
	tok, _ := IssueToken("test-secret", "p-7", "", time.Hour)

	r := gin.New()
	r.GET("/ws", Middleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("playerID"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+tok, nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p-7", w.Body.String())
}

func TestMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	r := gin.New()
	r.GET("/secure", Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
