package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recovr/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "mw-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signed(t *testing.T, role, typ string) string {
	t.Helper()
	claims := service.Claims{
		UserID:    uuid.NewString(),
		Name:      "Ali",
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func protected() *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/salesman", JWTAuth(secret), RequireRole("SALESMAN"), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c).String())
	})
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/salesman", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := protected()

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, signed(t, "SALESMAN", "refresh")).Code)
	assert.Equal(t, http.StatusForbidden, do(r, signed(t, "CLIENT", "access")).Code)

	w := do(r, signed(t, "SALESMAN", "access"))
	assert.Equal(t, http.StatusOK, w.Code)
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestID_PropagatesCallerValue(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestWindowLimiter(t *testing.T) {
	l := newWindowLimiter(2, time.Minute)
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	ok, _ := l.allow("1.2.3.4")
	assert.True(t, ok)
	ok, _ = l.allow("1.2.3.4")
	assert.True(t, ok)
	ok, retry := l.allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, 61, retry)

	ok, _ = l.allow("5.6.7.8")
	assert.True(t, ok, "limits are per key")

	clock = clock.Add(time.Minute + time.Second)
	ok, _ = l.allow("1.2.3.4")
	assert.True(t, ok, "window resets")

	clock = clock.Add(purgeInterval)
	l.allow("9.9.9.9")
	assert.Len(t, l.entries, 1)
}

func TestRateLimiter_Answers429(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimiter(1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
