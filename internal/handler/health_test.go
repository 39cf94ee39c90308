package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"recovr/internal/infra"
	"recovr/internal/kvstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthBody(t *testing.T, h gin.HandlerFunc) (int, map[string]any) {
	t.Helper()
	r := gin.New()
	r.GET("/health", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cb := infra.NewCircuitBreaker(infra.DefaultAIBreakerConfig())

	code, body := healthBody(t, Health(kvstore.NewMemoryStore(), rdb, cb))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "connected", body["redis"])
	assert.Contains(t, body, "dead_letters")
	assert.Equal(t, "closed", body["assistant"].(map[string]any)["breaker"])

	mr.Close()
	code, body = healthBody(t, Health(kvstore.NewMemoryStore(), rdb, nil))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body["redis"])
}

func TestHealth_MemoryOnly(t *testing.T) {
	code, body := healthBody(t, Health(kvstore.NewMemoryStore(), nil, nil))
	assert.Equal(t, http.StatusOK, code)
	assert.NotContains(t, body, "redis")
}
