package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, 2)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, limiter.Allow("10.0.0.2"), "clients are limited independently")

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"), "token refilled")
}

func TestRateLimiter_Prune(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, 1)
	limiter.now = func() time.Time { return now }

	limiter.Allow("old")
	now = now.Add(10 * time.Minute)
	limiter.Allow("fresh")

	limiter.Prune(5 * time.Minute)

	assert.Len(t, limiter.limiters, 1)
	assert.Contains(t, limiter.limiters, "fresh")
}

func TestRateLimiter_Handler(t *testing.T) {
	router := newTestRouter(t, fixedClassifier{}, NewRateLimiter(0.001, 1))

	first := httptest.NewRequest(http.MethodGet, "/api/v1/options", nil)
	first.RemoteAddr = "192.0.2.10:5000"
	rec, _ := do(t, router, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := httptest.NewRequest(http.MethodGet, "/api/v1/options", nil)
	second.RemoteAddr = "192.0.2.10:5001"
	rec, body := do(t, router, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", body["error"])
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// health checks are not throttled
	health := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	health.RemoteAddr = "192.0.2.10:5002"
	rec, _ = do(t, router, health)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuth_EmptyTokenDisablesRoute(t *testing.T) {
	called := false
	handler := AdminAuth("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/history/1", nil)
	req.Header.Set(adminTokenHeader, "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}
