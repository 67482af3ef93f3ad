package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"moviebooking/internal/shared/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, cfg config.RateLimitConfig) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, cfg), mr
}

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:         true,
		WindowDuration:  time.Minute,
		DefaultRequests: 5,
		BookingRequests: 3,
		WhitelistedIPs:  []string{"10.0.0.1"},
	}
}

func TestIsAllowed_SlidingWindow(t *testing.T) {
	limiter, _ := newLimiter(t, testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.IsAllowed(ctx, "192.168.1.7", RateLimitTypeBooking)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d", i)
		assert.Equal(t, 2-i, result.Remaining)
		assert.Equal(t, 3, result.Limit)
	}

	result, err := limiter.IsAllowed(ctx, "192.168.1.7", RateLimitTypeBooking)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)

	// other buckets and other clients are independent
	result, err = limiter.IsAllowed(ctx, "192.168.1.7", RateLimitTypeDefault)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.IsAllowed(ctx, "192.168.1.8", RateLimitTypeBooking)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestIsAllowed_WhitelistAndDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.BookingRequests = 1
	limiter, mr := newLimiter(t, cfg)

	for i := 0; i < 5; i++ {
		result, err := limiter.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypeBooking)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
	assert.Empty(t, mr.Keys())

	cfg.Enabled = false
	disabled := NewRateLimiter(nil, cfg)
	result, err := disabled.IsAllowed(context.Background(), "192.168.1.7", RateLimitTypeBooking)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestGetRateLimitType(t *testing.T) {
	tests := []struct {
		path string
		want RateLimitType
	}{
		{"/health", RateLimitTypeHealth},
		{"/api/v1/admin/stats/movies", RateLimitTypeAnalytics},
		{"/api/v1/admin/movies", RateLimitTypeAdmin},
		{"/api/v1/auth/login", RateLimitTypeAuth},
		{"/api/v1/movies/:movie/theatres/:theatre/bookings", RateLimitTypeBooking},
		{"/api/v1/tickets/:reference", RateLimitTypeBooking},
		{"/api/v1/movies/search", RateLimitTypePublic},
		{"/api/v1/unknown", RateLimitTypeDefault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getRateLimitType(tt.path), tt.path)
	}
}

func TestMiddleware_Returns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.DefaultRequests = 2
	limiter, _ := newLimiter(t, cfg)

	engine := gin.New()
	engine.Use(Middleware(limiter))
	engine.GET("/api/v1/anything", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/anything", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
