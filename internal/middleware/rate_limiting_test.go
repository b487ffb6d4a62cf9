package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bloghive/bloghive/internal/instrumentation"
	"github.com/go-redis/redis_rate/v9"
	"github.com/go-redis/redismock/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateLimiter struct {
	allowed    int
	retryAfter time.Duration
}

func (f *fakeRateLimiter) Allow(_ context.Context, _ string, _ redis_rate.Limit) (*redis_rate.Result, error) {
	return &redis_rate.Result{
		Allowed:    f.allowed,
		RetryAfter: f.retryAfter,
	}, nil
}

func TestRateLimit(t *testing.T) {
	instr := instrumentation.NewTestInstrumentation()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	t.Run("allowed", func(t *testing.T) {
		limiter := &fakeRateLimiter{allowed: 1}
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/auth/login", nil)

		RateLimit(limiter, "auth", 15, instr)(next).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("denied", func(t *testing.T) {
		limiter := &fakeRateLimiter{allowed: 0, retryAfter: 10 * time.Second}
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/auth/login", nil)

		RateLimit(limiter, "auth", 15, instr)(next).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, float64(1), testutil.ToFloat64(instr.CounterRateLimited))
	})

	t.Run("redis error", func(t *testing.T) {
		// a mock redis client with no expectations fails every command,
		// which exercises the limiter error path end to end
		redisClient, _ := redismock.NewClientMock()
		limiter := redis_rate.NewLimiter(redisClient)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		require.NotNil(t, limiter)

		RateLimit(limiter, "auth", 15, instr)(next).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
