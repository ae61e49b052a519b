package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"todo-copilot-backend/internal/auth"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestLocalRateLimiter(t *testing.T) {
	t.Parallel()

	// 1 req/hour with burst 2: third request in a row must be rejected
	limited := RateLimiter(rate.Every(time.Hour), 2)(okHandler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		limited(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	limited(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// a different IP has its own bucket
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	limited(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestDistributedRateLimiter(t *testing.T) {
	t.Parallel()

	rl := NewDistributedRateLimiter(newTestRedis(t))
	limited := rl.Middleware("chat", RateLimit{
		Rate:    3,
		Window:  time.Minute,
		KeyFunc: UserKeyFunc,
	})(okHandler)

	doReq := func(uid string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req = req.WithContext(auth.ContextWithUserID(req.Context(), uid))
		rec := httptest.NewRecorder()
		limited(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doReq("u1").Code, "request %d", i)
	}

	rec := doReq("u1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))

	// buckets are per user
	assert.Equal(t, http.StatusOK, doReq("u2").Code)
}

func TestDistributedRateLimiterFailsOpen(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	rl := NewDistributedRateLimiter(rdb)
	limited := rl.Middleware("chat", RateLimit{
		Rate:    1,
		Window:  time.Minute,
		KeyFunc: UserKeyFunc,
	})(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req = req.WithContext(auth.ContextWithUserID(req.Context(), "u1"))
	rec := httptest.NewRecorder()
	limited(rec, req)

	// redis being down must not take chat down
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-RateLimit-Error"))
}

func TestUserKeyFuncFallsBackToIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", UserKeyFunc(req))

	req = req.WithContext(auth.ContextWithUserID(req.Context(), "u9"))
	assert.Equal(t, "user:u9", UserKeyFunc(req))
}
