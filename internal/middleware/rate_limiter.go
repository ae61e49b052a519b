package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"todo-copilot-backend/internal/auth"
)

// RateLimiter is an in-process per-IP token bucket, used on the
// unauthenticated auth endpoints.
func RateLimiter(r rate.Limit, b int) func(http.HandlerFunc) http.HandlerFunc {
	var visitors = make(map[string]*rate.Limiter)
	var mu sync.Mutex

	getVisitor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		limiter, exists := visitors[ip]
		if !exists {
			limiter = rate.NewLimiter(r, b)
			visitors[ip] = limiter
		}
		return limiter
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if !getVisitor(clientIP(req)).Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next(w, req)
		}
	}
}

// RateLimit describes one named sliding-window limit.
type RateLimit struct {
	Rate    int
	Window  time.Duration
	KeyFunc func(*http.Request) string
}

// DistributedRateLimiter enforces limits across instances through a redis
// sorted set per key.
type DistributedRateLimiter struct {
	redis *redis.Client
}

func NewDistributedRateLimiter(redisClient *redis.Client) *DistributedRateLimiter {
	return &DistributedRateLimiter{redis: redisClient}
}

func (rl *DistributedRateLimiter) Middleware(name string, limit RateLimit) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("rate_limit:%s:%s", name, limit.KeyFunc(r))

			allowed, err := rl.checkLimit(r.Context(), key, limit)
			if err != nil {
				// redis trouble must not take the API down
				w.Header().Set("X-RateLimit-Error", "true")
				next(w, r)
				return
			}

			if !allowed {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
				w.Header().Set("X-RateLimit-Window", limit.Window.String())
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

func (rl *DistributedRateLimiter) checkLimit(ctx context.Context, key string, limit RateLimit) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - limit.Window.Nanoseconds()

	pipe := rl.redis.Pipeline()

	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.Expire(ctx, key, limit.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	return countCmd.Val() < int64(limit.Rate), nil
}

// UserKeyFunc buckets by authenticated user, falling back to client IP.
func UserKeyFunc(r *http.Request) string {
	if uid, ok := auth.UserIDFromContext(r.Context()); ok {
		return "user:" + uid
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
