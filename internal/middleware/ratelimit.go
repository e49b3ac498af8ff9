package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string
}

// fixedWindow counts hits per key in a Redis counter that expires with the window.
type fixedWindow struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

type windowState struct {
	count int64
	reset time.Duration
}

func (fw fixedWindow) hit(ctx context.Context, caller string) (windowState, error) {
	key := fw.prefix + ":" + caller
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := fw.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return windowState{}, err
	}
	st := windowState{count: incr.Val(), reset: ttl.Val()}
	if st.reset < 0 {
		// fresh counter, or one left without expiry by an earlier failure
		if err := fw.rdb.Expire(ctx, key, fw.window).Err(); err != nil {
			return windowState{}, err
		}
		st.reset = fw.window
	}
	return st, nil
}

// callerKey prefers the authenticated user and falls back to the client IP.
func callerKey(r *http.Request) string {
	if userID, ok := GetUserID(r.Context()); ok && userID != "" {
		return "user:" + userID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RateLimitMiddleware caps requests per caller in fixed Redis windows. When
// Redis cannot be reached the request goes through.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	fw := fixedWindow{rdb: redisClient, limit: config.RequestsPerWindow, window: config.Window, prefix: config.KeyPrefix}
	logger = logger.Named("ratelimit")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := callerKey(r)
			st, err := fw.hit(r.Context(), caller)
			if err != nil {
				logger.Warn("Rate limit store unavailable, allowing request", zap.String("caller", caller), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(fw.limit))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(st.reset).Unix(), 10))

			remaining := int64(fw.limit) - st.count
			if remaining < 0 {
				logger.Warn("Rate limit exceeded",
					zap.String("caller", caller),
					zap.String("path", r.URL.Path),
					zap.Int64("count", st.count),
				)
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", strconv.Itoa(int(st.reset.Round(time.Second).Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "too many checkout attempts, try again shortly")
				return
			}
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
