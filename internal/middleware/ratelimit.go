package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"magasin/internal/infrastructure/redis"
)

func RateLimiter(client redis.Client, limit int, period time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, _ := net.SplitHostPort(r.RemoteAddr)
			key := "rate-limit:" + ip
			ctx := r.Context()

			count, err := client.GetInt(ctx, key)
			if err == redis.ErrCacheMiss {
				_ = client.Set(ctx, key, 1, period)
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-1))
				next.ServeHTTP(w, r)
				return
			} else if err != nil {
				// The limiter is not worth failing the request over.
				next.ServeHTTP(w, r)
				return
			}

			if count >= limit {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			_ = client.Incr(ctx, key)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-count-1))
			next.ServeHTTP(w, r)
		})
	}
}
