package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"magasin/internal/infrastructure/redis"
)

type fakeRedisClient struct {
	counts map[string]int
	err    error
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{counts: make(map[string]int)}
}

func (f *fakeRedisClient) GetInt(ctx context.Context, key string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	count, ok := f.counts[key]
	if !ok {
		return 0, redis.ErrCacheMiss
	}
	return count, nil
}

func (f *fakeRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.counts[key] = value.(int)
	return nil
}

func (f *fakeRedisClient) Incr(ctx context.Context, key string) error {
	f.counts[key]++
	return nil
}

func doRequest(handler http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:51234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	client := newFakeRedisClient()
	handler := RateLimiter(client, 3, time.Minute)(okHandler())

	for i := 0; i < 3; i++ {
		rec := doRequest(handler)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	client := newFakeRedisClient()
	handler := RateLimiter(client, 2, time.Minute)(okHandler())

	doRequest(handler)
	doRequest(handler)
	rec := doRequest(handler)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiter_PassesThroughOnRedisError(t *testing.T) {
	client := newFakeRedisClient()
	client.err = errors.New("connection refused")
	handler := RateLimiter(client, 1, time.Minute)(okHandler())

	rec := doRequest(handler)
	assert.Equal(t, http.StatusOK, rec.Code)
}
