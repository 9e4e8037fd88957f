package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func calculateRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pricing/calculate", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	return req
}

func TestMiddlewareThrottlesCalculate(t *testing.T) {
	limiter, _ := newLimiter(t)
	handler := Handler{
		Limiter: limiter,
		Config: Config{
			Key:    func(r *http.Request) string { return r.RemoteAddr },
			Window: time.Second,
			Max:    2,
		},
	}

	wrapped := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, calculateRequest())
		require.Equal(t, http.StatusOK, rec.Code, "request %d under the limit", i+1)
		require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, calculateRequest())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "RATE_LIMITED", body.Error.Code)
}

func TestMiddlewareFailsOpenOnRedisError(t *testing.T) {
	// Unroutable address: every limiter call errors out.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	var seen error
	handler := Handler{
		Limiter: Limiter{Client: client, Prefix: "pricing:rl:"},
		Config: Config{
			Key:    func(*http.Request) string { return "customer:1001" },
			Window: time.Second,
			Max:    1,
		},
		OnError: func(err error) { seen = err },
	}

	wrapped := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, calculateRequest())
	require.Equal(t, http.StatusOK, rec.Code, "a Redis outage must not block pricing")
	require.Error(t, seen)
}

func TestMiddlewareWithoutKeyFuncPassesThrough(t *testing.T) {
	limiter, _ := newLimiter(t)
	handler := Handler{Limiter: limiter}

	wrapped := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, calculateRequest())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-RateLimit-Limit"), "no key derivation, no limiting")
}
