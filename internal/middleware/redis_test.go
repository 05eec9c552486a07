package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/memos/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestTokenBucket(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "test:rl",
	}
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }, NewTokenBucket(cfg, rdb))

	rec := serve(e, http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }, NewTokenBucket(cfg, rdb))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ping", "").Code)
	}
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/memos", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/memos")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
	assert.Equal(t, "rl:ip:10.0.0.1", rateKey(cfg, c))
	cfg.KeyStrategy = "ip_route"
	assert.Equal(t, "rl:ip:10.0.0.1:route:GET /memos", rateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:GET /memos", rateKey(cfg, c))
}

func cacheServer(t *testing.T, maxBody int) (*echo.Echo, *int32) {
	t.Helper()
	_, rdb := newRedis(t)
	cache := NewRedisCache(config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "test:cache",
		MaxBodyBytes: maxBody,
	}, rdb)

	var hits int32
	e := echo.New()
	e.Use(cache.Middleware())
	e.GET("/memos", func(c echo.Context) error {
		n := atomic.AddInt32(&hits, 1)
		return c.String(http.StatusOK, fmt.Sprintf("memo-%d", n))
	})
	e.POST("/memos", func(c echo.Context) error { return c.NoContent(http.StatusCreated) })
	e.POST("/bad", func(c echo.Context) error { return c.NoContent(http.StatusBadRequest) })
	return e, &hits
}

func TestCacheServesAnonymousReads(t *testing.T) {
	e, hits := cacheServer(t, 1<<10)

	rec := serve(e, http.MethodGet, "/memos", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "memo-1", rec.Body.String())

	rec = serve(e, http.MethodGet, "/memos", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "memo-1", rec.Body.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestCacheBypassesAuthorizedRequests(t *testing.T) {
	e, hits := cacheServer(t, 1<<10)
	serve(e, http.MethodGet, "/memos", "")

	rec := serve(e, http.MethodGet, "/memos", "Bearer x")
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Equal(t, "memo-2", rec.Body.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestCacheInvalidatedByWrites(t *testing.T) {
	e, _ := cacheServer(t, 1<<10)
	serve(e, http.MethodGet, "/memos", "")

	// failed writes leave the cache alone
	serve(e, http.MethodPost, "/bad", "")
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/memos", "").Header().Get("X-Cache"))

	serve(e, http.MethodPost, "/memos", "Bearer x")
	rec := serve(e, http.MethodGet, "/memos", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "memo-2", rec.Body.String())
}

func TestCacheSkipsOversizedBodies(t *testing.T) {
	e, hits := cacheServer(t, 1)
	serve(e, http.MethodGet, "/memos", "")
	serve(e, http.MethodGet, "/memos", "")
	rec := serve(e, http.MethodGet, "/memos", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestCacheEntryRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodeEntry(http.StatusOK, h, []byte(`{}`))
	require.NoError(t, err)
	status, got, body, ok := decodeEntry(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{}`, string(body))

	_, _, _, ok = decodeEntry([]byte{1, 2})
	assert.False(t, ok)
}
